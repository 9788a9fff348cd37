// Package catalog queries the ygoprodeck card database and normalizes its
// results for deck building.
package catalog

import (
	"bytes"
	"strconv"
	"strings"

	"ygodeck/internal/deck"
)

// Card is a normalized catalog card.
type Card struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	FrameType     string         `json:"frameType,omitempty"`
	Desc          string         `json:"desc,omitempty"`
	Atk           *int           `json:"atk"`
	Def           *int           `json:"def"`
	Level         *int           `json:"level,omitempty"`
	LinkVal       *int           `json:"linkval,omitempty"`
	Attribute     string         `json:"attribute,omitempty"`
	Race          string         `json:"race,omitempty"`
	Archetype     string         `json:"archetype,omitempty"`
	BanStatus     deck.BanStatus `json:"banStatus"`
	ImageURL      string         `json:"imageUrl,omitempty"`
	ImageURLSmall string         `json:"imageUrlSmall,omitempty"`
	ExtraDeck     bool           `json:"isExtraDeck"`
}

// Section returns where the card goes in a deck.
func (c Card) Section() deck.Section {
	return deck.SectionFor(c.Type)
}

// flexInt accepts a JSON number, a numeric string, null, or any other string
// (such as "?") which decodes as absent.
type flexInt struct {
	val *int
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		f.val = nil
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			f.val = nil
			return nil
		}
		s = strings.TrimSpace(unq)
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.val = nil
		return nil
	}
	v := int(n)
	f.val = &v
	return nil
}

type rawImage struct {
	ImageURL      string `json:"image_url"`
	ImageURLSmall string `json:"image_url_small"`
}

type rawBanlistInfo struct {
	TCG  string `json:"ban_tcg"`
	OCG  string `json:"ban_ocg"`
	Goat string `json:"ban_goat"`
}

func (b *rawBanlistInfo) status(format string) string {
	if b == nil {
		return ""
	}
	switch format {
	case "ocg":
		return b.OCG
	case "goat":
		return b.Goat
	default:
		return b.TCG
	}
}

type rawCard struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	FrameType   string          `json:"frameType"`
	Desc        string          `json:"desc"`
	Atk         flexInt         `json:"atk"`
	Def         flexInt         `json:"def"`
	Level       flexInt         `json:"level"`
	LinkVal     flexInt         `json:"linkval"`
	Attribute   string          `json:"attribute"`
	Race        string          `json:"race"`
	Archetype   string          `json:"archetype"`
	BanlistInfo *rawBanlistInfo `json:"banlist_info"`
	CardImages  []rawImage      `json:"card_images"`
}

type cardInfoEnvelope struct {
	Data  []rawCard `json:"data"`
	Error string    `json:"error"`
}

func (r rawCard) normalize() Card {
	c := Card{
		ID:        r.ID,
		Name:      r.Name,
		Type:      r.Type,
		FrameType: r.FrameType,
		Desc:      r.Desc,
		Atk:       r.Atk.val,
		Def:       r.Def.val,
		Level:     r.Level.val,
		LinkVal:   r.LinkVal.val,
		Attribute: r.Attribute,
		Race:      r.Race,
		Archetype: r.Archetype,
		BanStatus: deck.Unlimited,
		ExtraDeck: deck.IsExtraDeckType(r.Type),
	}
	if len(r.CardImages) > 0 {
		c.ImageURL = r.CardImages[0].ImageURL
		c.ImageURLSmall = r.CardImages[0].ImageURLSmall
	}
	return c
}

// Banlist maps exact card names to their ban status. Names missing from the
// map are Unlimited.
type Banlist map[string]deck.BanStatus

// Status looks up a card name.
func (b Banlist) Status(name string) deck.BanStatus {
	if s, ok := b[name]; ok {
		return s
	}
	return deck.Unlimited
}

// Enrich overlays ban status onto cards by exact name match. It returns a new
// slice and leaves the input untouched.
func Enrich(cards []Card, banlist Banlist) []Card {
	out := make([]Card, len(cards))
	for i, c := range cards {
		c.BanStatus = banlist.Status(c.Name)
		out[i] = c
	}
	return out
}
