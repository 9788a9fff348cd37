// Package deckbuilder keeps an in-progress deck and refuses additions that
// would make it illegal, using the same thresholds the server validates with.
package deckbuilder

import (
	"fmt"

	"ygodeck/internal/catalog"
	"ygodeck/internal/deck"
)

// Reason classifies why an addition was refused.
type Reason string

const (
	ReasonForbidden  Reason = "forbidden"
	ReasonSectionCap Reason = "section_cap"
	ReasonCopyLimit  Reason = "copy_limit"
)

// Rejection is returned by Add when the card cannot be added. The draft is
// left unchanged.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string { return r.Message }

// Item is a card in the draft with its running count.
type Item struct {
	Card  catalog.Card
	Count int
}

// Draft is a deck being assembled. The zero value is an empty draft with
// forbidden cards excluded. It is not safe for concurrent use.
type Draft struct {
	Main             []Item
	Extra            []Item
	IncludeForbidden bool
}

// SetIncludeForbidden toggles the forbidden-card override. Cards already in
// the draft are kept when the override is switched off.
func (d *Draft) SetIncludeForbidden(on bool) {
	d.IncludeForbidden = on
}

func (d *Draft) items(s deck.Section) *[]Item {
	if s == deck.Extra {
		return &d.Extra
	}
	return &d.Main
}

// Add places one copy of card in the section its type belongs to.
func (d *Draft) Add(card catalog.Card) error {
	if card.BanStatus == deck.Forbidden && !d.IncludeForbidden {
		return &Rejection{
			Reason:  ReasonForbidden,
			Message: fmt.Sprintf("%s is Forbidden; enable forbidden cards to add it", card.Name),
		}
	}

	section := card.Section()
	items := d.items(section)

	if copies(*items) >= section.Cap() {
		return &Rejection{
			Reason:  ReasonSectionCap,
			Message: fmt.Sprintf("the %s is full (%d cards)", section.Label(), section.Cap()),
		}
	}

	limit := deck.CopyLimit(card.BanStatus, d.IncludeForbidden)
	idx := indexOf(*items, card.ID)
	if idx >= 0 && (*items)[idx].Count >= limit {
		return &Rejection{
			Reason:  ReasonCopyLimit,
			Message: fmt.Sprintf("%s is %s: at most %d %s allowed", card.Name, label(card.BanStatus), limit, plural(limit)),
		}
	}

	if idx >= 0 {
		(*items)[idx].Count++
		return nil
	}
	*items = append(*items, Item{Card: card, Count: 1})
	return nil
}

// Remove takes one copy of the card out of section. Unknown ids are ignored.
func (d *Draft) Remove(id int, section deck.Section) {
	items := d.items(section)
	idx := indexOf(*items, id)
	if idx < 0 {
		return
	}
	if (*items)[idx].Count > 1 {
		(*items)[idx].Count--
		return
	}
	*items = append((*items)[:idx], (*items)[idx+1:]...)
}

// Totals returns the copies held in each section.
func (d *Draft) Totals() (main, extra int) {
	return copies(d.Main), copies(d.Extra)
}

// Submission converts the draft into the payload the deck API accepts.
func (d *Draft) Submission(name string) deck.Submission {
	return deck.Submission{
		Name:  name,
		Main:  entries(d.Main),
		Extra: entries(d.Extra),
	}
}

// Load replaces the draft contents with a saved deck. Cards missing from
// cards are skipped and returned.
func (d *Draft) Load(main, extra []deck.Entry, cards map[int]catalog.Card) (missing []int) {
	d.Main, d.Extra = nil, nil
	fill := func(dst *[]Item, src []deck.Entry) {
		for _, e := range src {
			c, ok := cards[e.ID]
			if !ok {
				missing = append(missing, e.ID)
				continue
			}
			*dst = append(*dst, Item{Card: c, Count: e.Count})
		}
	}
	fill(&d.Main, main)
	fill(&d.Extra, extra)
	return missing
}

func entries(items []Item) []deck.Entry {
	out := make([]deck.Entry, 0, len(items))
	for _, it := range items {
		out = append(out, deck.Entry{ID: it.Card.ID, Name: it.Card.Name, Count: it.Count})
	}
	return out
}

func copies(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Count
	}
	return n
}

func indexOf(items []Item, id int) int {
	for i, it := range items {
		if it.Card.ID == id {
			return i
		}
	}
	return -1
}

func label(s deck.BanStatus) string {
	if s == "" {
		return string(deck.Unlimited)
	}
	return string(s)
}

func plural(n int) string {
	if n == 1 {
		return "copy"
	}
	return "copies"
}
