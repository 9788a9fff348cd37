// Package deck holds the deck-construction rules shared by the API server and
// the interactive deck builder.
package deck

import "strings"

// Deck construction limits.
const (
	NameMinLen = 3
	NameMaxLen = 50

	MainMin  = 40
	MainMax  = 60
	ExtraMax = 15

	// MaxCopies is the per-card cap regardless of banlist status.
	MaxCopies = 3
)

// BanStatus is a card's tournament legality tier.
type BanStatus string

const (
	Unlimited   BanStatus = "Unlimited"
	SemiLimited BanStatus = "Semi-Limited"
	Limited     BanStatus = "Limited"
	Forbidden   BanStatus = "Forbidden"
)

// ParseBanStatus maps a catalog label onto a BanStatus. Unknown or empty
// labels are Unlimited.
func ParseBanStatus(s string) BanStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forbidden", "banned":
		return Forbidden
	case "limited":
		return Limited
	case "semi-limited", "semi limited", "semilimited":
		return SemiLimited
	default:
		return Unlimited
	}
}

// CopyLimit returns how many copies of a card with the given status a deck
// may hold. Forbidden cards are capped at zero unless includeForbidden is set,
// in which case only the global per-card cap applies.
func CopyLimit(status BanStatus, includeForbidden bool) int {
	switch status {
	case Forbidden:
		if includeForbidden {
			return MaxCopies
		}
		return 0
	case Limited:
		return 1
	case SemiLimited:
		return 2
	default:
		return MaxCopies
	}
}

// Section identifies the part of a deck a card lives in.
type Section string

const (
	Main  Section = "main"
	Extra Section = "extra"
)

// Cap returns the maximum total copies the section may hold.
func (s Section) Cap() int {
	if s == Extra {
		return ExtraMax
	}
	return MainMax
}

// Label is the human-readable section name used in messages.
func (s Section) Label() string {
	if s == Extra {
		return "extra deck"
	}
	return "main deck"
}

// ParseSection accepts "main" or "extra" in any case.
func ParseSection(s string) (Section, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Main):
		return Main, true
	case string(Extra):
		return Extra, true
	}
	return "", false
}

// extraDeckTypes is the closed set of catalog type labels that belong in the
// Extra Deck. A new Extra Deck frame in the catalog needs an entry here.
var extraDeckTypes = map[string]struct{}{
	"Fusion Monster":                  {},
	"Pendulum Effect Fusion Monster":  {},
	"Synchro Monster":                 {},
	"Synchro Tuner Monster":           {},
	"Synchro Pendulum Effect Monster": {},
	"XYZ Monster":                     {},
	"XYZ Pendulum Effect Monster":     {},
	"Link Monster":                    {},
}

// IsExtraDeckType reports whether a catalog type label is an Extra Deck type.
func IsExtraDeckType(cardType string) bool {
	_, ok := extraDeckTypes[strings.TrimSpace(cardType)]
	return ok
}

// SectionFor places a card by its type label.
func SectionFor(cardType string) Section {
	if IsExtraDeckType(cardType) {
		return Extra
	}
	return Main
}

// Entry is a card reference with a copy count as submitted by a client.
type Entry struct {
	ID    int    `json:"id"`
	Name  string `json:"name,omitempty"`
	Count int    `json:"count"`
}

// Submission is the full deck payload a client saves.
type Submission struct {
	Name  string  `json:"name"`
	Main  []Entry `json:"mainDeck"`
	Extra []Entry `json:"extraDeck"`
}

// Totals returns the summed copies and the number of distinct entries.
func Totals(entries []Entry) (copies, unique int) {
	for _, e := range entries {
		copies += e.Count
	}
	return copies, len(entries)
}
