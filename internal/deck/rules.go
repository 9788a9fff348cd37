package deck

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidDeck is matched by every ValidationError.
var ErrInvalidDeck = errors.New("invalid deck")

// Rule names a validation check.
type Rule string

const (
	RuleNameLength   Rule = "name_length"
	RuleEntryCount   Rule = "entry_count"
	RuleEntryID      Rule = "entry_id"
	RuleMainEntries  Rule = "main_entries"
	RuleExtraEntries Rule = "extra_entries"
	RuleMainSize     Rule = "main_size"
	RuleExtraSize    Rule = "extra_size"
)

// Violation is a single failed check.
type Violation struct {
	Field   string `json:"field"`
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

// ValidationError carries the violations found, in evaluation order.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "; ")
}

// Is lets errors.Is match ErrInvalidDeck.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDeck
}

// FirstRule returns the rule of the first violation.
func (e *ValidationError) FirstRule() Rule {
	if len(e.Violations) == 0 {
		return ""
	}
	return e.Violations[0].Rule
}

func fail(field string, rule Rule, format string, args ...any) error {
	return &ValidationError{Violations: []Violation{{
		Field:   field,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	}}}
}

// Validate checks the structural deck rules. Name length comes first, then a
// single pass over every entry whose findings are reported together, then the
// section size checks, each of which stops at the first failure.
// Banlist status is not consulted.
func Validate(sub Submission) error {
	nameLen := utf8.RuneCountInString(strings.TrimSpace(sub.Name))
	if nameLen < NameMinLen {
		return fail("name", RuleNameLength, "deck name must be at least %d characters, got %d", NameMinLen, nameLen)
	}
	if nameLen > NameMaxLen {
		return fail("name", RuleNameLength, "deck name must be at most %d characters, got %d", NameMaxLen, nameLen)
	}

	var violations []Violation
	violations = appendEntryViolations(violations, "mainDeck", sub.Main)
	violations = appendEntryViolations(violations, "extraDeck", sub.Extra)
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	if len(sub.Main) > MainMax {
		return fail("mainDeck", RuleMainEntries, "main deck cannot exceed %d distinct entries, got %d", MainMax, len(sub.Main))
	}
	if len(sub.Extra) > ExtraMax {
		return fail("extraDeck", RuleExtraEntries, "extra deck cannot exceed %d distinct entries, got %d", ExtraMax, len(sub.Extra))
	}

	mainTotal, _ := Totals(sub.Main)
	if mainTotal < MainMin {
		return fail("mainDeck", RuleMainSize, "main deck has too few cards: must be between %d and %d, got %d", MainMin, MainMax, mainTotal)
	}
	if mainTotal > MainMax {
		return fail("mainDeck", RuleMainSize, "main deck has too many cards: must be between %d and %d, got %d", MainMin, MainMax, mainTotal)
	}

	extraTotal, _ := Totals(sub.Extra)
	if extraTotal > ExtraMax {
		return fail("extraDeck", RuleExtraSize, "extra deck cannot exceed %d cards, got %d", ExtraMax, extraTotal)
	}

	return nil
}

func appendEntryViolations(out []Violation, field string, entries []Entry) []Violation {
	for i, e := range entries {
		if e.Count < 1 || e.Count > MaxCopies {
			out = append(out, Violation{
				Field:   fmt.Sprintf("%s[%d].count", field, i),
				Rule:    RuleEntryCount,
				Message: fmt.Sprintf("card count must be between 1 and %d, got %d", MaxCopies, e.Count),
			})
		}
		if e.ID <= 0 {
			out = append(out, Violation{
				Field:   fmt.Sprintf("%s[%d].id", field, i),
				Rule:    RuleEntryID,
				Message: fmt.Sprintf("card id must be a positive integer, got %d", e.ID),
			})
		}
	}
	return out
}
