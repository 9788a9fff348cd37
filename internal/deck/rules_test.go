package deck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entries builds n distinct entries with the given count each, ids from base.
func entries(base, n, count int) []Entry {
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Entry{ID: base + i, Name: "card", Count: count})
	}
	return out
}

func validSubmission() Submission {
	return Submission{
		Name:  "Blue-Eyes Control",
		Main:  entries(1000, 20, 2),
		Extra: entries(5000, 5, 3),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Submission)
		wantRule Rule
		wantMsg  string
	}{
		{
			name:   "valid deck",
			mutate: func(*Submission) {},
		},
		{
			name:     "name too short",
			mutate:   func(s *Submission) { s.Name = "AB" },
			wantRule: RuleNameLength,
			wantMsg:  "deck name must be at least 3 characters",
		},
		{
			name:     "name whitespace is trimmed",
			mutate:   func(s *Submission) { s.Name = "  AB  " },
			wantRule: RuleNameLength,
		},
		{
			name: "name too long",
			mutate: func(s *Submission) {
				s.Name = "abcdefghijabcdefghijabcdefghijabcdefghijabcdefghijX"
			},
			wantRule: RuleNameLength,
			wantMsg:  "at most 50",
		},
		{
			name:   "name counts runes not bytes",
			mutate: func(s *Submission) { s.Name = "青眼の" },
		},
		{
			name:     "main count above three",
			mutate:   func(s *Submission) { s.Main[0].Count = 4 },
			wantRule: RuleEntryCount,
			wantMsg:  "between 1 and 3, got 4",
		},
		{
			name:     "extra count zero",
			mutate:   func(s *Submission) { s.Extra[1].Count = 0 },
			wantRule: RuleEntryCount,
		},
		{
			name:     "non positive id",
			mutate:   func(s *Submission) { s.Main[2].ID = 0 },
			wantRule: RuleEntryID,
			wantMsg:  "positive integer",
		},
		{
			name: "too many main entries",
			mutate: func(s *Submission) {
				s.Main = entries(1000, 61, 1)
			},
			wantRule: RuleMainEntries,
		},
		{
			name:     "main deck 35 copies",
			mutate:   func(s *Submission) { s.Main = append(entries(1000, 17, 2), Entry{ID: 9, Count: 1}); s.Extra = nil },
			wantRule: RuleMainSize,
			wantMsg:  "between 40 and 60, got 35",
		},
		{
			name:     "main deck 61 copies",
			mutate:   func(s *Submission) { s.Main = append(entries(1000, 20, 3), Entry{ID: 9, Count: 1}) },
			wantRule: RuleMainSize,
			wantMsg:  "too many cards: must be between 40 and 60, got 61",
		},
		{
			name:     "extra deck 16 distinct entries",
			mutate:   func(s *Submission) { s.Extra = entries(5000, 16, 1) },
			wantRule: RuleExtraEntries,
			wantMsg:  "extra deck cannot exceed 15",
		},
		{
			name:     "extra deck 16 copies",
			mutate:   func(s *Submission) { s.Extra = append(entries(5000, 5, 3), Entry{ID: 9, Count: 1}) },
			wantRule: RuleExtraSize,
			wantMsg:  "extra deck cannot exceed 15 cards, got 16",
		},
		{
			name:   "boundaries are inclusive",
			mutate: func(s *Submission) { s.Main = entries(1000, 20, 3); s.Extra = entries(5000, 5, 3) },
		},
		{
			name:   "empty extra deck",
			mutate: func(s *Submission) { s.Extra = nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)

			err := Validate(sub)
			if tt.wantRule == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDeck))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantRule, verr.FirstRule())
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidate_AggregatesEntryViolations(t *testing.T) {
	sub := validSubmission()
	sub.Main[1].Count = 9
	sub.Main[4].ID = -1
	sub.Extra[0].Count = 0

	err := Validate(sub)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Violations, 3)
	assert.Equal(t, "mainDeck[1].count", verr.Violations[0].Field)
	assert.Equal(t, "mainDeck[4].id", verr.Violations[1].Field)
	assert.Equal(t, "extraDeck[0].count", verr.Violations[2].Field)
}

func TestValidate_NameCheckStopsBeforeEntries(t *testing.T) {
	sub := validSubmission()
	sub.Name = "x"
	sub.Main[0].Count = 7

	var verr *ValidationError
	require.True(t, errors.As(Validate(sub), &verr))
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, RuleNameLength, verr.Violations[0].Rule)
}

func TestValidate_Idempotent(t *testing.T) {
	sub := validSubmission()
	sub.Main = entries(1000, 10, 3)

	first := Validate(sub)
	second := Validate(sub)

	require.Error(t, first)
	assert.Equal(t, first.Error(), second.Error())
}

func TestValidate_MainSizeProperty(t *testing.T) {
	for total := 0; total <= 70; total++ {
		sub := Submission{Name: "Property"}
		for remaining, id := total, 1; remaining > 0; id++ {
			n := min(remaining, MaxCopies)
			sub.Main = append(sub.Main, Entry{ID: id, Count: n})
			remaining -= n
		}

		err := Validate(sub)
		if total >= MainMin && total <= MainMax {
			assert.NoError(t, err, "total=%d", total)
		} else {
			assert.Error(t, err, "total=%d", total)
		}
	}
}

func TestCopyLimit(t *testing.T) {
	assert.Equal(t, 3, CopyLimit(Unlimited, false))
	assert.Equal(t, 2, CopyLimit(SemiLimited, false))
	assert.Equal(t, 1, CopyLimit(Limited, false))
	assert.Equal(t, 0, CopyLimit(Forbidden, false))
	assert.Equal(t, 3, CopyLimit(Forbidden, true))
	assert.Equal(t, 1, CopyLimit(Limited, true))
}

func TestParseBanStatus(t *testing.T) {
	assert.Equal(t, Forbidden, ParseBanStatus("Banned"))
	assert.Equal(t, Forbidden, ParseBanStatus("Forbidden"))
	assert.Equal(t, SemiLimited, ParseBanStatus("Semi-Limited"))
	assert.Equal(t, Limited, ParseBanStatus(" limited "))
	assert.Equal(t, Unlimited, ParseBanStatus(""))
	assert.Equal(t, Unlimited, ParseBanStatus("something new"))
}

func TestSectionFor(t *testing.T) {
	extra := []string{"Fusion Monster", "Synchro Monster", "XYZ Monster", "Link Monster", "Synchro Tuner Monster", "XYZ Pendulum Effect Monster"}
	for _, typ := range extra {
		assert.Equal(t, Extra, SectionFor(typ), typ)
	}
	main := []string{"Normal Monster", "Effect Monster", "Ritual Monster", "Spell Card", "Trap Card", "Pendulum Effect Monster", ""}
	for _, typ := range main {
		assert.Equal(t, Main, SectionFor(typ), typ)
	}
}

func TestSectionCap(t *testing.T) {
	assert.Equal(t, 60, Main.Cap())
	assert.Equal(t, 15, Extra.Cap())
}
