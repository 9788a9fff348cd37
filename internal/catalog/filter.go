package catalog

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	// PageSize is the number of cards requested per page.
	PageSize = 100
	// MinNameLen is the shortest name term sent upstream.
	MinNameLen = 3
	maxLevel   = 13
)

// SortOrder for stat tokens.
type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// StatFilter is a parsed atk/def token: a sort direction, a minimum, or neither.
type StatFilter struct {
	Sort SortOrder
	Min  *int
}

// Active reports whether the token filters or sorts.
func (s StatFilter) Active() bool {
	return s.Sort != SortNone || s.Min != nil
}

// ParseStatToken accepts "asc", "desc", a non-negative integer, or empty.
func ParseStatToken(field, token string) (StatFilter, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	switch token {
	case "":
		return StatFilter{}, nil
	case string(SortAsc):
		return StatFilter{Sort: SortAsc}, nil
	case string(SortDesc):
		return StatFilter{Sort: SortDesc}, nil
	}
	n, err := strconv.Atoi(token)
	if err != nil || n < 0 {
		return StatFilter{}, fmt.Errorf("%w: %s must be asc, desc or a non-negative integer, got %q", ErrInvalidFilter, field, token)
	}
	return StatFilter{Min: &n}, nil
}

// Filter is a structured card search request.
type Filter struct {
	Name      string
	Type      string
	Attribute string
	Race      string
	Level     string
	Atk       string
	Def       string
	Page      int
	// Offset and Num override Page when Num is positive.
	Offset int
	Num    int
	IDs    []int
}

// Query is a validated Filter ready to be sent upstream.
type Query struct {
	Name      string
	Type      string
	Attribute string
	Race      string
	Level     *int
	Atk       StatFilter
	Def       StatFilter
	Offset    int
	Num       int
	IDs       []int
}

// Normalize validates the filter and resolves pagination. A name shorter
// than MinNameLen is dropped rather than rejected.
func (f Filter) Normalize() (Query, error) {
	q := Query{
		Type:      strings.TrimSpace(f.Type),
		Attribute: strings.TrimSpace(f.Attribute),
		Race:      strings.TrimSpace(f.Race),
	}

	if name := strings.TrimSpace(f.Name); len([]rune(name)) >= MinNameLen {
		q.Name = name
	}

	if lvl := strings.TrimSpace(f.Level); lvl != "" {
		n, err := strconv.Atoi(lvl)
		if err != nil || n < 0 || n > maxLevel {
			return Query{}, fmt.Errorf("%w: level must be an integer between 0 and %d, got %q", ErrInvalidFilter, maxLevel, f.Level)
		}
		q.Level = &n
	}

	var err error
	if q.Atk, err = ParseStatToken("atk", f.Atk); err != nil {
		return Query{}, err
	}
	if q.Def, err = ParseStatToken("def", f.Def); err != nil {
		return Query{}, err
	}

	if f.Page < 0 || f.Offset < 0 {
		return Query{}, fmt.Errorf("%w: page and offset must not be negative", ErrInvalidFilter)
	}
	q.Num = PageSize
	q.Offset = f.Page * PageSize
	if f.Num > 0 {
		q.Num = min(f.Num, PageSize)
		q.Offset = f.Offset
	}

	for _, id := range f.IDs {
		if id <= 0 {
			return Query{}, fmt.Errorf("%w: card id must be a positive integer, got %d", ErrInvalidFilter, id)
		}
	}
	q.IDs = append([]int(nil), f.IDs...)

	return q, nil
}

// Values renders the upstream query string parameters. Sort tokens are
// applied locally and never sent.
func (q Query) Values() url.Values {
	v := url.Values{}
	if len(q.IDs) > 0 {
		v.Set("id", joinInts(q.IDs))
		return v
	}
	if q.Name != "" {
		v.Set("fname", q.Name)
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.Attribute != "" {
		v.Set("attribute", q.Attribute)
	}
	if q.Race != "" {
		v.Set("race", q.Race)
	}
	if q.Level != nil {
		v.Set("level", strconv.Itoa(*q.Level))
	}
	if q.Atk.Min != nil {
		v.Set("atk", "gte"+strconv.Itoa(*q.Atk.Min))
	}
	if q.Def.Min != nil {
		v.Set("def", "gte"+strconv.Itoa(*q.Def.Min))
	}
	v.Set("num", strconv.Itoa(q.Num))
	v.Set("offset", strconv.Itoa(q.Offset))
	return v
}

// Key is a stable cache key covering everything that changes the result.
func (q Query) Key() string {
	v := q.Values()
	if q.Atk.Sort != SortNone {
		v.Set("sort_atk", string(q.Atk.Sort))
	}
	if q.Def.Sort != SortNone {
		v.Set("sort_def", string(q.Def.Sort))
	}
	return v.Encode()
}

// Apply sorts cards by the requested stat tokens. Atk ordering takes
// precedence over def; cards lacking the stat sort last.
func (q Query) Apply(cards []Card) []Card {
	if q.Def.Sort != SortNone {
		sortByStat(cards, func(c Card) *int { return c.Def }, q.Def.Sort)
	}
	if q.Atk.Sort != SortNone {
		sortByStat(cards, func(c Card) *int { return c.Atk }, q.Atk.Sort)
	}
	return cards
}

func sortByStat(cards []Card, stat func(Card) *int, order SortOrder) {
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := stat(cards[i]), stat(cards[j])
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case order == SortDesc:
			return *a > *b
		default:
			return *a < *b
		}
	})
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
