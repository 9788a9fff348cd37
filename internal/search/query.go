// Package search schedules card catalog lookups for an interactive client:
// debounced, de-duplicated, cached and cancellable.
package search

import (
	"net/url"
	"strconv"
	"strings"

	"ygodeck/internal/catalog"
)

// Query is the set of search inputs a user edits.
type Query struct {
	Name      string
	Type      string
	Attribute string
	Race      string
	Level     string
	Atk       string
	Def       string
	Page      int
}

func (q Query) trimmed() Query {
	return Query{
		Name:      strings.TrimSpace(q.Name),
		Type:      strings.TrimSpace(q.Type),
		Attribute: strings.TrimSpace(q.Attribute),
		Race:      strings.TrimSpace(q.Race),
		Level:     strings.TrimSpace(q.Level),
		Atk:       strings.ToLower(strings.TrimSpace(q.Atk)),
		Def:       strings.ToLower(strings.TrimSpace(q.Def)),
		Page:      max(q.Page, 0),
	}
}

// HasFilters reports whether any field other than the name is set.
func (q Query) HasFilters() bool {
	t := q.trimmed()
	return t.Type != "" || t.Attribute != "" || t.Race != "" || t.Level != "" || t.Atk != "" || t.Def != ""
}

// Eligible reports whether the query is worth sending: an empty name, a name
// of at least catalog.MinNameLen characters, or any other filter.
func (q Query) Eligible() bool {
	name := strings.TrimSpace(q.Name)
	return name == "" || len([]rune(name)) >= catalog.MinNameLen || q.HasFilters()
}

// Key identifies the query for caching and de-duplication. Whitespace
// differences do not change it.
func (q Query) Key() string {
	t := q.trimmed()
	v := url.Values{}
	v.Set("name", t.Name)
	v.Set("type", t.Type)
	v.Set("attribute", t.Attribute)
	v.Set("race", t.Race)
	v.Set("level", t.Level)
	v.Set("atk", t.Atk)
	v.Set("def", t.Def)
	v.Set("page", strconv.Itoa(t.Page))
	return v.Encode()
}

// Filter converts the query for the catalog client.
func (q Query) Filter() catalog.Filter {
	t := q.trimmed()
	return catalog.Filter{
		Name:      t.Name,
		Type:      t.Type,
		Attribute: t.Attribute,
		Race:      t.Race,
		Level:     t.Level,
		Atk:       t.Atk,
		Def:       t.Def,
		Page:      t.Page,
	}
}
