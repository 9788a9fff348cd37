package search

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"ygodeck/internal/catalog"
)

// Card is a catalog card as shown in search results.
type Card = catalog.Card

// Fetcher retrieves one page of cards for a query. Implementations must
// return promptly once ctx is cancelled.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) ([]Card, error)
}

// SearchFunc runs a catalog search, such as catalog.Client.SearchEnriched.
type SearchFunc func(ctx context.Context, f catalog.Filter) ([]Card, error)

// CatalogFetcher adapts a catalog search function to Fetcher.
type CatalogFetcher struct {
	Search SearchFunc
}

// Fetch implements Fetcher.
func (f CatalogFetcher) Fetch(ctx context.Context, q Query) ([]Card, error) {
	return f.Search(ctx, q.Filter())
}

// Category groups fetch failures by what the user can do about them.
type Category string

const (
	CategoryNotFound     Category = "not_found"
	CategoryServer       Category = "server"
	CategoryConnectivity Category = "connectivity"
)

// Failure is a categorized fetch error with a display message.
type Failure struct {
	Category Category
	Message  string
	Err      error
}

func (f *Failure) Error() string { return f.Message }
func (f *Failure) Unwrap() error { return f.Err }

// StatusError is a non-2xx HTTP response reported by a Fetcher.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// ErrNotFound may be returned by a Fetcher when the source reports that
// nothing matched.
var ErrNotFound = errors.New("no cards found")

// Categorize classifies a fetch error.
func Categorize(err error) *Failure {
	var (
		status *StatusError
		netErr net.Error
	)
	switch {
	case errors.Is(err, ErrNotFound):
		return &Failure{Category: CategoryNotFound, Message: "No cards match this search.", Err: err}
	case errors.As(err, &status) && status.Code == http.StatusNotFound:
		return &Failure{Category: CategoryNotFound, Message: "No cards match this search.", Err: err}
	case errors.Is(err, catalog.ErrInvalidFilter):
		return &Failure{Category: CategoryNotFound, Message: "The search filters are not valid.", Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return &Failure{Category: CategoryConnectivity, Message: "Could not reach the card database. Check your connection.", Err: err}
	default:
		return &Failure{Category: CategoryServer, Message: "The card database is having trouble. Try again shortly.", Err: err}
	}
}
