package search

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ygodeck/internal/catalog"
	"ygodeck/internal/logging"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []Query
	started chan Query
	fn      func(ctx context.Context, q Query) ([]Card, error)
}

func newFakeFetcher(fn func(ctx context.Context, q Query) ([]Card, error)) *fakeFetcher {
	return &fakeFetcher{started: make(chan Query, 16), fn: fn}
}

func (f *fakeFetcher) Fetch(ctx context.Context, q Query) ([]Card, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()
	f.started <- q
	return f.fn(ctx, q)
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type harness struct {
	clock   *clockwork.FakeClock
	fetcher *fakeFetcher
	results chan Result
	sched   *Scheduler
}

func newHarness(t *testing.T, fn func(ctx context.Context, q Query) ([]Card, error)) *harness {
	t.Helper()
	h := &harness{
		clock:   clockwork.NewFakeClock(),
		fetcher: newFakeFetcher(fn),
		results: make(chan Result, 16),
	}
	h.sched = NewScheduler(h.fetcher, func(r Result) { h.results <- r }, Options{
		Clock:  h.clock,
		Logger: logging.NewNop(),
	})
	t.Cleanup(h.sched.Close)
	return h
}

func (h *harness) next(t *testing.T) Result {
	t.Helper()
	select {
	case r := <-h.results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
		return Result{}
	}
}

func (h *harness) waitStarted(t *testing.T) Query {
	t.Helper()
	select {
	case q := <-h.fetcher.started:
		return q
	case <-time.After(2 * time.Second):
		t.Fatal("fetch not started")
		return Query{}
	}
}

func (h *harness) assertQuiet(t *testing.T) {
	t.Helper()
	select {
	case r := <-h.results:
		t.Fatalf("unexpected result for %+v", r.Query)
	case <-time.After(50 * time.Millisecond):
	}
}

func echoName(_ context.Context, q Query) ([]Card, error) {
	return []Card{{ID: 1, Name: q.Name}}, nil
}

func TestScheduler_NameDebounce(t *testing.T) {
	h := newHarness(t, echoName)

	h.sched.Update(Query{Name: "Blue"})
	h.clock.Advance(DefaultNameDelay - time.Millisecond)
	assert.Equal(t, 0, h.fetcher.count())

	h.clock.Advance(time.Millisecond)
	r := h.next(t)

	assert.Equal(t, "Blue", r.Cards[0].Name)
	assert.False(t, r.FromCache)
	assert.Equal(t, 1, h.fetcher.count())
}

func TestScheduler_FilterDebounceIsShorter(t *testing.T) {
	h := newHarness(t, echoName)

	h.sched.Update(Query{Name: "Blue", Type: "Normal Monster"})
	h.clock.Advance(DefaultFilterDelay)

	r := h.next(t)
	assert.Equal(t, "Normal Monster", r.Query.Type)
}

func TestScheduler_TypingCollapsesToLastQuery(t *testing.T) {
	h := newHarness(t, echoName)

	for _, name := range []string{"B", "Bl", "Blu", "Blue"} {
		h.sched.Update(Query{Name: name})
		h.clock.Advance(100 * time.Millisecond)
	}
	h.clock.Advance(DefaultNameDelay)

	r := h.next(t)
	assert.Equal(t, "Blue", r.Query.Name)
	h.assertQuiet(t)
	assert.Equal(t, 1, h.fetcher.count())
}

func TestScheduler_IneligibleQueryNotIssued(t *testing.T) {
	h := newHarness(t, echoName)

	h.sched.Update(Query{Name: "Bl"})
	h.clock.Advance(time.Second)

	h.assertQuiet(t)
	assert.Equal(t, 0, h.fetcher.count())
}

func TestScheduler_DuplicateWithinWindowSuppressed(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(ctx context.Context, q Query) ([]Card, error) {
		<-release
		return echoName(ctx, q)
	})
	q := Query{Name: "Jinzo"}

	h.sched.Update(q)
	h.clock.Advance(DefaultNameDelay)
	h.waitStarted(t)

	// Edit away and back before the other query's debounce fires.
	h.sched.Update(Query{Name: "Jinzo", Type: "Effect Monster"})
	h.clock.Advance(DefaultFilterDelay / 2)
	h.sched.Update(q)
	h.clock.Advance(DefaultFilterDelay)

	close(release)
	r := h.next(t)
	assert.Equal(t, "Jinzo", r.Query.Name)
	h.assertQuiet(t)
	assert.Equal(t, 1, h.fetcher.count())
}

func TestScheduler_FailedQueryCanBeRetried(t *testing.T) {
	var alphaCalls atomic.Int32
	h := newHarness(t, func(ctx context.Context, q Query) ([]Card, error) {
		if q.Name == "Alpha" && alphaCalls.Add(1) == 1 {
			return nil, catalog.ErrUpstreamUnavailable
		}
		return echoName(ctx, q)
	})

	h.sched.Update(Query{Name: "Alpha"})
	h.clock.Advance(DefaultNameDelay)
	r := h.next(t)
	require.NotNil(t, r.Failure)

	h.sched.Update(Query{Name: "Bravo"})
	h.clock.Advance(DefaultNameDelay)
	r = h.next(t)
	assert.Equal(t, "Bravo", r.Query.Name)

	h.sched.Update(Query{Name: "Alpha"})
	h.clock.Advance(DefaultNameDelay)
	r = h.next(t)

	assert.Equal(t, "Alpha", r.Query.Name)
	assert.Nil(t, r.Failure)
	require.Len(t, r.Cards, 1)
	assert.Equal(t, 3, h.fetcher.count())
}

func TestScheduler_FreshCacheServesWithoutFetch(t *testing.T) {
	h := newHarness(t, echoName)
	q := Query{Name: "Kuriboh"}

	h.sched.Update(q)
	h.clock.Advance(DefaultNameDelay)
	h.next(t)

	h.clock.Advance(DefaultDedupeWindow + time.Second)
	h.sched.Update(Query{Name: " Kuriboh "})
	h.clock.Advance(DefaultNameDelay)
	r := h.next(t)

	assert.True(t, r.FromCache)
	assert.Equal(t, "Kuriboh", r.Cards[0].Name)
	assert.Equal(t, 1, h.fetcher.count())
}

func TestScheduler_NewFetchCancelsInFlight(t *testing.T) {
	cancelled := make(chan Query, 1)
	h := newHarness(t, func(ctx context.Context, q Query) ([]Card, error) {
		if q.Name == "Slow" {
			<-ctx.Done()
			cancelled <- q
			return []Card{{ID: 99, Name: "late"}}, ctx.Err()
		}
		return echoName(ctx, q)
	})

	h.sched.Update(Query{Name: "Slow"})
	h.clock.Advance(DefaultNameDelay)
	h.waitStarted(t)

	h.sched.Update(Query{Name: "Fast"})
	h.clock.Advance(DefaultNameDelay)

	r := h.next(t)
	assert.Equal(t, "Fast", r.Query.Name)
	select {
	case q := <-cancelled:
		assert.Equal(t, "Slow", q.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight fetch was not cancelled")
	}
	h.assertQuiet(t)
}

func TestScheduler_CancelledQueryCanBeReissued(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, q Query) ([]Card, error) {
		if q.Name == "Slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return echoName(ctx, q)
	})

	h.sched.Update(Query{Name: "Slow"})
	h.clock.Advance(DefaultNameDelay)
	h.waitStarted(t)
	h.sched.Update(Query{Name: "Other"})
	h.clock.Advance(DefaultNameDelay)
	h.next(t)

	h.fetcher.fn = echoName
	h.sched.Update(Query{Name: "Slow"})
	h.clock.Advance(DefaultNameDelay)

	require.Eventually(t, func() bool { return h.fetcher.count() == 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_StaleCacheOnFailure(t *testing.T) {
	var fail bool
	var mu sync.Mutex
	h := newHarness(t, func(ctx context.Context, q Query) ([]Card, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return echoName(ctx, q)
	})
	q := Query{Name: "Exodia"}

	h.sched.Update(q)
	h.clock.Advance(DefaultNameDelay)
	h.next(t)

	mu.Lock()
	fail = true
	mu.Unlock()
	h.clock.Advance(DefaultTTL)
	h.sched.Update(Query{Name: "Exodia", Page: 0})
	h.clock.Advance(DefaultFilterDelay)
	r := h.next(t)

	assert.Equal(t, StaleNotice, r.Notice)
	assert.True(t, r.FromCache)
	assert.Nil(t, r.Failure)
	assert.Equal(t, "Exodia", r.Cards[0].Name)
}

func TestScheduler_CloseStopsPendingWork(t *testing.T) {
	h := newHarness(t, echoName)

	h.sched.Update(Query{Name: "Pending"})
	h.sched.Close()
	h.clock.Advance(time.Second)

	h.assertQuiet(t)
	assert.Equal(t, 0, h.fetcher.count())
	h.sched.Update(Query{Name: "After close"})
	h.clock.Advance(time.Second)
	assert.Equal(t, 0, h.fetcher.count())
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{name: "not found sentinel", err: fmt.Errorf("lookup: %w", ErrNotFound), want: CategoryNotFound},
		{name: "http 404", err: &StatusError{Code: 404}, want: CategoryNotFound},
		{name: "http 502", err: &StatusError{Code: 502}, want: CategoryServer},
		{name: "upstream unavailable", err: catalog.ErrUpstreamUnavailable, want: CategoryServer},
		{name: "timeout", err: context.DeadlineExceeded, want: CategoryConnectivity},
		{name: "dial failure", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: CategoryConnectivity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Categorize(tt.err)
			assert.Equal(t, tt.want, f.Category)
			assert.NotEmpty(t, f.Message)
			assert.ErrorIs(t, f, tt.err)
		})
	}
}
