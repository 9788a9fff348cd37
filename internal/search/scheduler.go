package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"ygodeck/internal/logging"
)

// Scheduler defaults.
const (
	DefaultNameDelay    = 600 * time.Millisecond
	DefaultFilterDelay  = 200 * time.Millisecond
	DefaultDedupeWindow = 5 * time.Second
)

// StaleNotice accompanies results served from an expired cache entry after
// a failed fetch.
const StaleNotice = "using cached results"

// Result is what the scheduler hands to the display.
type Result struct {
	Query     Query
	Cards     []Card
	FromCache bool
	// Notice is a soft warning shown alongside the cards.
	Notice string
	// Failure is set when nothing could be shown.
	Failure *Failure
}

// Options tunes a Scheduler. Zero values take the defaults.
type Options struct {
	Clock        clockwork.Clock
	Cache        *Cache
	NameDelay    time.Duration
	FilterDelay  time.Duration
	DedupeWindow time.Duration
	Logger       *logging.Logger
}

// Scheduler turns a stream of query edits into catalog fetches. Edits are
// debounced; a query is fetched only when it is eligible, has no fresh cache
// entry and was not issued within the dedupe window. Failed fetches are not
// remembered as issued. A new fetch cancels the
// one in flight and results from superseded fetches are dropped.
//
// Results are delivered through the callback, one at a time, from the
// scheduler's own goroutines.
type Scheduler struct {
	fetcher Fetcher
	deliver func(Result)
	cache   *Cache
	clock   clockwork.Clock
	logger  *logging.Logger

	nameDelay    time.Duration
	filterDelay  time.Duration
	dedupeWindow time.Duration

	mu        sync.Mutex
	deliverMu sync.Mutex
	closed    bool
	timer     clockwork.Timer
	lastName  string
	seq       uint64
	issued    map[string]time.Time
	gen       uint64
	cancel    context.CancelFunc
	flightKey string
	flightAt  time.Time
	wg        sync.WaitGroup
	baseCtx   context.Context
	stopAll   context.CancelFunc
}

// NewScheduler builds a Scheduler that fetches with fetcher and reports to
// deliver.
func NewScheduler(fetcher Fetcher, deliver func(Result), opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Cache == nil {
		opts.Cache = NewCache(CacheConfig{Clock: opts.Clock})
	}
	if opts.NameDelay <= 0 {
		opts.NameDelay = DefaultNameDelay
	}
	if opts.FilterDelay <= 0 {
		opts.FilterDelay = DefaultFilterDelay
	}
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = DefaultDedupeWindow
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		fetcher:      fetcher,
		deliver:      deliver,
		cache:        opts.Cache,
		clock:        opts.Clock,
		logger:       opts.Logger.With("component", "search"),
		nameDelay:    opts.NameDelay,
		filterDelay:  opts.FilterDelay,
		dedupeWindow: opts.DedupeWindow,
		issued:       make(map[string]time.Time),
		baseCtx:      ctx,
		stopAll:      cancel,
	}
}

// Update records the latest query and schedules a fetch after the debounce
// delay, replacing any fetch still waiting on its delay.
func (s *Scheduler) Update(q Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	delay := s.filterDelay
	name := q.trimmed().Name
	if name != "" && name != s.lastName && !q.HasFilters() {
		delay = s.nameDelay
	}
	s.lastName = name

	s.stopTimer()
	s.seq++
	seq := s.seq
	s.wg.Add(1)
	s.timer = s.clock.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.fire(seq, q)
	})
}

// stopTimer cancels the pending debounce timer. A timer stopped before it
// fired never runs its callback, so its wait group slot is released here.
// The caller holds s.mu.
func (s *Scheduler) stopTimer() {
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.timer = nil
}

// Close stops pending timers, cancels the fetch in flight and waits for
// scheduler goroutines to return. No results are delivered afterwards.
// Close must not be called from the deliver callback.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimer()
	s.stopAll()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) fire(seq uint64, q Query) {
	s.mu.Lock()
	// A timer that fired while Update was replacing it lost the race.
	if s.closed || seq != s.seq || !q.Eligible() {
		s.mu.Unlock()
		return
	}
	key := q.Key()
	s.forgetIssued()

	if cards, ok := s.cache.Get(key); ok {
		gen := s.supersede()
		s.mu.Unlock()
		s.logger.Debug("search served from cache", "key", key)
		s.emit(gen, Result{Query: q, Cards: cards, FromCache: true})
		return
	}

	if at, ok := s.issued[key]; ok && s.clock.Since(at) < s.dedupeWindow {
		s.mu.Unlock()
		s.logger.Debug("search suppressed as duplicate", "key", key)
		return
	}

	gen := s.supersede()
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.cancel = cancel
	issuedAt := s.clock.Now()
	s.issued[key] = issuedAt
	s.flightKey, s.flightAt = key, issuedAt
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(ctx, gen, q, key, issuedAt)
	}()
}

// forgetIssued drops issue records older than the dedupe window. The caller
// holds s.mu.
func (s *Scheduler) forgetIssued() {
	for k, at := range s.issued {
		if s.clock.Since(at) >= s.dedupeWindow {
			delete(s.issued, k)
		}
	}
}

// supersede cancels the fetch in flight and starts a new generation. A
// cancelled fetch never completed, so its issue record is dropped and an
// identical query may go out again straight away. The caller holds s.mu.
func (s *Scheduler) supersede() uint64 {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		if s.issued[s.flightKey] == s.flightAt {
			delete(s.issued, s.flightKey)
		}
	}
	s.gen++
	return s.gen
}

func (s *Scheduler) run(ctx context.Context, gen uint64, q Query, key string, issuedAt time.Time) {
	cards, err := s.fetcher.Fetch(ctx, q)

	s.mu.Lock()
	if gen == s.gen {
		s.cancel = nil
	}
	s.mu.Unlock()

	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}

	if err == nil {
		if cards == nil {
			cards = []Card{}
		}
		s.cache.Put(key, cards)
		s.emit(gen, Result{Query: q, Cards: cards})
		return
	}

	// A failed fetch does not count as issued, so entering the query again
	// retries it.
	s.mu.Lock()
	if s.issued[key] == issuedAt {
		delete(s.issued, key)
	}
	s.mu.Unlock()

	failure := Categorize(err)
	if stale, ok := s.cache.Stale(key); ok {
		s.logger.Warn("search failed, serving stale cache", "key", key, "error", err)
		s.emit(gen, Result{Query: q, Cards: stale, FromCache: true, Notice: StaleNotice})
		return
	}
	s.logger.Warn("search failed", "key", key, "category", failure.Category, "error", err)
	s.emit(gen, Result{Query: q, Cards: []Card{}, Failure: failure})
}

// emit delivers r unless a newer generation has started or the scheduler is
// closed.
func (s *Scheduler) emit(gen uint64, r Result) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	current := !s.closed && gen == s.gen
	s.mu.Unlock()
	if current && s.deliver != nil {
		s.deliver(r)
	}
}
