package catalog

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var errCircuitOpen = errors.New("circuit breaker is open")

type circuitState string

const (
	circuitClosed   circuitState = "closed"
	circuitOpen     circuitState = "open"
	circuitHalfOpen circuitState = "half_open"
)

// BreakerConfig tunes the upstream circuit breaker.
type BreakerConfig struct {
	Disabled         bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

func (c BreakerConfig) normalized() BreakerConfig {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 15 * time.Second
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = 1
	}
	return c
}

// breaker opens after consecutive failures and lets a limited number of
// probes through once the open timeout elapses.
type breaker struct {
	mu    sync.Mutex
	cfg   BreakerConfig
	clock clockwork.Clock

	state            circuitState
	failures         int
	openedAt         time.Time
	halfOpenInFlight int
	halfOpenOK       int
}

func newBreaker(cfg BreakerConfig, clock clockwork.Clock) *breaker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &breaker{cfg: cfg.normalized(), clock: clock, state: circuitClosed}
}

func (b *breaker) allow() error {
	if b.cfg.Disabled {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == circuitOpen {
		if b.clock.Since(b.openedAt) < b.cfg.OpenTimeout {
			return errCircuitOpen
		}
		b.state = circuitHalfOpen
		b.halfOpenInFlight = 0
		b.halfOpenOK = 0
	}
	if b.state == circuitHalfOpen {
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxReq {
			return errCircuitOpen
		}
		b.halfOpenInFlight++
	}
	return nil
}

func (b *breaker) success() {
	if b.cfg.Disabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case circuitClosed:
		b.failures = 0
	case circuitHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.halfOpenOK++
		if b.halfOpenOK >= b.cfg.HalfOpenMaxReq && b.halfOpenInFlight == 0 {
			b.state = circuitClosed
			b.failures = 0
		}
	}
}

func (b *breaker) failure() {
	if b.cfg.Disabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case circuitClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.open()
		}
	case circuitHalfOpen:
		b.open()
	case circuitOpen:
		b.openedAt = b.clock.Now()
	}
}

func (b *breaker) open() {
	b.state = circuitOpen
	b.openedAt = b.clock.Now()
	b.halfOpenInFlight = 0
	b.halfOpenOK = 0
}

func (b *breaker) current() circuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
