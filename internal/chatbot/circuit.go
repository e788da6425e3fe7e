package chatbot

import (
	"errors"
	"sync"
	"time"
)

// ErrModelUnavailable is returned while the breaker is rejecting calls
// after repeated model failures.
var ErrModelUnavailable = errors.New("model backend unavailable, backing off")

type breakerState string

const (
	breakerClosed  breakerState = "closed"
	breakerOpen    breakerState = "open"
	breakerProbing breakerState = "half-open"
)

const (
	breakerFailureLimit = 5
	breakerSuccessLimit = 2
	breakerCooldown     = 30 * time.Second
)

// breaker sheds load from the model backend after repeated failures
// instead of hammering it. Closed passes everything through; after
// breakerFailureLimit consecutive failures it opens and rejects calls
// for breakerCooldown, then lets probe calls through until
// breakerSuccessLimit of them succeed in a row.
type breaker struct {
	mu        sync.Mutex
	state     breakerState
	failures  int
	successes int
	openedAt  time.Time
}

func newBreaker() *breaker {
	return &breaker{state: breakerClosed}
}

// allow reports whether a model call may proceed right now.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerOpen {
		if time.Since(b.openedAt) <= breakerCooldown {
			return ErrModelUnavailable
		}
		b.state = breakerProbing
		b.successes = 0
	}
	return nil
}

// record feeds the outcome of a model call back into the breaker.
func (b *breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ok {
		switch b.state {
		case breakerProbing:
			b.successes++
			if b.successes >= breakerSuccessLimit {
				b.state = breakerClosed
				b.failures = 0
				b.successes = 0
			}
		case breakerClosed:
			b.failures = 0
		}
		return
	}

	b.failures++
	b.openedAt = time.Now()
	switch b.state {
	case breakerClosed:
		if b.failures >= breakerFailureLimit {
			b.state = breakerOpen
		}
	case breakerProbing:
		b.state = breakerOpen
		b.successes = 0
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
