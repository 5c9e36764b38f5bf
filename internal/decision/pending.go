package decision

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type promptOutcome int

const (
	outcomeOption promptOutcome = iota
	outcomeDefault
	outcomeTimeout
)

type resolution struct {
	outcome promptOutcome
	option  int
}

// Tracker correlates outstanding prompts with their eventual resolution.
// Each prompt resolves exactly once: the first of user choice, explicit
// default, timeout, or cancellation wins and every later path is a no-op.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]*pendingPrompt
}

type pendingPrompt struct {
	ch    chan resolution
	timer *time.Timer
}

// NewTracker creates an empty prompt tracker.
func NewTracker() *Tracker {
	return &Tracker{pending: make(map[string]*pendingPrompt)}
}

// Create registers a new prompt under a fresh token and arms its timeout.
// The returned channel receives exactly one resolution.
func (t *Tracker) Create(timeout time.Duration) (string, <-chan resolution) {
	token := uuid.NewString()
	entry := &pendingPrompt{ch: make(chan resolution, 1)}

	t.mu.Lock()
	t.pending[token] = entry
	if timeout > 0 {
		entry.timer = time.AfterFunc(timeout, func() {
			t.resolve(token, resolution{outcome: outcomeTimeout})
		})
	}
	t.mu.Unlock()

	return token, entry.ch
}

// Choose resolves a prompt with the selected option index. It reports
// whether the token was still pending.
func (t *Tracker) Choose(token string, option int) bool {
	if option < 0 {
		return false
	}
	return t.resolve(token, resolution{outcome: outcomeOption, option: option})
}

// Default resolves a prompt with the browser-default outcome.
func (t *Tracker) Default(token string) bool {
	return t.resolve(token, resolution{outcome: outcomeDefault})
}

// Cancel removes a prompt without delivering a resolution. Used when the
// prompt could not be surfaced or the caller went away.
func (t *Tracker) Cancel(token string) {
	t.mu.Lock()
	entry, ok := t.pending[token]
	delete(t.pending, token)
	t.mu.Unlock()
	if ok && entry.timer != nil {
		entry.timer.Stop()
	}
}

// Pending returns the number of unresolved prompts.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Tracker) resolve(token string, r resolution) bool {
	t.mu.Lock()
	entry, ok := t.pending[token]
	if ok {
		delete(t.pending, token)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.ch <- r
	return true
}
