// Package debounce suppresses rapid duplicate submissions of the same
// (company, url) key. It is a best-effort in-memory guard, not a delivery
// guarantee: it does not survive restarts and does not coordinate across
// processes.
package debounce

import (
	"strings"
	"sync"
	"time"
)

// DefaultWindow is the suppression window.
const DefaultWindow = 5 * time.Second

// Ledger tracks last-submission times per key.
type Ledger struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

// New creates a ledger with the given window; window <= 0 uses DefaultWindow.
func New(window time.Duration) *Ledger {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Ledger{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Key builds the ledger key for a company/url pair.
func Key(name, url string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(url))
}

// ShouldSubmit reports whether a submission for key may proceed. When it
// returns true the key's timestamp is recorded immediately, before the caller
// issues the network request, so overlapping rapid-fire events collapse too.
func (l *Ledger) ShouldSubmit(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.seen[key]; ok && now.Sub(last) < l.window {
		return false
	}

	l.seen[key] = now
	l.evictStale(now)
	return true
}

// evictStale drops entries old enough to be irrelevant. Caller holds the
// lock. The source ledger grows without bound over a long session; eviction
// at a generous multiple of the window keeps memory flat without changing
// behavior inside the window.
func (l *Ledger) evictStale(now time.Time) {
	cutoff := now.Add(-10 * l.window)
	for key, last := range l.seen {
		if last.Before(cutoff) {
			delete(l.seen, key)
		}
	}
}
