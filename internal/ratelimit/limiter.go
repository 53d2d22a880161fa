// Package ratelimit implements per-identity admission control with a
// fixed window policy. It is a best-effort, single-process guard; there is
// no cross-process coordination.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultWindow       = 2000 * time.Millisecond
	DefaultMaxPerWindow = 1

	sweepInterval = time.Minute
	// Identities idle for idleFactor windows are dropped by the sweeper.
	idleFactor = 10
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // set only when denied
}

type identityState struct {
	windowStart time.Time
	count       int
	lastSeen    time.Time
}

// Limiter bounds outbound request frequency per client identity.
// Safe for concurrent use.
type Limiter struct {
	window time.Duration
	max    int
	logger *slog.Logger

	mu     sync.Mutex
	states map[string]*identityState

	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// New creates a limiter and starts its background sweep. Close must be
// called to stop the sweeper.
func New(window time.Duration, maxPerWindow int, logger *slog.Logger) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxPerWindow < 1 {
		maxPerWindow = DefaultMaxPerWindow
	}
	l := &Limiter{
		window: window,
		max:    maxPerWindow,
		logger: logger,
		states: make(map[string]*identityState),
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go l.sweepLoop(sweepInterval)
	return l
}

// Admit decides whether a request from identity may proceed now. Denials
// carry the time remaining in the current window.
func (l *Limiter) Admit(identity string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[identity]
	if !ok {
		l.states[identity] = &identityState{windowStart: now, count: 1, lastSeen: now}
		return Decision{Allowed: true}
	}
	st.lastSeen = now

	elapsed := now.Sub(st.windowStart)
	if elapsed >= l.window {
		st.windowStart = now
		st.count = 1
		return Decision{Allowed: true}
	}
	if st.count < l.max {
		st.count++
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, RetryAfter: l.window - elapsed}
}

// Len returns the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}

// Close stops the background sweeper.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}

func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops identities idle beyond several window lengths to bound
// memory.
func (l *Limiter) sweep() {
	now := l.now()
	cutoff := time.Duration(idleFactor) * l.window

	l.mu.Lock()
	removed := 0
	for id, st := range l.states {
		if now.Sub(st.lastSeen) >= cutoff {
			delete(l.states, id)
			removed++
		}
	}
	remaining := len(l.states)
	l.mu.Unlock()

	if removed > 0 && l.logger != nil {
		l.logger.Debug("swept idle rate limit identities", "removed", removed, "remaining", remaining)
	}
}
