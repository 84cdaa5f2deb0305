/*
Package ratelimit implements a fixed-window request limiter keyed by client.

PURPOSE:
  Bounds how many requests one client may make per window. Client state
  lives in a size-bounded LRU owned by the Limiter, so memory stays flat no
  matter how many distinct clients appear; the least recently seen client
  is forgotten first.

KEY CONCEPTS:
  - Window: Fixed interval starting at a client's first request
  - Budget: Maximum requests allowed per window
  - Capacity: Maximum number of clients tracked at once

The clock is injected so windows can be tested without sleeping.
*/
package ratelimit

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
)

// Defaults applied to zero Config fields.
const (
	DefaultWindow      = 15 * time.Minute
	DefaultMaxRequests = 100
	DefaultMaxClients  = 10000
)

// Config configures a Limiter.
type Config struct {
	Window      time.Duration
	MaxRequests int
	MaxClients  int
	Now         func() time.Time
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration // zero when allowed
}

type window struct {
	start time.Time
	count int
}

// Limiter is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	clients *simplelru.LRU
	window  time.Duration
	max     int
	now     func() time.Time
}

// New creates a limiter. Zero fields in cfg take the package defaults.
func New(cfg Config) (*Limiter, error) {
	if cfg.Window < 0 || cfg.MaxRequests < 0 || cfg.MaxClients < 0 {
		return nil, errors.New("ratelimit: window, max requests and max clients must not be negative")
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.MaxClients == 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	clients, err := simplelru.NewLRU(cfg.MaxClients, nil)
	if err != nil {
		return nil, err
	}
	return &Limiter{
		clients: clients,
		window:  cfg.Window,
		max:     cfg.MaxRequests,
		now:     cfg.Now,
	}, nil
}

// Allow records one request from key and reports whether it fits the budget.
// Rejected requests do not consume budget.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := &window{start: now}
	if v, ok := l.clients.Get(key); ok {
		existing := v.(*window)
		if now.Sub(existing.start) < l.window {
			w = existing
		}
	}
	l.clients.Add(key, w)

	reset := w.start.Add(l.window)
	if w.count >= l.max {
		return Decision{
			Allowed:    false,
			Limit:      l.max,
			Remaining:  0,
			ResetAt:    reset,
			RetryAfter: reset.Sub(now),
		}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     l.max,
		Remaining: l.max - w.count,
		ResetAt:   reset,
	}
}

// Tracked returns the number of clients currently held.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clients.Len()
}
