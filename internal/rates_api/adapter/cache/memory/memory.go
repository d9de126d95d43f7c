package memory

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Storage is an in-process key/value store with per-entry expiry.
// Keys are case-insensitive.
type Storage struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

type Option func(s *Storage)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func NewStorage(opts ...Option) *Storage {
	s := &Storage{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) Get(_ context.Context, key string) ([]byte, bool) {
	key = strings.ToLower(key)

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		// a concurrent Set may have replaced the entry
		if cur, ok := s.entries[key]; ok && !s.now().Before(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}

	return append([]byte(nil), e.value...), true
}

// Set overwrites any existing entry for key. Values are copied in and out,
// so callers never share bytes with a stored entry.
func (s *Storage) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	key = strings.ToLower(key)

	s.mu.Lock()
	s.entries[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}
	s.mu.Unlock()

	return nil
}

// Sweep removes expired entries and returns how many remain.
func (s *Storage) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}

	if removed > 0 {
		slog.Debug("cache sweep", "removed", removed, "remaining", len(s.entries))
	}

	return len(s.entries)
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// StartJanitor sweeps every interval until ctx is done. onSweep, if set,
// receives the number of remaining entries.
func (s *Storage) StartJanitor(ctx context.Context, interval time.Duration, onSweep func(remaining int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n := s.Sweep()
			if onSweep != nil {
				onSweep(n)
			}
		case <-ctx.Done():
			slog.Info("cache janitor stopped")
			return
		}
	}
}
