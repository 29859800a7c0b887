// Package dedup suppresses redelivered messages. The intake subscription is
// at-least-once, so the same payload can arrive more than once; remembering
// recently seen keys for a short TTL keeps redeliveries from becoming
// duplicate alerts.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	defaultTTL      = 10 * time.Minute
	defaultCapacity = 10000
)

// Key derives a stable dedup key from a raw payload. Identical bytes always
// map to the same key, so redeliveries collide regardless of broker metadata.
func Key(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Deduper remembers keys for a TTL. Safe for concurrent use; memory is
// bounded by evicting expired entries once the table outgrows its capacity.
type Deduper struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	clock    clockwork.Clock
	seen     map[string]time.Time
}

// New builds a Deduper with the given TTL and capacity. Non-positive values
// fall back to the defaults.
func New(ttl time.Duration, capacity int) *Deduper {
	return NewWithClock(ttl, capacity, clockwork.NewRealClock())
}

// NewWithClock is New with an injected clock, for deterministic TTL tests.
func NewWithClock(ttl time.Duration, capacity int, clock clockwork.Clock) *Deduper {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Deduper{
		ttl:      ttl,
		capacity: capacity,
		clock:    clock,
		seen:     make(map[string]time.Time, capacity),
	}
}

// Seen reports whether the key was already recorded within the TTL, recording
// it otherwise. An empty key is never considered seen.
func (d *Deduper) Seen(key string) bool {
	if key == "" {
		return false
	}
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if expiry, ok := d.seen[key]; ok && now.Before(expiry) {
		return true
	}
	d.seen[key] = now.Add(d.ttl)
	if len(d.seen) > d.capacity {
		d.evictExpired(now)
	}
	return false
}

// evictExpired drops entries whose TTL has lapsed. Called with the lock held.
func (d *Deduper) evictExpired(now time.Time) {
	for k, expiry := range d.seen {
		if !now.Before(expiry) {
			delete(d.seen, k)
		}
	}
}
