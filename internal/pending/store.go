package pending

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SendrPay/SendrPay-sub002/internal/identity"
)

// Payment is a payment intent awaiting the payer's confirmation. It lives
// only in memory; a restart drops it and the payer re-initiates.
type Payment struct {
	PayerID   int64
	PayeeID   int64
	Platform  identity.Platform
	Amount    int64
	Ticker    string
	Note      string
	CreatedAt time.Time
}

type entry struct {
	payment   Payment
	expiresAt time.Time
}

// Store holds pending payments keyed by an opaque confirmation id with a
// fixed time-to-live. Expiry is enforced both lazily on read and by a
// background sweep; explicit removal on use always wins over the TTL timer.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// NewStore creates a store whose entries expire after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Put stores the payment and returns its confirmation id.
func (s *Store) Put(p Payment) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ulid.Make().String()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.entries[id] = entry{payment: p, expiresAt: s.now().Add(s.ttl)}
	return id
}

// Get returns the pending payment without consuming it. Expired entries are
// reported as absent, indistinguishable from ids that never existed.
func (s *Store) Get(id string) (Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Payment{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return Payment{}, false
	}
	return e.payment, true
}

// Take consumes the pending payment: at most one caller observes it, and
// the id can never be acted on again.
func (s *Store) Take(id string) (Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Payment{}, false
	}
	delete(s.entries, id)
	if !s.now().Before(e.expiresAt) {
		return Payment{}, false
	}
	return e.payment, true
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired entries on the given interval until the
// context is cancelled.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}
