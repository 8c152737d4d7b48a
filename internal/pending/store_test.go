package pending

import (
	"testing"
	"time"
)

func TestTakeConsumesExactlyOnce(t *testing.T) {
	store := NewStore(10 * time.Minute)

	id := store.Put(Payment{PayerID: 1, PayeeID: 2, Amount: 100, Ticker: "SOL"})

	p, ok := store.Take(id)
	if !ok || p.Amount != 100 {
		t.Fatalf("expected payment, got %+v ok=%v", p, ok)
	}

	if _, ok := store.Take(id); ok {
		t.Fatal("second take must fail")
	}
	if _, ok := store.Get(id); ok {
		t.Fatal("resolved confirmation must not be visible")
	}
}

func TestExpiredEntryIsNotFound(t *testing.T) {
	store := NewStore(10 * time.Minute)
	current := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return current }

	id := store.Put(Payment{PayerID: 1, PayeeID: 2, Amount: 100, Ticker: "SOL"})

	current = current.Add(10*time.Minute + time.Second)

	if _, ok := store.Get(id); ok {
		t.Fatal("expired entry must report not found")
	}
	if _, ok := store.Take(id); ok {
		t.Fatal("expired entry must not be consumable")
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	store := NewStore(10 * time.Minute)
	current := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return current }

	stale := store.Put(Payment{PayerID: 1, PayeeID: 2, Amount: 1})
	current = current.Add(5 * time.Minute)
	fresh := store.Put(Payment{PayerID: 3, PayeeID: 4, Amount: 2})
	current = current.Add(5*time.Minute + time.Second)

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := store.Get(stale); ok {
		t.Fatal("stale entry survived sweep")
	}
	if _, ok := store.Get(fresh); !ok {
		t.Fatal("fresh entry removed by sweep")
	}
}

func TestUnknownIDNotFound(t *testing.T) {
	store := NewStore(time.Minute)
	if _, ok := store.Get("01J0000000000000000000000"); ok {
		t.Fatal("unknown id must report not found")
	}
}
