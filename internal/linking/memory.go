package linking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SendrPay/SendrPay-sub002/internal/identity"
	"github.com/SendrPay/SendrPay-sub002/internal/wallet"
)

// MemoryStore is an in-memory merge store with snapshot-based rollback,
// used by tests and development mode. WithinTx holds the store lock for the
// whole transaction, which serializes concurrent merge decisions the way
// row locks do in PostgreSQL.
type MemoryStore struct {
	mu      sync.Mutex
	codes   map[string]MergeRecord
	users   map[int64]identity.User
	wallets map[string]wallet.Wallet
}

// NewMemoryStore builds an empty in-memory merge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		codes:   make(map[string]MergeRecord),
		users:   make(map[int64]identity.User),
		wallets: make(map[string]wallet.Wallet),
	}
}

// AddUser seeds a user row.
func (s *MemoryStore) AddUser(u identity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// AddWallet seeds a wallet row.
func (s *MemoryStore) AddWallet(w wallet.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.ID] = w
}

// User returns the current state of a user row.
func (s *MemoryStore) User(id int64) (identity.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

// WalletsOf returns all wallet rows owned by a user.
func (s *MemoryStore) WalletsOf(userID int64) []wallet.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []wallet.Wallet
	for _, w := range s.wallets {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out
}

// CreateMergeRecord persists a link code.
func (s *MemoryStore) CreateMergeRecord(_ context.Context, record MergeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.codes[record.Code]; exists {
		return errors.New("code exists")
	}
	s.codes[record.Code] = record
	return nil
}

// WithinTx runs fn under the store lock, restoring a snapshot of all state
// if fn fails.
func (s *MemoryStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(&memTx{store: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type memSnapshot struct {
	codes   map[string]MergeRecord
	users   map[int64]identity.User
	wallets map[string]wallet.Wallet
}

func (s *MemoryStore) snapshot() memSnapshot {
	snap := memSnapshot{
		codes:   make(map[string]MergeRecord, len(s.codes)),
		users:   make(map[int64]identity.User, len(s.users)),
		wallets: make(map[string]wallet.Wallet, len(s.wallets)),
	}
	for k, v := range s.codes {
		snap.codes[k] = v
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.wallets {
		snap.wallets[k] = v
	}
	return snap
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.codes = snap.codes
	s.users = snap.users
	s.wallets = snap.wallets
}

type memTx struct {
	store *MemoryStore
}

func (t *memTx) MergeRecordForUpdate(_ context.Context, code string) (MergeRecord, error) {
	record, ok := t.store.codes[code]
	if !ok {
		return MergeRecord{}, fmt.Errorf("%w: unknown code", ErrMergeConflict)
	}
	return record, nil
}

func (t *memTx) UserByID(_ context.Context, id int64) (identity.User, error) {
	user, ok := t.store.users[id]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return user, nil
}

func (t *memTx) DeactivateActiveWallet(_ context.Context, userID int64) error {
	for id, w := range t.store.wallets {
		if w.UserID == userID && w.Active {
			w.Active = false
			t.store.wallets[id] = w
		}
	}
	return nil
}

func (t *memTx) ReassignWallets(_ context.Context, fromUserID, toUserID int64) error {
	for id, w := range t.store.wallets {
		if w.UserID == fromUserID {
			w.UserID = toUserID
			t.store.wallets[id] = w
		}
	}
	return nil
}

func (t *memTx) ClearHandle(_ context.Context, userID int64, platform identity.Platform) error {
	user, ok := t.store.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	if platform == identity.PlatformTelegram {
		user.TelegramHandle = ""
	} else {
		user.DiscordHandle = ""
	}
	t.store.users[userID] = user
	return nil
}

func (t *memTx) AttachHandle(_ context.Context, userID int64, platform identity.Platform, handle string) error {
	for id, u := range t.store.users {
		if id != userID && u.Handle(platform) == handle {
			return fmt.Errorf("handle %q already linked on %s", handle, platform)
		}
	}
	user, ok := t.store.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	if platform == identity.PlatformTelegram {
		user.TelegramHandle = handle
	} else {
		user.DiscordHandle = handle
	}
	t.store.users[userID] = user
	return nil
}

func (t *memTx) DeleteUser(_ context.Context, userID int64) error {
	delete(t.store.users, userID)
	return nil
}

func (t *memTx) MarkUsed(_ context.Context, code string) error {
	record, ok := t.store.codes[code]
	if !ok || record.Used {
		return fmt.Errorf("%w: code already used", ErrMergeConflict)
	}
	record.Used = true
	t.store.codes[code] = record
	return nil
}

func (t *memTx) ActiveWallet(_ context.Context, userID int64) (wallet.Wallet, error) {
	for _, w := range t.store.wallets {
		if w.UserID == userID && w.Active {
			return w, nil
		}
	}
	return wallet.Wallet{}, wallet.ErrWalletNotFound
}
