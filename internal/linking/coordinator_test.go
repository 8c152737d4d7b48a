package linking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SendrPay/SendrPay-sub002/internal/identity"
	"github.com/SendrPay/SendrPay-sub002/internal/logging"
	"github.com/SendrPay/SendrPay-sub002/internal/wallet"
)

func seededStore() (*MemoryStore, identity.User, identity.User) {
	store := NewMemoryStore()
	initiator := identity.User{ID: 1, TelegramHandle: "alice"}
	claimant := identity.User{ID: 2, DiscordHandle: "alice77"}
	store.AddUser(initiator)
	store.AddUser(claimant)
	store.AddWallet(wallet.Wallet{ID: "w-initiator", UserID: 1, Address: "addr-1", Active: true})
	store.AddWallet(wallet.Wallet{ID: "w-claimant", UserID: 2, Address: "addr-2", Active: true})
	store.AddWallet(wallet.Wallet{ID: "w-claimant-old", UserID: 2, Address: "addr-2-old", Active: false})
	return store, initiator, claimant
}

func TestStateMachineTerminalOnceConsumed(t *testing.T) {
	state, err := StateProposed.Apply(KeepInitiatorWallet)
	require.NoError(t, err)
	state, err = state.Consume()
	require.NoError(t, err)
	require.Equal(t, StateConsumed, state)

	if _, err := state.Apply(KeepClaimantWallet); !errors.Is(err, ErrMergeConflict) {
		t.Fatalf("expected ErrMergeConflict, got %v", err)
	}
}

func TestMergeKeepInitiatorWallet(t *testing.T) {
	store, initiator, claimant := seededStore()
	coord := NewCoordinator(store, time.Hour, logging.Discard())
	ctx := context.Background()

	record, err := coord.Propose(ctx, initiator, identity.PlatformTelegram)
	require.NoError(t, err)

	result, err := coord.Merge(ctx, record.Code, claimant.ID, KeepInitiatorWallet)
	require.NoError(t, err)
	assert.Equal(t, initiator.ID, result.SurvivorID)
	assert.Equal(t, claimant.ID, result.MergedID)
	assert.Equal(t, StateConsumed, result.State)

	// Losing user is gone; survivor carries both handles.
	_, exists := store.User(claimant.ID)
	assert.False(t, exists)
	survivor, _ := store.User(initiator.ID)
	assert.Equal(t, "alice", survivor.TelegramHandle)
	assert.Equal(t, "alice77", survivor.DiscordHandle)

	// Losing side's wallets are reassigned, its signing wallet retired.
	wallets := store.WalletsOf(initiator.ID)
	assert.Len(t, wallets, 3)
	active := 0
	for _, w := range wallets {
		if w.Active {
			active++
			assert.Equal(t, "w-initiator", w.ID)
		}
	}
	assert.Equal(t, 1, active, "exactly one active wallet after merge")
}

func TestMergeKeepClaimantWallet(t *testing.T) {
	store, initiator, claimant := seededStore()
	coord := NewCoordinator(store, time.Hour, logging.Discard())
	ctx := context.Background()

	record, err := coord.Propose(ctx, initiator, identity.PlatformTelegram)
	require.NoError(t, err)

	result, err := coord.Merge(ctx, record.Code, claimant.ID, KeepClaimantWallet)
	require.NoError(t, err)
	assert.Equal(t, claimant.ID, result.SurvivorID)

	_, exists := store.User(initiator.ID)
	assert.False(t, exists)
	survivor, _ := store.User(claimant.ID)
	assert.Equal(t, "alice", survivor.TelegramHandle)
	assert.Equal(t, "alice77", survivor.DiscordHandle)

	wallets := store.WalletsOf(claimant.ID)
	assert.Len(t, wallets, 3)
	for _, w := range wallets {
		if w.ID == "w-claimant" {
			assert.True(t, w.Active)
		} else {
			assert.False(t, w.Active, "wallet %s must be retired", w.ID)
		}
	}
}

func TestMergeReplayFails(t *testing.T) {
	store, initiator, claimant := seededStore()
	coord := NewCoordinator(store, time.Hour, logging.Discard())
	ctx := context.Background()

	record, err := coord.Propose(ctx, initiator, identity.PlatformTelegram)
	require.NoError(t, err)

	_, err = coord.Merge(ctx, record.Code, claimant.ID, KeepInitiatorWallet)
	require.NoError(t, err)

	_, err = coord.Merge(ctx, record.Code, claimant.ID, KeepClaimantWallet)
	require.ErrorIs(t, err, ErrMergeConflict)
}

func TestMergeExpiredCode(t *testing.T) {
	store, initiator, claimant := seededStore()
	coord := NewCoordinator(store, time.Hour, logging.Discard())
	ctx := context.Background()

	current := time.Unix(1_700_000_000, 0)
	coord.now = func() time.Time { return current }

	record, err := coord.Propose(ctx, initiator, identity.PlatformTelegram)
	require.NoError(t, err)

	current = current.Add(time.Hour + time.Second)
	_, err = coord.Merge(ctx, record.Code, claimant.ID, KeepInitiatorWallet)
	require.ErrorIs(t, err, ErrMergeConflict)
}

func TestMergeUnknownCode(t *testing.T) {
	store, _, claimant := seededStore()
	coord := NewCoordinator(store, time.Hour, logging.Discard())

	_, err := coord.Merge(context.Background(), "TG-1-nosuch", claimant.ID, KeepInitiatorWallet)
	require.ErrorIs(t, err, ErrMergeConflict)
}

type attachFailTx struct {
	Tx
}

func (attachFailTx) AttachHandle(context.Context, int64, identity.Platform, string) error {
	return errors.New("injected failure")
}

type attachFailStore struct {
	*MemoryStore
}

func (s attachFailStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.MemoryStore.WithinTx(ctx, func(tx Tx) error {
		return fn(attachFailTx{tx})
	})
}

func TestMergeRollsBackOnMidwayFailure(t *testing.T) {
	store, initiator, claimant := seededStore()
	coord := NewCoordinator(attachFailStore{store}, time.Hour, logging.Discard())
	ctx := context.Background()

	record, err := coord.Propose(ctx, initiator, identity.PlatformTelegram)
	require.NoError(t, err)

	// Failure lands after the losing handle is cleared but before it is
	// attached to the survivor; nothing may stick.
	_, err = coord.Merge(ctx, record.Code, claimant.ID, KeepInitiatorWallet)
	require.Error(t, err)

	left, ok := store.User(initiator.ID)
	require.True(t, ok)
	assert.Equal(t, "alice", left.TelegramHandle)
	assert.Empty(t, left.DiscordHandle)

	right, ok := store.User(claimant.ID)
	require.True(t, ok)
	assert.Equal(t, "alice77", right.DiscordHandle)

	for _, w := range store.WalletsOf(claimant.ID) {
		if w.ID == "w-claimant" {
			assert.True(t, w.Active, "rollback must restore the signing wallet")
		}
	}

	// The code was not consumed, so the merge can be retried cleanly.
	clean := NewCoordinator(store, time.Hour, logging.Discard())
	_, err = clean.Merge(ctx, record.Code, claimant.ID, KeepInitiatorWallet)
	require.NoError(t, err)
}

func TestMergeConcurrentDecisionsOneWins(t *testing.T) {
	store, initiator, claimant := seededStore()
	coord := NewCoordinator(store, time.Hour, logging.Discard())
	ctx := context.Background()

	record, err := coord.Propose(ctx, initiator, identity.PlatformTelegram)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	decisions := []Decision{KeepInitiatorWallet, KeepClaimantWallet}
	for i := range decisions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coord.Merge(ctx, record.Code, claimant.ID, decisions[i])
		}(i)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrMergeConflict)
			conflicted++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one decision may win")
	assert.Equal(t, 1, conflicted)
}
