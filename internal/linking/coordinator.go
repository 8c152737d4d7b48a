package linking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SendrPay/SendrPay-sub002/internal/identity"
	"github.com/SendrPay/SendrPay-sub002/internal/wallet"
)

// MergeResult reports the outcome of a consumed merge.
type MergeResult struct {
	SurvivorID int64
	MergedID   int64
	State      State
}

// Coordinator consolidates two identities into one. Every merge runs as a
// single store transaction: wallet deactivation and reassignment, handle
// moves, user deletion and code consumption land together or not at all.
type Coordinator struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewCoordinator builds a merge coordinator; link codes expire after ttl.
func NewCoordinator(store Store, ttl time.Duration, logger *slog.Logger) *Coordinator {
	return &Coordinator{store: store, ttl: ttl, now: time.Now, logger: logger}
}

// Propose mints a single-use link code for the initiating identity. The
// initiator proves ownership of the other platform's account out of band by
// presenting this code there.
func (c *Coordinator) Propose(ctx context.Context, initiator identity.User, platform identity.Platform) (MergeRecord, error) {
	code, err := NewCode(platform, initiator.ID)
	if err != nil {
		return MergeRecord{}, err
	}
	record := MergeRecord{
		Code:        code,
		InitiatorID: initiator.ID,
		Platform:    platform,
		ExpiresAt:   c.now().Add(c.ttl).UTC(),
		CreatedAt:   c.now().UTC(),
	}
	if err := c.store.CreateMergeRecord(ctx, record); err != nil {
		return MergeRecord{}, err
	}
	return record, nil
}

// Merge consumes the link code and consolidates the claimant's identity
// with the initiator's, keeping the wallet named by the decision.
func (c *Coordinator) Merge(ctx context.Context, code string, claimantID int64, decision Decision) (MergeResult, error) {
	var result MergeResult

	err := c.store.WithinTx(ctx, func(tx Tx) error {
		record, err := tx.MergeRecordForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if err := record.Validate(c.now()); err != nil {
			return err
		}

		state, err := StateProposed.Apply(decision)
		if err != nil {
			return err
		}

		initiator, err := tx.UserByID(ctx, record.InitiatorID)
		if err != nil {
			return fmt.Errorf("%w: initiating identity no longer exists", ErrMergeConflict)
		}
		claimant, err := tx.UserByID(ctx, claimantID)
		if err != nil {
			return fmt.Errorf("%w: claiming identity no longer exists", ErrMergeConflict)
		}
		if initiator.ID == claimant.ID {
			return fmt.Errorf("%w: both sides resolve to the same identity", ErrMergeConflict)
		}

		survivor, merged := initiator, claimant
		if state == StateKeptClaimant {
			survivor, merged = claimant, initiator
		}

		// Both rows claiming a handle on the same platform cannot be
		// consolidated without losing one of them.
		for _, p := range []identity.Platform{identity.PlatformTelegram, identity.PlatformDiscord} {
			if survivor.Handle(p) != "" && merged.Handle(p) != "" {
				return fmt.Errorf("%w: both identities are linked on %s", ErrMergeConflict, p)
			}
		}

		// The losing side's signing wallet is retired, never deleted; its
		// remaining wallet rows move to the survivor so history stays
		// reachable.
		if err := tx.DeactivateActiveWallet(ctx, merged.ID); err != nil {
			return err
		}
		if err := tx.ReassignWallets(ctx, merged.ID, survivor.ID); err != nil {
			return err
		}

		// Clear before attach: both rows must never claim the same handle,
		// even transiently, or the uniqueness constraint aborts the merge.
		for _, p := range []identity.Platform{identity.PlatformTelegram, identity.PlatformDiscord} {
			handle := merged.Handle(p)
			if handle == "" {
				continue
			}
			if err := tx.ClearHandle(ctx, merged.ID, p); err != nil {
				return err
			}
			if err := tx.AttachHandle(ctx, survivor.ID, p, handle); err != nil {
				return err
			}
		}

		if err := tx.DeleteUser(ctx, merged.ID); err != nil {
			return err
		}
		if err := tx.MarkUsed(ctx, code); err != nil {
			return err
		}

		final, err := state.Consume()
		if err != nil {
			return err
		}
		result = MergeResult{SurvivorID: survivor.ID, MergedID: merged.ID, State: final}
		return nil
	})
	if err != nil {
		return MergeResult{}, err
	}

	c.logger.Info("identities merged",
		slog.Int64("survivor_id", result.SurvivorID),
		slog.Int64("merged_id", result.MergedID))
	return result, nil
}

// SurvivorWallet returns the signing wallet left active after a merge,
// mostly for rendering the outcome back to the user.
func (c *Coordinator) SurvivorWallet(ctx context.Context, survivorID int64) (wallet.Wallet, error) {
	var w wallet.Wallet
	err := c.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		w, err = tx.ActiveWallet(ctx, survivorID)
		return err
	})
	return w, err
}
