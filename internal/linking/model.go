package linking

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"github.com/SendrPay/SendrPay-sub002/internal/identity"
)

// ErrMergeConflict indicates the merge record is already consumed, expired,
// or a concurrent decision won the race. Recoverable by re-running the
// linking flow.
var ErrMergeConflict = errors.New("merge conflict")

// Decision picks which identity's custodied wallet survives the merge.
type Decision string

const (
	KeepInitiatorWallet Decision = "keep_initiator"
	KeepClaimantWallet  Decision = "keep_claimant"
)

// State tracks a merge record through its lifecycle. Consumed is terminal;
// no transition out of it is valid.
type State int

const (
	StateProposed State = iota
	StateKeptInitiator
	StateKeptClaimant
	StateConsumed
)

// Apply advances the state machine by one decision. Only a proposed record
// accepts a decision; anything else is a conflict.
func (s State) Apply(d Decision) (State, error) {
	if s != StateProposed {
		return s, fmt.Errorf("%w: record not in proposed state", ErrMergeConflict)
	}
	switch d {
	case KeepInitiatorWallet:
		return StateKeptInitiator, nil
	case KeepClaimantWallet:
		return StateKeptClaimant, nil
	default:
		return s, fmt.Errorf("invalid merge decision %q", d)
	}
}

// Consume finalizes a decided state.
func (s State) Consume() (State, error) {
	if s != StateKeptInitiator && s != StateKeptClaimant {
		return s, fmt.Errorf("%w: no decision recorded", ErrMergeConflict)
	}
	return StateConsumed, nil
}

// MergeRecord is a persisted single-use link code tying a cross-platform
// merge to its initiating identity.
type MergeRecord struct {
	Code        string
	InitiatorID int64
	Platform    identity.Platform
	Used        bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Validate reports a conflict if the record has been consumed or expired.
func (r MergeRecord) Validate(now time.Time) error {
	if r.Used {
		return fmt.Errorf("%w: code already used", ErrMergeConflict)
	}
	if !now.Before(r.ExpiresAt) {
		return fmt.Errorf("%w: code expired", ErrMergeConflict)
	}
	return nil
}

// NewCode mints a link code encoding the initiating platform and user id
// plus a random suffix.
func NewCode(platform identity.Platform, initiatorID int64) (string, error) {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate code suffix: %w", err)
	}
	return fmt.Sprintf("%s-%d-%s", strings.ToUpper(platform.Short()), initiatorID, base58.Encode(suffix)), nil
}
