package chain

import (
	"context"
	"time"
)

// ConfirmStatus is the terminal observation of a submitted transaction.
type ConfirmStatus string

const (
	// ConfirmConfirmed means the ledger accepted the transaction.
	ConfirmConfirmed ConfirmStatus = "confirmed"
	// ConfirmFailed means the ledger explicitly rejected the transaction.
	ConfirmFailed ConfirmStatus = "failed"
	// ConfirmTimedOut means confirmation was not observed within the wait
	// window. The transaction may still land; callers must not assume
	// failure.
	ConfirmTimedOut ConfirmStatus = "timed_out"
)

// Confirmation reports the outcome of a confirmation wait.
type Confirmation struct {
	Status ConfirmStatus
	Reason string
}

// Client is the boundary to the external ledger. All calls are network
// round-trips; transient failures surface to the caller rather than being
// swallowed here.
type Client interface {
	GetBalance(ctx context.Context, address string) (int64, error)
	LatestBlockReference(ctx context.Context) (string, error)
	SubmitTransaction(ctx context.Context, tx *Transaction) (string, error)
	ConfirmTransaction(ctx context.Context, signature string, timeout time.Duration) (Confirmation, error)
}
