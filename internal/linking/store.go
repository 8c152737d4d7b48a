package linking

import (
	"context"

	"github.com/SendrPay/SendrPay-sub002/internal/identity"
	"github.com/SendrPay/SendrPay-sub002/internal/wallet"
)

// Tx exposes the mutations a merge performs. Every method operates inside
// the enclosing store transaction; none of them commits on its own.
type Tx interface {
	MergeRecordForUpdate(ctx context.Context, code string) (MergeRecord, error)
	UserByID(ctx context.Context, id int64) (identity.User, error)
	DeactivateActiveWallet(ctx context.Context, userID int64) error
	ReassignWallets(ctx context.Context, fromUserID, toUserID int64) error
	ClearHandle(ctx context.Context, userID int64, platform identity.Platform) error
	AttachHandle(ctx context.Context, userID int64, platform identity.Platform, handle string) error
	DeleteUser(ctx context.Context, userID int64) error
	MarkUsed(ctx context.Context, code string) error
	ActiveWallet(ctx context.Context, userID int64) (wallet.Wallet, error)
}

// Store persists merge records and runs merge transactions. WithinTx must
// guarantee all-or-nothing semantics: if fn returns an error, every
// mutation made through the Tx is rolled back.
type Store interface {
	CreateMergeRecord(ctx context.Context, record MergeRecord) error
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
