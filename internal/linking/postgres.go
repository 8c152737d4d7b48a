package linking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SendrPay/SendrPay-sub002/internal/identity"
	"github.com/SendrPay/SendrPay-sub002/internal/wallet"
)

// PostgresStore runs merges inside PostgreSQL transactions, relying on the
// unique constraints over (platform, handle) and row locks on link codes.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed merge store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateMergeRecord persists a freshly minted link code.
func (s *PostgresStore) CreateMergeRecord(ctx context.Context, record MergeRecord) error {
	_, err := s.db.Exec(ctx, `INSERT INTO link_codes (code, initiator_id, platform, used, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		record.Code, record.InitiatorID, string(record.Platform), record.Used,
		record.ExpiresAt.UTC(), record.CreatedAt.UTC())
	return err
}

// WithinTx runs fn inside one database transaction with rollback on error.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) MergeRecordForUpdate(ctx context.Context, code string) (MergeRecord, error) {
	row := t.tx.QueryRow(ctx, `SELECT code, initiator_id, platform, used, expires_at, created_at
        FROM link_codes WHERE code = $1 FOR UPDATE`, code)
	var (
		record   MergeRecord
		platform string
	)
	if err := row.Scan(&record.Code, &record.InitiatorID, &platform, &record.Used, &record.ExpiresAt, &record.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MergeRecord{}, fmt.Errorf("%w: unknown code", ErrMergeConflict)
		}
		return MergeRecord{}, err
	}
	record.Platform = identity.Platform(platform)
	record.ExpiresAt = record.ExpiresAt.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	return record, nil
}

func (t *pgTx) UserByID(ctx context.Context, id int64) (identity.User, error) {
	row := t.tx.QueryRow(ctx, `SELECT id, telegram_handle, discord_handle, created_at
        FROM users WHERE id = $1 FOR UPDATE`, id)
	var (
		user     identity.User
		telegram *string
		discord  *string
	)
	if err := row.Scan(&user.ID, &telegram, &discord, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.User{}, identity.ErrUserNotFound
		}
		return identity.User{}, err
	}
	if telegram != nil {
		user.TelegramHandle = *telegram
	}
	if discord != nil {
		user.DiscordHandle = *discord
	}
	return user, nil
}

func (t *pgTx) DeactivateActiveWallet(ctx context.Context, userID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE wallets SET active = false WHERE user_id = $1 AND active`, userID)
	return err
}

func (t *pgTx) ReassignWallets(ctx context.Context, fromUserID, toUserID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE wallets SET user_id = $2 WHERE user_id = $1`, fromUserID, toUserID)
	return err
}

func (t *pgTx) ClearHandle(ctx context.Context, userID int64, platform identity.Platform) error {
	query := fmt.Sprintf(`UPDATE users SET %s = NULL WHERE id = $1`, handleColumn(platform))
	_, err := t.tx.Exec(ctx, query, userID)
	return err
}

func (t *pgTx) AttachHandle(ctx context.Context, userID int64, platform identity.Platform, handle string) error {
	query := fmt.Sprintf(`UPDATE users SET %s = $2 WHERE id = $1`, handleColumn(platform))
	cmd, err := t.tx.Exec(ctx, query, userID, handle)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

func (t *pgTx) DeleteUser(ctx context.Context, userID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	return err
}

func (t *pgTx) MarkUsed(ctx context.Context, code string) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE link_codes SET used = true WHERE code = $1 AND NOT used`, code)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: code already used", ErrMergeConflict)
	}
	return nil
}

func (t *pgTx) ActiveWallet(ctx context.Context, userID int64) (wallet.Wallet, error) {
	row := t.tx.QueryRow(ctx, `SELECT id, user_id, address, encrypted_key, active, created_at
        FROM wallets WHERE user_id = $1 AND active`, userID)
	var (
		w  wallet.Wallet
		id uuid.UUID
	)
	if err := row.Scan(&id, &w.UserID, &w.Address, &w.EncryptedKey, &w.Active, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wallet.Wallet{}, wallet.ErrWalletNotFound
		}
		return wallet.Wallet{}, err
	}
	w.ID = id.String()
	return w, nil
}

func handleColumn(platform identity.Platform) string {
	if platform == identity.PlatformTelegram {
		return "telegram_handle"
	}
	return "discord_handle"
}
