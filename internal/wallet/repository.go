package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrWalletNotFound indicates no wallet record matches the lookup.
var ErrWalletNotFound = errors.New("wallet not found")

// Repository persists wallet metadata and sealed key blobs.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	ActiveForUser(ctx context.Context, userID int64) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (id, user_id, address, encrypted_key, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		walletID, wallet.UserID, wallet.Address, wallet.EncryptedKey, wallet.Active, wallet.CreatedAt.UTC())
	return err
}

// Get fetches wallet metadata by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletUUID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, user_id, address, encrypted_key, active, created_at
        FROM wallets WHERE id = $1`, walletUUID)
	return scanWallet(row)
}

// ActiveForUser returns the user's signing wallet.
func (r *PostgresRepository) ActiveForUser(ctx context.Context, userID int64) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, address, encrypted_key, active, created_at
        FROM wallets WHERE user_id = $1 AND active`, userID)
	return scanWallet(row)
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w  Wallet
		id uuid.UUID
	)
	if err := row.Scan(&id, &w.UserID, &w.Address, &w.EncryptedKey, &w.Active, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}
