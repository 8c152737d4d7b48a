package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRecordNotFound indicates no settlement record matches the lookup.
var ErrRecordNotFound = errors.New("settlement record not found")

// Record is the persisted outcome of one settlement attempt. Indeterminate
// records are the input to reconciliation.
type Record struct {
	ID            string
	Reference     string
	Signature     string
	PayerWalletID string
	PayeeWalletID string
	Amount        int64
	Fee           int64
	TopUp         int64
	Ticker        string
	Status        Status
	Note          string
	CreatedAt     time.Time
}

// Repository persists settlement records.
type Repository interface {
	Create(ctx context.Context, record Record) error
	FindByReference(ctx context.Context, reference string) (Record, error)
}

// PostgresRepository stores settlement records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed settlement record store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a settlement record.
func (r *PostgresRepository) Create(ctx context.Context, record Record) error {
	_, err := r.db.Exec(ctx, `INSERT INTO settlements
        (id, reference, signature, payer_wallet_id, payee_wallet_id, amount, fee, top_up, ticker, status, note, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		record.ID, record.Reference, record.Signature, record.PayerWalletID, record.PayeeWalletID,
		record.Amount, record.Fee, record.TopUp, record.Ticker, string(record.Status), record.Note,
		record.CreatedAt.UTC())
	return err
}

// FindByReference fetches the settlement recorded for a logical payment.
func (r *PostgresRepository) FindByReference(ctx context.Context, reference string) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT id, reference, signature, payer_wallet_id, payee_wallet_id,
        amount, fee, top_up, ticker, status, note, created_at
        FROM settlements WHERE reference = $1`, reference)
	var (
		rec    Record
		status string
	)
	if err := row.Scan(&rec.ID, &rec.Reference, &rec.Signature, &rec.PayerWalletID, &rec.PayeeWalletID,
		&rec.Amount, &rec.Fee, &rec.TopUp, &rec.Ticker, &status, &rec.Note, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	rec.Status = Status(status)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
