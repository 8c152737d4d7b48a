package token

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores token reference data.
type Repository interface {
	Upsert(ctx context.Context, token Token) error
	FindByTicker(ctx context.Context, ticker string) (Token, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed token repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts or refreshes a token mapping keyed by ticker.
func (r *PostgresRepository) Upsert(ctx context.Context, token Token) error {
	_, err := r.db.Exec(ctx, `INSERT INTO tokens (ticker, mint, decimals) VALUES ($1, $2, $3)
        ON CONFLICT (ticker) DO UPDATE SET mint = EXCLUDED.mint, decimals = EXCLUDED.decimals`,
		NormalizeTicker(token.Ticker), token.Mint, token.Decimals)
	return err
}

// FindByTicker fetches a token mapping.
func (r *PostgresRepository) FindByTicker(ctx context.Context, ticker string) (Token, error) {
	row := r.db.QueryRow(ctx, `SELECT ticker, mint, decimals FROM tokens WHERE ticker = $1`, NormalizeTicker(ticker))
	var t Token
	if err := row.Scan(&t.Ticker, &t.Mint, &t.Decimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, ErrUnknownToken
		}
		return Token{}, err
	}
	return t, nil
}
