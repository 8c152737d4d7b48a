package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound indicates no user record matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, platform Platform, handle string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	FindByHandle(ctx context.Context, platform Platform, handle string) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user linked to a single platform handle.
func (r *PostgresRepository) Create(ctx context.Context, platform Platform, handle string) (User, error) {
	if handle == "" {
		return User{}, fmt.Errorf("handle is required")
	}
	column := handleColumn(platform)
	query := fmt.Sprintf(`INSERT INTO users (%s, created_at) VALUES ($1, $2) RETURNING id`, column)

	user := User{CreatedAt: time.Now().UTC()}
	if err := r.db.QueryRow(ctx, query, handle, user.CreatedAt).Scan(&user.ID); err != nil {
		return User{}, err
	}
	if platform == PlatformTelegram {
		user.TelegramHandle = handle
	} else {
		user.DiscordHandle = handle
	}
	return user, nil
}

// FindByID fetches a user by internal identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, telegram_handle, discord_handle, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByHandle fetches a user by (platform, handle).
func (r *PostgresRepository) FindByHandle(ctx context.Context, platform Platform, handle string) (User, error) {
	query := fmt.Sprintf(`SELECT id, telegram_handle, discord_handle, created_at FROM users WHERE %s = $1`, handleColumn(platform))
	row := r.db.QueryRow(ctx, query, handle)
	return scanUser(row)
}

func handleColumn(platform Platform) string {
	if platform == PlatformTelegram {
		return "telegram_handle"
	}
	return "discord_handle"
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user     User
		telegram *string
		discord  *string
	)
	if err := row.Scan(&user.ID, &telegram, &discord, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	if telegram != nil {
		user.TelegramHandle = *telegram
	}
	if discord != nil {
		user.DiscordHandle = *discord
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}
