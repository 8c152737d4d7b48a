package identity

import (
	"context"
	"errors"
)

// Resolver turns target expressions into user records.
type Resolver struct {
	repo Repository
}

// NewResolver creates a resolver over the given repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve parses the raw target expression and looks up the matching user.
// When the expression does not name a platform, the origin platform is tried
// first; only if that misses is the other platform's handle space consulted,
// which finds users reachable through any linked handle.
func (r *Resolver) Resolve(ctx context.Context, origin Platform, raw string) (User, error) {
	target, err := ParseTarget(raw)
	if err != nil {
		return User{}, err
	}

	if target.UserID != 0 {
		return r.repo.FindByID(ctx, target.UserID)
	}

	if target.Platform != "" {
		return r.repo.FindByHandle(ctx, target.Platform, target.Handle)
	}

	user, err := r.repo.FindByHandle(ctx, origin, target.Handle)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}
	return r.repo.FindByHandle(ctx, origin.Other(), target.Handle)
}

// EnsureUser returns the user linked to (platform, handle), creating the
// record on first interaction.
func (r *Resolver) EnsureUser(ctx context.Context, platform Platform, handle string) (User, error) {
	normalized := normalizeHandle(handle)
	if normalized == "" {
		return User{}, ErrInvalidTarget
	}
	user, err := r.repo.FindByHandle(ctx, platform, normalized)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}
	return r.repo.Create(ctx, platform, normalized)
}
