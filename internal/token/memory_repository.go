package token

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

// NewMemoryRepository builds an in-memory token store seeded with the
// native asset. Useful for tests and development mode.
func NewMemoryRepository() Repository {
	repo := &memoryRepository{tokens: make(map[string]Token)}
	native := NativeToken()
	repo.tokens[native.Ticker] = native
	return repo
}

func (r *memoryRepository) Upsert(_ context.Context, token Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.Ticker = NormalizeTicker(token.Ticker)
	r.tokens[token.Ticker] = token
	return nil
}

func (r *memoryRepository) FindByTicker(_ context.Context, ticker string) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[NormalizeTicker(ticker)]
	if !ok {
		return Token{}, ErrUnknownToken
	}
	return t, nil
}
