package wallet

import (
	"context"
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/SendrPay/SendrPay-sub002/internal/chain"
	"github.com/SendrPay/SendrPay-sub002/internal/vault"
)

// Service provisions custodial wallets and releases signing keys.
type Service struct {
	repo  Repository
	vault *vault.Vault
}

// NewService builds a wallet service instance.
func NewService(repo Repository, v *vault.Vault) *Service {
	return &Service{repo: repo, vault: v}
}

// Provision returns the user's active wallet, generating and sealing a new
// keypair on first use.
func (s *Service) Provision(ctx context.Context, userID int64) (Wallet, error) {
	existing, err := s.repo.ActiveForUser(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return Wallet{}, err
	}

	address, priv, err := chain.NewKeypair()
	if err != nil {
		return Wallet{}, err
	}
	sealed, err := s.vault.Seal(address, priv.Seed())
	if err != nil {
		return Wallet{}, err
	}

	w := Wallet{
		ID:           uuid.New().String(),
		UserID:       userID,
		Address:      address,
		EncryptedKey: sealed,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Active returns the user's signing wallet without touching key material.
func (s *Service) Active(ctx context.Context, userID int64) (Wallet, error) {
	return s.repo.ActiveForUser(ctx, userID)
}

// Get retrieves wallet metadata by id.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// SigningKey opens the sealed key for the user's active wallet. The returned
// key must live only for the duration of transaction construction; it is
// never logged or persisted.
func (s *Service) SigningKey(ctx context.Context, userID int64) (Wallet, ed25519.PrivateKey, error) {
	w, err := s.repo.ActiveForUser(ctx, userID)
	if err != nil {
		return Wallet{}, nil, err
	}
	seed, err := s.vault.Open(w.Address, w.EncryptedKey)
	if err != nil {
		return Wallet{}, nil, err
	}
	priv, err := chain.PrivateKeyFromSeed(seed)
	if err != nil {
		return Wallet{}, nil, err
	}
	return w, priv, nil
}
