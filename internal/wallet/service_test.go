package wallet

import (
	"context"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/SendrPay/SendrPay-sub002/internal/chain"
	"github.com/SendrPay/SendrPay-sub002/internal/vault"
)

func testService(t *testing.T) *Service {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("master key: %v", err)
	}
	v, err := vault.New(key)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	return NewService(NewMemoryRepository(), v)
}

func TestProvisionIsIdempotentPerUser(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	first, err := svc.Provision(ctx, 7)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if !first.Active || first.Address == "" {
		t.Fatalf("unexpected wallet: %+v", first)
	}

	second, err := svc.Provision(ctx, 7)
	if err != nil {
		t.Fatalf("provision again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing wallet %s, got %s", first.ID, second.ID)
	}
}

func TestSigningKeyMatchesAddress(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	w, err := svc.Provision(ctx, 7)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	got, priv, err := svc.SigningKey(ctx, 7)
	if err != nil {
		t.Fatalf("signing key: %v", err)
	}
	if got.ID != w.ID {
		t.Fatalf("expected wallet %s, got %s", w.ID, got.ID)
	}

	tx := chain.NewTransaction(w.Address, "block-1", chain.Transfer{From: w.Address, To: "payee", Amount: 1})
	if err := tx.Sign(priv); err != nil {
		t.Fatalf("sign with released key: %v", err)
	}
	if err := tx.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestSigningKeyCorruptedBlob(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	w, err := svc.Provision(ctx, 7)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	// Corrupt the stored blob in place.
	w.EncryptedKey[0] ^= 0xff

	if _, _, err := svc.SigningKey(ctx, 7); !errors.Is(err, vault.ErrIntegrityViolation) {
		t.Fatalf("expected ErrIntegrityViolation, got %v", err)
	}
}

func TestSigningKeyNoWallet(t *testing.T) {
	svc := testService(t)
	if _, _, err := svc.SigningKey(context.Background(), 99); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}
