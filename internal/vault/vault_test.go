package vault

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func testVault(t *testing.T) *Vault {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate master key: %v", err)
	}
	v, err := New(key)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	return v
}

func TestSealOpenRoundTrip(t *testing.T) {
	v := testVault(t)
	secret := []byte("ed25519 private key bytes")

	blob, err := v.Seal("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", secret)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(blob, secret) {
		t.Fatal("sealed blob contains plaintext")
	}

	opened, err := v.Open("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, secret) {
		t.Fatal("opened secret does not match")
	}
}

func TestOpenTamperedBlob(t *testing.T) {
	v := testVault(t)

	blob, err := v.Seal("addr", []byte("secret"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	blob[len(blob)-1] ^= 0x01

	if _, err := v.Open("addr", blob); !errors.Is(err, ErrIntegrityViolation) {
		t.Fatalf("expected ErrIntegrityViolation, got %v", err)
	}
}

func TestOpenWrongAddress(t *testing.T) {
	v := testVault(t)

	blob, err := v.Seal("addr-a", []byte("secret"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := v.Open("addr-b", blob); !errors.Is(err, ErrIntegrityViolation) {
		t.Fatalf("expected ErrIntegrityViolation, got %v", err)
	}
}

func TestOpenTruncatedBlob(t *testing.T) {
	v := testVault(t)
	if _, err := v.Open("addr", []byte{0x01, 0x02}); !errors.Is(err, ErrIntegrityViolation) {
		t.Fatalf("expected ErrIntegrityViolation, got %v", err)
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New([]byte("short")); err == nil {
		t.Fatal("expected error for short master key")
	}
}
