package chain

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// NewKeypair generates an ed25519 keypair and returns the base58 address
// derived from the public key alongside the private key.
func NewKeypair() (string, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, fmt.Errorf("generate keypair: %w", err)
	}
	return AddressFromPublicKey(pub), priv, nil
}

// AddressFromPublicKey encodes a public key as a base58 ledger address.
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

// PrivateKeyFromSeed reconstructs a private key from stored seed bytes.
func PrivateKeyFromSeed(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
