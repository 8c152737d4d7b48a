package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrIntegrityViolation indicates stored key material failed authentication.
// Callers must never proceed with signing for the affected wallet and should
// alert operators; this error is not recoverable by retrying.
var ErrIntegrityViolation = errors.New("key material failed authentication")

const masterKeySize = 32

// Vault seals custodial signing keys at rest with AES-256-GCM. Each wallet
// gets its own subkey derived from the process master key and the wallet
// address, so a blob lifted from one row cannot be opened against another.
type Vault struct {
	masterKey []byte
}

// New builds a vault around the process master key.
func New(masterKey []byte) (*Vault, error) {
	if len(masterKey) != masterKeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", masterKeySize, len(masterKey))
	}
	v := &Vault{masterKey: make([]byte, masterKeySize)}
	copy(v.masterKey, masterKey)
	return v, nil
}

// Seal encrypts secret for the wallet at address. The returned blob is
// nonce||ciphertext||tag and is the only form that ever touches storage.
func (v *Vault) Seal(address string, secret []byte) ([]byte, error) {
	gcm, err := v.cipherFor(address)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, secret, nil), nil
}

// Open decrypts a sealed blob for the wallet at address, verifying the
// authentication tag before any plaintext is released.
func (v *Vault) Open(address string, blob []byte) ([]byte, error) {
	gcm, err := v.cipherFor(address)
	if err != nil {
		return nil, err
	}

	if len(blob) < gcm.NonceSize() {
		return nil, ErrIntegrityViolation
	}

	nonce, ciphertext := blob[:gcm.NonceSize()], blob[gcm.NonceSize():]
	secret, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrIntegrityViolation
	}
	return secret, nil
}

func (v *Vault) cipherFor(address string) (cipher.AEAD, error) {
	subkey := make([]byte, masterKeySize)
	kdf := hkdf.New(sha256.New, v.masterKey, nil, []byte("wallet-key:"+address))
	if _, err := io.ReadFull(kdf, subkey); err != nil {
		return nil, fmt.Errorf("derive wallet key: %w", err)
	}

	block, err := aes.NewCipher(subkey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
