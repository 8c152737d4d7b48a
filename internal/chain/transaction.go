package chain

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Transfer moves lamports (or token units when Mint is set) between two
// addresses as part of an atomic transaction.
type Transfer struct {
	From   string
	To     string
	Amount int64
	Mint   string
}

// Transaction is a signed, atomic batch of transfers. All transfers land
// together or not at all.
type Transaction struct {
	FeePayer  string
	BlockRef  string
	Transfers []Transfer
	Signature string

	sig []byte
}

// NewTransaction builds an unsigned transaction anchored to a recent block
// reference.
func NewTransaction(feePayer, blockRef string, transfers ...Transfer) *Transaction {
	return &Transaction{FeePayer: feePayer, BlockRef: blockRef, Transfers: transfers}
}

// Message returns the deterministic byte serialization that is signed and
// submitted. Field order is fixed; strings are length-prefixed.
func (t *Transaction) Message() []byte {
	var buf bytes.Buffer
	buf.WriteByte(1) // message format version
	writeString(&buf, t.BlockRef)
	writeString(&buf, t.FeePayer)
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(t.Transfers)))
	buf.Write(count[:])
	for _, tr := range t.Transfers {
		writeString(&buf, tr.From)
		writeString(&buf, tr.To)
		writeString(&buf, tr.Mint)
		var amount [8]byte
		binary.LittleEndian.PutUint64(amount[:], uint64(tr.Amount))
		buf.Write(amount[:])
	}
	return buf.Bytes()
}

// Sign signs the message with the fee payer's private key and records the
// base58 signature used as the transaction identifier.
func (t *Transaction) Sign(priv ed25519.PrivateKey) error {
	if len(priv) != ed25519.PrivateKeySize {
		return errors.New("invalid private key size")
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok || AddressFromPublicKey(pub) != t.FeePayer {
		return errors.New("signing key does not match fee payer")
	}
	t.sig = ed25519.Sign(priv, t.Message())
	t.Signature = base58.Encode(t.sig)
	return nil
}

// Verify checks the signature against the fee payer's address.
func (t *Transaction) Verify() error {
	pub, err := base58.Decode(t.FeePayer)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid fee payer address")
	}
	sig := t.sig
	if sig == nil {
		if sig, err = base58.Decode(t.Signature); err != nil {
			return fmt.Errorf("invalid signature encoding")
		}
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), t.Message(), sig) {
		return errors.New("signature verification failed")
	}
	return nil
}

// Wire returns the serialized signed transaction: message followed by the
// 64-byte signature.
func (t *Transaction) Wire() ([]byte, error) {
	if t.sig == nil {
		return nil, errors.New("transaction is unsigned")
	}
	return append(t.Message(), t.sig...), nil
}

func writeString(buf *bytes.Buffer, s string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
}
