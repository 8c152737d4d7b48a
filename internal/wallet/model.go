package wallet

import "time"

// Wallet is a custodial ledger keypair held on a user's behalf. The private
// key is stored only as a vault-sealed blob. Exactly one wallet per user is
// active at a time; inactive wallets are retained for history and never
// reactivated automatically.
type Wallet struct {
	ID           string
	UserID       int64
	Address      string
	EncryptedKey []byte
	Active       bool
	CreatedAt    time.Time
}
