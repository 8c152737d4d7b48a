package token

import (
	"errors"
	"strings"
)

// ErrUnknownToken indicates a ticker with no registered mapping.
var ErrUnknownToken = errors.New("unknown token")

// NativeDecimals is the fixed precision of the ledger's native asset.
const NativeDecimals = 9

// Token maps a ticker symbol to a ledger asset. Immutable reference data.
type Token struct {
	Ticker   string
	Mint     string
	Decimals int
}

// Native reports whether the token is the ledger's native asset, which has
// no on-ledger mint identifier.
func (t Token) Native() bool {
	return t.Mint == ""
}

// NativeToken returns the native-asset entry.
func NativeToken() Token {
	return Token{Ticker: "SOL", Decimals: NativeDecimals}
}

// NormalizeTicker canonicalizes a user-supplied ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
