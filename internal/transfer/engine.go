package transfer

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SendrPay/SendrPay-sub002/internal/chain"
	"github.com/SendrPay/SendrPay-sub002/internal/token"
	"github.com/SendrPay/SendrPay-sub002/internal/wallet"
)

var (
	// ErrInsufficientFunds occurs when the payer cannot cover the amount,
	// funding top-up and network fee. Nothing has been submitted.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSettlementFailed indicates the ledger explicitly rejected the
	// transaction; no funds moved.
	ErrSettlementFailed = errors.New("settlement failed")

	// ErrIndeterminate indicates the transaction was broadcast but its fate
	// was not observed in time. It must never be reported as sent or failed,
	// and must not be retried without reconciliation.
	ErrIndeterminate = errors.New("settlement indeterminate")
)

// Status is the recorded terminal state of a settlement attempt.
type Status string

const (
	StatusConfirmed     Status = "confirmed"
	StatusFailed        Status = "failed"
	StatusIndeterminate Status = "indeterminate"
)

// Config carries the financial parameters the engine needs. Passed in at
// construction so the engine stays independently testable.
type Config struct {
	FeeAccount     string
	FeeRateBps     int64
	RentReserve    int64
	NetworkFee     int64
	ConfirmTimeout time.Duration
}

// SettleInput is one logical payment. Callers guarantee at most one Settle
// call per Reference (see the pending confirmation store).
type SettleInput struct {
	PayerWallet wallet.Wallet
	PayeeWallet wallet.Wallet
	SigningKey  ed25519.PrivateKey
	Amount      int64
	Token       token.Token
	Reference   string
	Note        string
}

// SettlementResult reports what happened on the ledger.
type SettlementResult struct {
	Status       Status
	Signature    string
	Amount       int64
	Fee          int64
	Net          int64
	FundingTopUp int64
}

// Engine builds, submits and confirms settlement transactions.
type Engine struct {
	chain   chain.Client
	records Repository
	cfg     Config
	logger  *slog.Logger

	payerLocks keyedMutex
}

// NewEngine constructs a transfer engine.
func NewEngine(client chain.Client, records Repository, cfg Config, logger *slog.Logger) *Engine {
	return &Engine{chain: client, records: records, cfg: cfg, logger: logger}
}

// FeeRateBps exposes the configured fee rate so callers can quote the split
// before settlement.
func (e *Engine) FeeRateBps() int64 {
	return e.cfg.FeeRateBps
}

// SplitFee computes the platform fee and net payee amount using integer
// floor division on the token's smallest unit. fee + net == amount always.
func SplitFee(amount, feeRateBps int64) (fee, net int64) {
	fee = amount * feeRateBps / 10_000
	return fee, amount - fee
}

// Settle executes one payment end to end: fee split, recipient funding
// check, sufficiency check, atomic two-transfer transaction, submission and
// bounded confirmation.
func (e *Engine) Settle(ctx context.Context, in SettleInput) (SettlementResult, error) {
	if in.Amount <= 0 {
		return SettlementResult{}, fmt.Errorf("amount must be positive")
	}
	if in.Reference == "" {
		in.Reference = ulid.Make().String()
	}

	// Serialize settlements per payer so two concurrent payments cannot
	// both pass the sufficiency check against the same balance.
	unlock := e.payerLocks.lock(in.PayerWallet.Address)
	defer unlock()

	fee, net := SplitFee(in.Amount, e.cfg.FeeRateBps)

	payeeBalance, err := e.chain.GetBalance(ctx, in.PayeeWallet.Address)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("query payee balance: %w", err)
	}
	var topUp int64
	if payeeBalance == 0 {
		topUp = e.cfg.RentReserve
	}

	payerBalance, err := e.chain.GetBalance(ctx, in.PayerWallet.Address)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("query payer balance: %w", err)
	}
	required := in.Amount + topUp + e.cfg.NetworkFee
	if payerBalance < required {
		return SettlementResult{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, required, payerBalance)
	}

	blockRef, err := e.chain.LatestBlockReference(ctx)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("fetch block reference: %w", err)
	}

	tx := e.buildTransaction(in, blockRef, net, fee, topUp)
	if err := tx.Sign(in.SigningKey); err != nil {
		return SettlementResult{}, fmt.Errorf("sign transaction: %w", err)
	}

	result := SettlementResult{
		Amount:       in.Amount,
		Fee:          fee,
		Net:          net,
		FundingTopUp: topUp,
	}

	signature, err := e.chain.SubmitTransaction(ctx, tx)
	if err != nil {
		result.Status = StatusFailed
		e.record(ctx, in, result)
		return result, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}
	result.Signature = signature

	conf, err := e.chain.ConfirmTransaction(ctx, signature, e.cfg.ConfirmTimeout)
	if err != nil {
		// The transaction is broadcast; a polling failure leaves its fate
		// unknown, not failed.
		result.Status = StatusIndeterminate
		e.record(ctx, in, result)
		return result, fmt.Errorf("%w: confirmation poll: %v", ErrIndeterminate, err)
	}

	switch conf.Status {
	case chain.ConfirmConfirmed:
		result.Status = StatusConfirmed
		e.record(ctx, in, result)
		return result, nil
	case chain.ConfirmFailed:
		result.Status = StatusFailed
		e.record(ctx, in, result)
		return result, fmt.Errorf("%w: %s", ErrSettlementFailed, conf.Reason)
	default:
		result.Status = StatusIndeterminate
		e.record(ctx, in, result)
		return result, fmt.Errorf("%w: no confirmation within %s", ErrIndeterminate, e.cfg.ConfirmTimeout)
	}
}

// buildTransaction assembles the atomic settlement transaction. The payee
// transfer carries net + topUp for the native asset; token settlements fund
// the reserve with a separate native transfer since the reserve is always
// denominated in lamports.
func (e *Engine) buildTransaction(in SettleInput, blockRef string, net, fee, topUp int64) *chain.Transaction {
	payee := chain.Transfer{
		From:   in.PayerWallet.Address,
		To:     in.PayeeWallet.Address,
		Amount: net,
		Mint:   in.Token.Mint,
	}
	platformFee := chain.Transfer{
		From:   in.PayerWallet.Address,
		To:     e.cfg.FeeAccount,
		Amount: fee,
		Mint:   in.Token.Mint,
	}

	transfers := []chain.Transfer{payee, platformFee}
	if topUp > 0 {
		if in.Token.Native() {
			transfers[0].Amount += topUp
		} else {
			transfers = append(transfers, chain.Transfer{
				From:   in.PayerWallet.Address,
				To:     in.PayeeWallet.Address,
				Amount: topUp,
			})
		}
	}
	return chain.NewTransaction(in.PayerWallet.Address, blockRef, transfers...)
}

func (e *Engine) record(ctx context.Context, in SettleInput, result SettlementResult) {
	rec := Record{
		ID:            ulid.Make().String(),
		Reference:     in.Reference,
		Signature:     result.Signature,
		PayerWalletID: in.PayerWallet.ID,
		PayeeWalletID: in.PayeeWallet.ID,
		Amount:        result.Amount,
		Fee:           result.Fee,
		TopUp:         result.FundingTopUp,
		Ticker:        in.Token.Ticker,
		Status:        result.Status,
		Note:          in.Note,
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.records.Create(ctx, rec); err != nil {
		// Funds may already have moved; the settlement outcome stands and
		// the missing record is an operational problem, not a payment one.
		e.logger.Error("persist settlement record",
			slog.String("reference", in.Reference),
			slog.String("signature", result.Signature),
			slog.Any("error", err))
	}
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
