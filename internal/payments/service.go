package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/SendrPay/SendrPay-sub002/internal/identity"
	"github.com/SendrPay/SendrPay-sub002/internal/notification"
	"github.com/SendrPay/SendrPay-sub002/internal/pending"
	"github.com/SendrPay/SendrPay-sub002/internal/token"
	"github.com/SendrPay/SendrPay-sub002/internal/transfer"
	"github.com/SendrPay/SendrPay-sub002/internal/wallet"
)

var (
	// ErrSelfPayment indicates payer and payee resolved to the same identity.
	ErrSelfPayment = errors.New("cannot pay yourself")

	// ErrUnknownPending indicates the confirmation id does not match a live
	// pending payment: never issued, already used, or expired.
	ErrUnknownPending = errors.New("unknown or expired pending payment")
)

// Service orchestrates the payment flow: resolve the target, quote the fee
// split, hold the intent for confirmation, then settle through the engine.
type Service struct {
	resolver *identity.Resolver
	wallets  *wallet.Service
	tokens   token.Repository
	pending  *pending.Store
	engine   *transfer.Engine
	notifier notification.Notifier
}

// NewService constructs a payment service.
func NewService(
	resolver *identity.Resolver,
	wallets *wallet.Service,
	tokens token.Repository,
	pendingStore *pending.Store,
	engine *transfer.Engine,
	notifier notification.Notifier,
) *Service {
	return &Service{
		resolver: resolver,
		wallets:  wallets,
		tokens:   tokens,
		pending:  pendingStore,
		engine:   engine,
		notifier: notifier,
	}
}

// InitiateInput captures a payment command as it arrives from a platform
// gateway, before any resolution has happened.
type InitiateInput struct {
	Platform    identity.Platform
	PayerHandle string
	Target      string
	Amount      int64
	Ticker      string
	Note        string
}

// Quote is the held payment intent returned to the payer for confirmation.
type Quote struct {
	PendingID   string
	PayerID     int64
	PayeeID     int64
	PayeeHandle string
	Amount      int64
	Fee         int64
	Net         int64
	Ticker      string
}

// ConfirmResult reports a settlement outcome to the gateway.
type ConfirmResult struct {
	Status    transfer.Status
	Signature string
	Amount    int64
	Fee       int64
	Net       int64
	TopUp     int64
	Ticker    string
}

// Initiate resolves the target, provisions both custodial wallets, quotes
// the fee split and parks the intent until the payer confirms. No funds move
// here.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (Quote, error) {
	if in.Amount <= 0 {
		return Quote{}, fmt.Errorf("amount must be positive")
	}

	payer, err := s.resolver.EnsureUser(ctx, in.Platform, in.PayerHandle)
	if err != nil {
		return Quote{}, err
	}
	payee, err := s.resolver.Resolve(ctx, in.Platform, in.Target)
	if err != nil {
		return Quote{}, err
	}
	if payee.ID == payer.ID {
		return Quote{}, ErrSelfPayment
	}

	ticker := token.NormalizeTicker(in.Ticker)
	if ticker == "" {
		ticker = token.NativeToken().Ticker
	}
	tok, err := s.tokens.FindByTicker(ctx, ticker)
	if err != nil {
		return Quote{}, err
	}

	// Wallets exist before the quote goes out so the confirm step never
	// fails on provisioning.
	if _, err := s.wallets.Provision(ctx, payer.ID); err != nil {
		return Quote{}, err
	}
	if _, err := s.wallets.Provision(ctx, payee.ID); err != nil {
		return Quote{}, err
	}

	fee, net := transfer.SplitFee(in.Amount, s.engine.FeeRateBps())

	id := s.pending.Put(pending.Payment{
		PayerID:   payer.ID,
		PayeeID:   payee.ID,
		Platform:  in.Platform,
		Amount:    in.Amount,
		Ticker:    tok.Ticker,
		Note:      in.Note,
		CreatedAt: time.Now().UTC(),
	})

	return Quote{
		PendingID:   id,
		PayerID:     payer.ID,
		PayeeID:     payee.ID,
		PayeeHandle: payeeDisplay(payee),
		Amount:      in.Amount,
		Fee:         fee,
		Net:         net,
		Ticker:      tok.Ticker,
	}, nil
}

// Confirm consumes the pending intent and settles it. The intent is removed
// before settlement starts, so a second confirm with the same id cannot
// trigger a second settlement.
func (s *Service) Confirm(ctx context.Context, pendingID string) (ConfirmResult, error) {
	p, ok := s.pending.Take(pendingID)
	if !ok {
		return ConfirmResult{}, ErrUnknownPending
	}

	payerWallet, signingKey, err := s.wallets.SigningKey(ctx, p.PayerID)
	if err != nil {
		return ConfirmResult{}, err
	}
	payeeWallet, err := s.wallets.Provision(ctx, p.PayeeID)
	if err != nil {
		return ConfirmResult{}, err
	}
	tok, err := s.tokens.FindByTicker(ctx, p.Ticker)
	if err != nil {
		return ConfirmResult{}, err
	}

	res, err := s.engine.Settle(ctx, transfer.SettleInput{
		PayerWallet: payerWallet,
		PayeeWallet: payeeWallet,
		SigningKey:  signingKey,
		Amount:      p.Amount,
		Token:       tok,
		Reference:   pendingID,
		Note:        p.Note,
	})
	out := ConfirmResult{
		Status:    res.Status,
		Signature: res.Signature,
		Amount:    res.Amount,
		Fee:       res.Fee,
		Net:       res.Net,
		TopUp:     res.FundingTopUp,
		Ticker:    tok.Ticker,
	}
	if err != nil {
		if errors.Is(err, transfer.ErrSettlementFailed) {
			s.notify(ctx, notification.Message{
				Kind:     notification.KindPaymentFailed,
				UserID:   p.PayerID,
				Platform: p.Platform,
				Body:     fmt.Sprintf("Your payment of %d %s did not go through.", p.Amount, tok.Ticker),
			})
		}
		return out, err
	}

	s.notify(ctx, notification.Message{
		Kind:     notification.KindPaymentReceived,
		UserID:   p.PayeeID,
		Platform: s.payeePlatform(ctx, p),
		Body:     fmt.Sprintf("You received %d %s.", res.Net, tok.Ticker),
	})
	return out, nil
}

// Decline discards a pending intent without settling.
func (s *Service) Decline(_ context.Context, pendingID string) error {
	if _, ok := s.pending.Take(pendingID); !ok {
		return ErrUnknownPending
	}
	return nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, msg)
}

// payeePlatform picks the platform the payee is reachable on, preferring the
// one the payment originated from.
func (s *Service) payeePlatform(ctx context.Context, p pending.Payment) identity.Platform {
	payee, err := s.resolver.Resolve(ctx, p.Platform, strconv.FormatInt(p.PayeeID, 10))
	if err != nil {
		return p.Platform
	}
	if payee.Handle(p.Platform) != "" {
		return p.Platform
	}
	if payee.Handle(p.Platform.Other()) != "" {
		return p.Platform.Other()
	}
	return p.Platform
}

func payeeDisplay(u identity.User) string {
	if u.TelegramHandle != "" {
		return "@" + u.TelegramHandle
	}
	if u.DiscordHandle != "" {
		return "@" + u.DiscordHandle
	}
	return strconv.FormatInt(u.ID, 10)
}
