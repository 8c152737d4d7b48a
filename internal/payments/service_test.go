package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SendrPay/SendrPay-sub002/internal/chain"
	"github.com/SendrPay/SendrPay-sub002/internal/identity"
	"github.com/SendrPay/SendrPay-sub002/internal/logging"
	"github.com/SendrPay/SendrPay-sub002/internal/notification"
	"github.com/SendrPay/SendrPay-sub002/internal/pending"
	"github.com/SendrPay/SendrPay-sub002/internal/token"
	"github.com/SendrPay/SendrPay-sub002/internal/transfer"
	"github.com/SendrPay/SendrPay-sub002/internal/vault"
	"github.com/SendrPay/SendrPay-sub002/internal/wallet"
)

type testNotifier struct {
	msgs []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.msgs = append(n.msgs, msg)
	return nil
}

type fixture struct {
	svc      *Service
	resolver *identity.Resolver
	wallets  *wallet.Service
	sim      *chain.Simulator
	notifier *testNotifier
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()
	v, err := vault.New(make([]byte, 32))
	require.NoError(t, err)

	walletSvc := wallet.NewService(wallet.NewMemoryRepository(), v)
	sim := chain.NewSimulator(5_000)
	engine := transfer.NewEngine(sim, transfer.NewMemoryRepository(), transfer.Config{
		FeeAccount:     "fee-account",
		FeeRateBps:     500,
		RentReserve:    890_880,
		NetworkFee:     5_000,
		ConfirmTimeout: time.Second,
	}, logging.Discard())

	notifier := &testNotifier{}
	resolver := identity.NewResolver(identity.NewMemoryRepository())
	svc := NewService(
		resolver,
		walletSvc,
		token.NewMemoryRepository(),
		pending.NewStore(ttl),
		engine,
		notifier,
	)

	// Recipients must already be known; only the payer is created on first
	// interaction.
	_, err = resolver.EnsureUser(context.Background(), identity.PlatformTelegram, "bob")
	require.NoError(t, err)

	return &fixture{svc: svc, resolver: resolver, wallets: walletSvc, sim: sim, notifier: notifier}
}

func TestInitiateThenConfirm(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	quote, err := f.svc.Initiate(ctx, InitiateInput{
		Platform:    identity.PlatformTelegram,
		PayerHandle: "alice",
		Target:      "@bob",
		Amount:      100_000_000,
		Note:        "lunch",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5_000_000), quote.Fee)
	assert.Equal(t, int64(95_000_000), quote.Net)
	assert.Equal(t, "SOL", quote.Ticker)
	assert.NotEmpty(t, quote.PendingID)

	payerWallet, err := f.wallets.Active(ctx, quote.PayerID)
	require.NoError(t, err)
	f.sim.SetBalance(payerWallet.Address, 200_000_000)

	res, err := f.svc.Confirm(ctx, quote.PendingID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusConfirmed, res.Status)
	assert.NotEmpty(t, res.Signature)
	// The payee wallet was empty, so the payer also funded the reserve.
	assert.Equal(t, int64(890_880), res.TopUp)

	payeeWallet, err := f.wallets.Active(ctx, quote.PayeeID)
	require.NoError(t, err)
	payeeBalance, _ := f.sim.GetBalance(ctx, payeeWallet.Address)
	assert.Equal(t, int64(95_000_000+890_880), payeeBalance)

	require.Len(t, f.notifier.msgs, 1)
	assert.Equal(t, notification.KindPaymentReceived, f.notifier.msgs[0].Kind)
	assert.Equal(t, quote.PayeeID, f.notifier.msgs[0].UserID)
}

func TestConfirmIsSingleUse(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	quote, err := f.svc.Initiate(ctx, InitiateInput{
		Platform:    identity.PlatformTelegram,
		PayerHandle: "alice",
		Target:      "@bob",
		Amount:      1_000_000,
	})
	require.NoError(t, err)

	payerWallet, err := f.wallets.Active(ctx, quote.PayerID)
	require.NoError(t, err)
	f.sim.SetBalance(payerWallet.Address, 10_000_000)

	_, err = f.svc.Confirm(ctx, quote.PendingID)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, quote.PendingID)
	require.ErrorIs(t, err, ErrUnknownPending)
}

func TestConfirmExpiredIntent(t *testing.T) {
	f := newFixture(t, -time.Second)
	ctx := context.Background()

	quote, err := f.svc.Initiate(ctx, InitiateInput{
		Platform:    identity.PlatformTelegram,
		PayerHandle: "alice",
		Target:      "@bob",
		Amount:      1_000_000,
	})
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, quote.PendingID)
	require.ErrorIs(t, err, ErrUnknownPending)
}

func TestInitiateSelfPayment(t *testing.T) {
	f := newFixture(t, time.Minute)

	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		Platform:    identity.PlatformTelegram,
		PayerHandle: "alice",
		Target:      "@alice",
		Amount:      1_000,
	})
	require.ErrorIs(t, err, ErrSelfPayment)
}

func TestInitiateUnknownRecipient(t *testing.T) {
	f := newFixture(t, time.Minute)

	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		Platform:    identity.PlatformTelegram,
		PayerHandle: "alice",
		Target:      "@nobody",
		Amount:      1_000,
	})
	require.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestInitiateUnknownToken(t *testing.T) {
	f := newFixture(t, time.Minute)

	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		Platform:    identity.PlatformTelegram,
		PayerHandle: "alice",
		Target:      "@bob",
		Amount:      1_000,
		Ticker:      "DOGE",
	})
	require.ErrorIs(t, err, token.ErrUnknownToken)
}

func TestDecline(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	quote, err := f.svc.Initiate(ctx, InitiateInput{
		Platform:    identity.PlatformTelegram,
		PayerHandle: "alice",
		Target:      "@bob",
		Amount:      1_000,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Decline(ctx, quote.PendingID))
	require.ErrorIs(t, f.svc.Decline(ctx, quote.PendingID), ErrUnknownPending)
	_, err = f.svc.Confirm(ctx, quote.PendingID)
	require.ErrorIs(t, err, ErrUnknownPending)
}
