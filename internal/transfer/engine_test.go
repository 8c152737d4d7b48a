package transfer

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SendrPay/SendrPay-sub002/internal/chain"
	"github.com/SendrPay/SendrPay-sub002/internal/logging"
	"github.com/SendrPay/SendrPay-sub002/internal/token"
	"github.com/SendrPay/SendrPay-sub002/internal/wallet"
)

const (
	testFeeAccount  = "platform-fee-account"
	testRentReserve = 890_880
	testNetworkFee  = 5_000
)

func testEngine(t *testing.T) (*Engine, *chain.Simulator, Repository) {
	t.Helper()
	sim := chain.NewSimulator(testNetworkFee)
	records := NewMemoryRepository()
	engine := NewEngine(sim, records, Config{
		FeeAccount:     testFeeAccount,
		FeeRateBps:     500,
		RentReserve:    testRentReserve,
		NetworkFee:     testNetworkFee,
		ConfirmTimeout: time.Second,
	}, logging.Discard())
	return engine, sim, records
}

func custodialWallet(t *testing.T, userID int64) (wallet.Wallet, ed25519.PrivateKey) {
	t.Helper()
	address, priv, err := chain.NewKeypair()
	require.NoError(t, err)
	return wallet.Wallet{
		ID:      uuid.New().String(),
		UserID:  userID,
		Address: address,
		Active:  true,
	}, priv
}

func TestSplitFeeExact(t *testing.T) {
	for _, amount := range []int64{1, 3, 7, 100_000_000} {
		fee, net := SplitFee(amount, 500)
		assert.Equal(t, amount, fee+net, "fee + net must equal amount for %d", amount)
		assert.Equal(t, amount*500/10_000, fee)
	}
	fee, net := SplitFee(100_000_000, 500)
	assert.Equal(t, int64(5_000_000), fee)
	assert.Equal(t, int64(95_000_000), net)
}

func TestSettleZeroBalancePayeeGetsReserve(t *testing.T) {
	engine, sim, _ := testEngine(t)
	ctx := context.Background()

	payer, priv := custodialWallet(t, 1)
	payee, _ := custodialWallet(t, 2)
	sim.SetBalance(payer.Address, 10_000_000)
	sim.SetBalance(payee.Address, 0)

	res, err := engine.Settle(ctx, SettleInput{
		PayerWallet: payer,
		PayeeWallet: payee,
		SigningKey:  priv,
		Amount:      1_000_000,
		Token:       token.NativeToken(),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, res.Status)
	assert.Equal(t, int64(testRentReserve), res.FundingTopUp)

	payeeBal, _ := sim.GetBalance(ctx, payee.Address)
	assert.Equal(t, res.Net+int64(testRentReserve), payeeBal)
}

func TestSettleFundedPayeeGetsNoReserve(t *testing.T) {
	engine, sim, _ := testEngine(t)
	ctx := context.Background()

	payer, priv := custodialWallet(t, 1)
	payee, _ := custodialWallet(t, 2)
	sim.SetBalance(payer.Address, 10_000_000)
	sim.SetBalance(payee.Address, 1)

	res, err := engine.Settle(ctx, SettleInput{
		PayerWallet: payer,
		PayeeWallet: payee,
		SigningKey:  priv,
		Amount:      1_000_000,
		Token:       token.NativeToken(),
	})
	require.NoError(t, err)
	assert.Zero(t, res.FundingTopUp)

	payeeBal, _ := sim.GetBalance(ctx, payee.Address)
	assert.Equal(t, res.Net+1, payeeBal)
}

func TestSettleInsufficientFundsNoSideEffects(t *testing.T) {
	engine, sim, _ := testEngine(t)
	ctx := context.Background()

	payer, priv := custodialWallet(t, 1)
	payee, _ := custodialWallet(t, 2)
	sim.SetBalance(payer.Address, 1_000_000)
	sim.SetBalance(payee.Address, 1)

	_, err := engine.Settle(ctx, SettleInput{
		PayerWallet: payer,
		PayeeWallet: payee,
		SigningKey:  priv,
		Amount:      1_000_000, // fails: network fee cannot be covered
		Token:       token.NativeToken(),
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	payerBal, _ := sim.GetBalance(ctx, payer.Address)
	payeeBal, _ := sim.GetBalance(ctx, payee.Address)
	assert.Equal(t, int64(1_000_000), payerBal, "no partial submission on insufficient funds")
	assert.Equal(t, int64(1), payeeBal)
}

func TestSettleLedgerRejected(t *testing.T) {
	engine, sim, records := testEngine(t)
	ctx := context.Background()

	payer, priv := custodialWallet(t, 1)
	payee, _ := custodialWallet(t, 2)
	sim.SetBalance(payer.Address, 10_000_000)
	sim.SetBalance(payee.Address, 1)
	sim.RejectNext("blockhash expired")

	res, err := engine.Settle(ctx, SettleInput{
		PayerWallet: payer,
		PayeeWallet: payee,
		SigningKey:  priv,
		Amount:      1_000_000,
		Token:       token.NativeToken(),
		Reference:   "ref-rejected",
	})
	require.ErrorIs(t, err, ErrSettlementFailed)
	assert.Contains(t, err.Error(), "blockhash expired")
	assert.Equal(t, StatusFailed, res.Status)

	rec, err := records.FindByReference(ctx, "ref-rejected")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
}

func TestSettleTimeoutIsIndeterminate(t *testing.T) {
	engine, sim, records := testEngine(t)
	engine.cfg.ConfirmTimeout = 30 * time.Millisecond
	ctx := context.Background()

	payer, priv := custodialWallet(t, 1)
	payee, _ := custodialWallet(t, 2)
	sim.SetBalance(payer.Address, 10_000_000)
	sim.SetBalance(payee.Address, 1)
	sim.StallNext()

	res, err := engine.Settle(ctx, SettleInput{
		PayerWallet: payer,
		PayeeWallet: payee,
		SigningKey:  priv,
		Amount:      1_000_000,
		Token:       token.NativeToken(),
		Reference:   "ref-stalled",
	})
	require.ErrorIs(t, err, ErrIndeterminate)
	assert.NotErrorIs(t, err, ErrSettlementFailed)
	assert.Equal(t, StatusIndeterminate, res.Status)
	assert.NotEmpty(t, res.Signature, "broadcast happened, signature must be reported")

	rec, err := records.FindByReference(ctx, "ref-stalled")
	require.NoError(t, err)
	assert.Equal(t, StatusIndeterminate, rec.Status)
}

func TestSettleEndToEnd(t *testing.T) {
	engine, sim, records := testEngine(t)
	ctx := context.Background()

	payer, priv := custodialWallet(t, 1)
	payee, _ := custodialWallet(t, 2)
	sim.SetBalance(payer.Address, 200_000_000)
	sim.SetBalance(payee.Address, 0)

	res, err := engine.Settle(ctx, SettleInput{
		PayerWallet: payer,
		PayeeWallet: payee,
		SigningKey:  priv,
		Amount:      100_000_000,
		Token:       token.NativeToken(),
		Reference:   "ref-e2e",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, res.Status)
	assert.Equal(t, int64(5_000_000), res.Fee)
	assert.Equal(t, int64(95_000_000), res.Net)
	assert.Equal(t, int64(testRentReserve), res.FundingTopUp)

	payerBal, _ := sim.GetBalance(ctx, payer.Address)
	payeeBal, _ := sim.GetBalance(ctx, payee.Address)
	feeBal, _ := sim.GetBalance(ctx, testFeeAccount)
	assert.Equal(t, int64(200_000_000-100_000_000-testRentReserve-testNetworkFee), payerBal)
	assert.Equal(t, int64(95_000_000+testRentReserve), payeeBal)
	assert.Equal(t, int64(5_000_000), feeBal)

	rec, err := records.FindByReference(ctx, "ref-e2e")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, rec.Status)
	assert.Equal(t, res.Signature, rec.Signature)
}

func TestSettleConcurrentSamePayerSerialized(t *testing.T) {
	engine, sim, _ := testEngine(t)
	ctx := context.Background()

	payer, priv := custodialWallet(t, 1)
	payee, _ := custodialWallet(t, 2)
	// Enough for exactly one payment.
	sim.SetBalance(payer.Address, 1_000_000+testNetworkFee)
	sim.SetBalance(payee.Address, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Settle(ctx, SettleInput{
				PayerWallet: payer,
				PayeeWallet: payee,
				SigningKey:  priv,
				Amount:      1_000_000,
				Token:       token.NativeToken(),
			})
		}(i)
	}
	wg.Wait()

	confirmed, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			confirmed++
		default:
			require.ErrorIs(t, err, ErrInsufficientFunds)
			insufficient++
		}
	}
	assert.Equal(t, 1, confirmed, "exactly one settlement must land")
	assert.Equal(t, 1, insufficient)
}
