package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"swapCore/internal/ledger"
)

func TestAddLiquidityBootstrap(t *testing.T) {
	e, l := newTestEngine(t)
	amountX := bigInt(t, "100000000000000000000") // 100e18
	amountY := bigInt(t, "200000000")             // 200e6
	fund(t, e, l, alice, amountX, amountY)

	gotX, gotY, shares, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		amountX, amountY, nil, nil, alice, testNow+60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotX.Cmp(amountX) != 0 || gotY.Cmp(amountY) != 0 {
		t.Fatalf("bootstrap must take desired amounts: %s %s", gotX, gotY)
	}
	// floor(sqrt(100e18 * 200e6))
	if shares.Cmp(bigInt(t, "141421356237309")) != 0 {
		t.Fatalf("shares mismatch: got %s", shares)
	}

	reserveX, reserveY, total, err := e.GetReserves(tokenX, tokenY)
	if err != nil {
		t.Fatalf("get reserves: %v", err)
	}
	if reserveX.Cmp(amountX) != 0 || reserveY.Cmp(amountY) != 0 {
		t.Fatalf("reserves mismatch: %s %s", reserveX, reserveY)
	}
	if total.Cmp(shares) != 0 {
		t.Fatalf("total shares mismatch: %s != %s", total, shares)
	}

	balance, err := e.LiquidityBalance(tokenX, tokenY, alice)
	if err != nil {
		t.Fatalf("liquidity balance: %v", err)
	}
	if balance.Cmp(shares) != 0 {
		t.Fatalf("position mismatch: %s != %s", balance, shares)
	}
}

func TestAddLiquidityProportional(t *testing.T) {
	e, l := newTestEngine(t)
	fund(t, e, l, alice, bigInt(t, "100000000000000000000"), bigInt(t, "200000000"))
	_, _, seedShares, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		bigInt(t, "100000000000000000000"), bigInt(t, "200000000"), nil, nil, alice, testNow+60)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Desired 10e18 / 40e6: pool ratio needs only 20e6 of Y.
	fund(t, e, l, bob, bigInt(t, "10000000000000000000"), bigInt(t, "40000000"))
	gotX, gotY, shares, err := e.AddLiquidity(context.Background(), bob, tokenX, tokenY,
		bigInt(t, "10000000000000000000"), bigInt(t, "40000000"),
		bigInt(t, "10000000000000000000"), bigInt(t, "20000000"), bob, testNow+60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotX.Cmp(bigInt(t, "10000000000000000000")) != 0 {
		t.Fatalf("amountX mismatch: %s", gotX)
	}
	if gotY.Cmp(bigInt(t, "20000000")) != 0 {
		t.Fatalf("amountY must be fitted to ratio: %s", gotY)
	}
	// min(10e18*T/100e18, 20e6*T/200e6) = T/10
	wantShares := new(big.Int).Div(seedShares, big.NewInt(10))
	if shares.Cmp(wantShares) != 0 {
		t.Fatalf("shares mismatch: got %s want %s", shares, wantShares)
	}
}

func TestAddLiquidityReversedOrder(t *testing.T) {
	e, l := newTestEngine(t)
	fund(t, e, l, alice, bigInt(t, "100000000000000000000"), bigInt(t, "200000000"))

	// Caller passes (Y, X); returned amounts follow the caller's order.
	gotY, gotX, _, err := e.AddLiquidity(context.Background(), alice, tokenY, tokenX,
		bigInt(t, "200000000"), bigInt(t, "100000000000000000000"), nil, nil, alice, testNow+60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotY.Cmp(bigInt(t, "200000000")) != 0 || gotX.Cmp(bigInt(t, "100000000000000000000")) != 0 {
		t.Fatalf("caller-order amounts mismatch: %s %s", gotY, gotX)
	}

	reserveX, reserveY, _, err := e.GetReserves(tokenX, tokenY)
	if err != nil {
		t.Fatalf("get reserves: %v", err)
	}
	if reserveX.Cmp(bigInt(t, "100000000000000000000")) != 0 || reserveY.Cmp(bigInt(t, "200000000")) != 0 {
		t.Fatalf("canonical reserves mismatch: %s %s", reserveX, reserveY)
	}
}

func TestAddLiquiditySlippage(t *testing.T) {
	e, l := newTestEngine(t)
	fund(t, e, l, alice, bigInt(t, "1000000"), bigInt(t, "2000000"))
	_, _, _, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		bigInt(t, "1000000"), bigInt(t, "2000000"), nil, nil, alice, testNow+60)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	fund(t, e, l, bob, bigInt(t, "1000000"), bigInt(t, "2000000"))

	// Fitted Y would be 200, below the caller's minimum of 300.
	_, _, _, err = e.AddLiquidity(context.Background(), bob, tokenX, tokenY,
		bigInt(t, "100"), bigInt(t, "400"), nil, bigInt(t, "300"), bob, testNow+60)
	if !errors.Is(err, ErrSlippageB) {
		t.Fatalf("expected ErrSlippageB, got %v", err)
	}

	// Fitted X would be 100, below the caller's minimum of 150.
	_, _, _, err = e.AddLiquidity(context.Background(), bob, tokenX, tokenY,
		bigInt(t, "400"), bigInt(t, "200"), bigInt(t, "150"), nil, bob, testNow+60)
	if !errors.Is(err, ErrSlippageA) {
		t.Fatalf("expected ErrSlippageA, got %v", err)
	}
}

func TestAddLiquidityExpired(t *testing.T) {
	e, l := newTestEngine(t)
	fund(t, e, l, alice, bigInt(t, "1000"), bigInt(t, "1000"))
	balanceBefore := l.BalanceOf(tokenX, alice)

	_, _, _, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		bigInt(t, "1000"), bigInt(t, "1000"), nil, nil, alice, testNow-1)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	if l.BalanceOf(tokenX, alice).Cmp(balanceBefore) != 0 {
		t.Fatalf("expired call must not move tokens")
	}
}

func TestAddLiquidityDegenerateShares(t *testing.T) {
	e, l := newTestEngine(t)
	fund(t, e, l, alice, bigInt(t, "100000000000000000000"), bigInt(t, "200000000"))
	_, _, _, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		bigInt(t, "100000000000000000000"), bigInt(t, "200000000"), nil, nil, alice, testNow+60)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	reserveXBefore, _, _, _ := e.GetReserves(tokenX, tokenY)

	// One unit of each against huge reserves mints zero shares.
	fund(t, e, l, bob, bigInt(t, "1"), bigInt(t, "1"))
	_, _, _, err = e.AddLiquidity(context.Background(), bob, tokenX, tokenY,
		bigInt(t, "1"), bigInt(t, "1"), nil, nil, bob, testNow+60)
	if !errors.Is(err, ErrInsufficientLiquidityMinted) {
		t.Fatalf("expected ErrInsufficientLiquidityMinted, got %v", err)
	}

	reserveXAfter, _, _, _ := e.GetReserves(tokenX, tokenY)
	if reserveXBefore.Cmp(reserveXAfter) != 0 {
		t.Fatalf("failed deposit must leave reserves unchanged")
	}
}

func TestAddLiquidityValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	one := big.NewInt(1)

	_, _, _, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenX, one, one, nil, nil, alice, testNow+60)
	if !errors.Is(err, ErrIdenticalTokens) {
		t.Fatalf("expected ErrIdenticalTokens, got %v", err)
	}

	_, _, _, err = e.AddLiquidity(context.Background(), alice, tokenX, tokenY, one, one, nil, nil, common.Address{}, testNow+60)
	if !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}

	_, _, _, err = e.AddLiquidity(context.Background(), alice, tokenX, tokenY, big.NewInt(0), one, nil, nil, alice, testNow+60)
	if !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestAddLiquidityAllowancePropagation(t *testing.T) {
	e, l := newTestEngine(t)
	// Balance but no approval.
	l.Mint(tokenX, alice, bigInt(t, "1000"))
	l.Mint(tokenY, alice, bigInt(t, "1000"))

	_, _, _, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		bigInt(t, "1000"), bigInt(t, "1000"), nil, nil, alice, testNow+60)
	if !errors.Is(err, ledger.ErrInsufficientAllowance) {
		t.Fatalf("expected ledger.ErrInsufficientAllowance, got %v", err)
	}

	_, _, total, _ := e.GetReserves(tokenX, tokenY)
	if total.Sign() != 0 {
		t.Fatalf("failed deposit must not mint shares")
	}
}

func TestAddLiquidityAbortedDepositKeepsAllowanceConsumed(t *testing.T) {
	e, l := newTestEngine(t)
	pool, err := e.Registry().ResolvePool(tokenX, tokenY)
	if err != nil {
		t.Fatalf("resolve pool: %v", err)
	}
	account := pool.Account()

	// Balance for X only; the Y leg fails on balance after the X leg
	// already moved.
	l.Mint(tokenX, alice, bigInt(t, "1000"))
	l.Approve(tokenX, alice, account, bigInt(t, "1000"))
	l.Approve(tokenY, alice, account, bigInt(t, "1000"))

	_, _, _, err = e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		bigInt(t, "1000"), bigInt(t, "1000"), nil, nil, alice, testNow+60)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ledger.ErrInsufficientBalance, got %v", err)
	}

	if l.BalanceOf(tokenX, alice).Cmp(bigInt(t, "1000")) != 0 {
		t.Fatalf("refund must restore the balance: %s", l.BalanceOf(tokenX, alice))
	}
	// Allowance consumed by the refunded leg is not restored.
	if l.Allowance(tokenX, alice, account).Sign() != 0 {
		t.Fatalf("allowance unexpectedly restored: %s", l.Allowance(tokenX, alice, account))
	}
	_, _, total, _ := e.GetReserves(tokenX, tokenY)
	if total.Sign() != 0 {
		t.Fatalf("aborted deposit must not mint shares")
	}
}

// failingLedger refuses transfers of one token, exercising the
// compensation paths.
type failingLedger struct {
	*ledger.MemoryLedger
	failToken common.Address
}

func (f *failingLedger) Transfer(token, from, to common.Address, amount *big.Int) error {
	if token == f.failToken {
		return ledger.ErrInsufficientBalance
	}
	return f.MemoryLedger.Transfer(token, from, to, amount)
}

func TestRemoveLiquidityFailedPayoutRollsBack(t *testing.T) {
	l := ledger.NewMemoryLedger()
	fl := &failingLedger{MemoryLedger: l, failToken: tokenY}
	e := NewEngine(NewRegistry(), fl, nil, nil)
	e.SetClock(func() time.Time { return time.Unix(int64(testNow), 0).UTC() })

	fund(t, e, l, alice, bigInt(t, "1000"), bigInt(t, "1000"))
	_, _, shares, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		bigInt(t, "1000"), bigInt(t, "1000"), nil, nil, alice, testNow+60)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, _, err = e.RemoveLiquidity(context.Background(), alice, tokenX, tokenY,
		shares, nil, nil, bob, testNow+60)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ledger.ErrInsufficientBalance, got %v", err)
	}

	// The completed first payout leg is reversed out of the recipient
	// and the pool bookkeeping restored.
	if l.BalanceOf(tokenX, bob).Sign() != 0 {
		t.Fatalf("recipient kept the reversed payout: %s", l.BalanceOf(tokenX, bob))
	}
	reserveX, reserveY, total, _ := e.GetReserves(tokenX, tokenY)
	if reserveX.Cmp(bigInt(t, "1000")) != 0 || reserveY.Cmp(bigInt(t, "1000")) != 0 {
		t.Fatalf("reserves not restored: %s %s", reserveX, reserveY)
	}
	if total.Cmp(shares) != 0 {
		t.Fatalf("total shares not restored: %s", total)
	}
	balance, _ := e.LiquidityBalance(tokenX, tokenY, alice)
	if balance.Cmp(shares) != 0 {
		t.Fatalf("caller position not restored: %s", balance)
	}
}

func TestRemoveLiquidityRoundTrip(t *testing.T) {
	e, l := newTestEngine(t)
	amountX := bigInt(t, "123456789")
	amountY := bigInt(t, "987654321")
	fund(t, e, l, alice, amountX, amountY)

	_, _, shares, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		amountX, amountY, nil, nil, alice, testNow+60)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	gotX, gotY, err := e.RemoveLiquidity(context.Background(), alice, tokenX, tokenY,
		shares, nil, nil, alice, testNow+60)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	if gotX.Cmp(amountX) > 0 || gotY.Cmp(amountY) > 0 {
		t.Fatalf("withdrawal exceeds deposit: %s %s", gotX, gotY)
	}

	reserveX, reserveY, total, _ := e.GetReserves(tokenX, tokenY)
	if reserveX.Sign() != 0 || reserveY.Sign() != 0 || total.Sign() != 0 {
		t.Fatalf("full withdrawal must drain the pool: %s %s %s", reserveX, reserveY, total)
	}

	// The drained pool re-seeds at an unrelated ratio.
	fund(t, e, l, bob, bigInt(t, "5000"), bigInt(t, "5000"))
	_, _, reseeded, err := e.AddLiquidity(context.Background(), bob, tokenX, tokenY,
		bigInt(t, "5000"), bigInt(t, "5000"), nil, nil, bob, testNow+60)
	if err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	if reseeded.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("re-seed shares mismatch: %s", reseeded)
	}
}

func TestRemoveLiquidityPartial(t *testing.T) {
	e, l := newTestEngine(t)
	fund(t, e, l, alice, bigInt(t, "1000000"), bigInt(t, "4000000"))
	_, _, shares, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		bigInt(t, "1000000"), bigInt(t, "4000000"), nil, nil, alice, testNow+60)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	half := new(big.Int).Div(shares, big.NewInt(2))
	gotX, gotY, err := e.RemoveLiquidity(context.Background(), alice, tokenX, tokenY,
		half, bigInt(t, "1"), bigInt(t, "1"), bob, testNow+60)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	if l.BalanceOf(tokenX, bob).Cmp(gotX) != 0 || l.BalanceOf(tokenY, bob).Cmp(gotY) != 0 {
		t.Fatalf("recipient did not receive the withdrawal")
	}

	remaining, _ := e.LiquidityBalance(tokenX, tokenY, alice)
	want := new(big.Int).Sub(shares, half)
	if remaining.Cmp(want) != 0 {
		t.Fatalf("remaining shares mismatch: %s != %s", remaining, want)
	}
}

func TestRemoveLiquidityErrors(t *testing.T) {
	e, l := newTestEngine(t)

	_, _, err := e.RemoveLiquidity(context.Background(), alice, tokenX, tokenY,
		big.NewInt(1), nil, nil, alice, testNow+60)
	if !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("expected ErrEmptyPool, got %v", err)
	}

	fund(t, e, l, alice, bigInt(t, "10000"), bigInt(t, "10000"))
	_, _, shares, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		bigInt(t, "10000"), bigInt(t, "10000"), nil, nil, alice, testNow+60)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, _, err = e.RemoveLiquidity(context.Background(), alice, tokenX, tokenY,
		big.NewInt(0), nil, nil, alice, testNow+60)
	if !errors.Is(err, ErrZeroLiquidity) {
		t.Fatalf("expected ErrZeroLiquidity, got %v", err)
	}

	over := new(big.Int).Add(shares, big.NewInt(1))
	_, _, err = e.RemoveLiquidity(context.Background(), alice, tokenX, tokenY,
		over, nil, nil, alice, testNow+60)
	if !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}

	_, _, err = e.RemoveLiquidity(context.Background(), bob, tokenX, tokenY,
		big.NewInt(1), nil, nil, bob, testNow+60)
	if !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares for non-holder, got %v", err)
	}

	_, _, err = e.RemoveLiquidity(context.Background(), alice, tokenX, tokenY,
		shares, new(big.Int).Add(bigInt(t, "10000"), big.NewInt(1)), nil, alice, testNow+60)
	if !errors.Is(err, ErrSlippageA) {
		t.Fatalf("expected ErrSlippageA, got %v", err)
	}
}

func TestDonate(t *testing.T) {
	e, l := newTestEngine(t)

	fund(t, e, l, alice, bigInt(t, "2000"), bigInt(t, "2000"))
	if err := e.Donate(context.Background(), alice, tokenX, tokenY, bigInt(t, "100"), bigInt(t, "100")); !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("donation into empty pool must fail: %v", err)
	}

	_, _, shares, err := e.AddLiquidity(context.Background(), alice, tokenX, tokenY,
		bigInt(t, "1000"), bigInt(t, "1000"), nil, nil, alice, testNow+60)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := e.Donate(context.Background(), alice, tokenX, tokenY, bigInt(t, "500"), bigInt(t, "300")); err != nil {
		t.Fatalf("donate: %v", err)
	}

	reserveX, reserveY, total, _ := e.GetReserves(tokenX, tokenY)
	if reserveX.Cmp(bigInt(t, "1500")) != 0 || reserveY.Cmp(bigInt(t, "1300")) != 0 {
		t.Fatalf("reserves mismatch after donation: %s %s", reserveX, reserveY)
	}
	if total.Cmp(shares) != 0 {
		t.Fatalf("donation must not mint shares")
	}
}
