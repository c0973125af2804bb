package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapCore/internal/model"
)

// AddLiquidity deposits into the pair's pool at its current price
// ratio, minting liquidity shares to recipient. On an empty pool both
// desired amounts are taken as-is and shares equal the geometric mean
// of the deposit; otherwise the deposit is fitted to the reserve ratio
// and the caller's minimums bound the acceptable slippage. Returned
// amounts are in the caller's token order.
//
// A deposit aborted after its first ledger leg refunds the moved
// tokens and restores pool state, but the allowance consumed by that
// leg stays consumed: approvals are caller-owned and the engine has no
// authority to restore them.
func (e *Engine) AddLiquidity(ctx context.Context, caller, tokenA, tokenB common.Address, amountADesired, amountBDesired, amountAMin, amountBMin *big.Int, recipient common.Address, deadline uint64) (amountA, amountB, sharesMinted *big.Int, err error) {
	pool, err := e.registry.ResolvePool(tokenA, tokenB)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := e.checkDeadline(deadline); err != nil {
		return nil, nil, nil, err
	}
	if recipient == (common.Address{}) {
		return nil, nil, nil, ErrInvalidRecipient
	}
	if amountADesired == nil || amountBDesired == nil || amountADesired.Sign() <= 0 || amountBDesired.Sign() <= 0 {
		return nil, nil, nil, ErrZeroAmount
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()

	aIsToken0 := tokenA == pool.Token0
	reserveA, reserveB := orient(pool.reserve0, pool.reserve1, aIsToken0)

	amountA, amountB, err = fitDeposit(amountADesired, amountBDesired, amountAMin, amountBMin, reserveA, reserveB)
	if err != nil {
		return nil, nil, nil, err
	}

	amount0, amount1 := orient(amountA, amountB, aIsToken0)

	if pool.totalShares.Sign() == 0 {
		sharesMinted = sqrtFloor(new(big.Int).Mul(amount0, amount1))
	} else {
		minted0 := new(big.Int).Mul(amount0, pool.totalShares)
		minted0.Div(minted0, pool.reserve0)
		minted1 := new(big.Int).Mul(amount1, pool.totalShares)
		minted1.Div(minted1, pool.reserve1)
		sharesMinted = minBig(minted0, minted1)
	}
	if sharesMinted.Sign() <= 0 {
		return nil, nil, nil, ErrInsufficientLiquidityMinted
	}

	if err := checkReserveBound(new(big.Int).Add(pool.reserve0, amount0)); err != nil {
		return nil, nil, nil, err
	}
	if err := checkReserveBound(new(big.Int).Add(pool.reserve1, amount1)); err != nil {
		return nil, nil, nil, err
	}

	// Bookkeeping commits before the ledger legs run; a failed leg
	// restores the snapshot and refunds whatever already moved.
	snapshot := pool.snapshotLocked()
	pool.reserve0.Add(pool.reserve0, amount0)
	pool.reserve1.Add(pool.reserve1, amount1)
	pool.totalShares.Add(pool.totalShares, sharesMinted)
	pool.creditSharesLocked(recipient, sharesMinted)

	account := pool.Account()
	if err := e.ledger.TransferFrom(pool.Token0, caller, account, account, amount0); err != nil {
		pool.restoreLocked(snapshot)
		pool.debitSharesLocked(recipient, sharesMinted)
		return nil, nil, nil, err
	}
	if err := e.ledger.TransferFrom(pool.Token1, caller, account, account, amount1); err != nil {
		if refundErr := e.ledger.Transfer(pool.Token0, account, caller, amount0); refundErr != nil {
			e.logger.Error("refund after failed deposit leg", zap.Error(refundErr), zap.String("token", pool.Token0.Hex()))
		}
		pool.restoreLocked(snapshot)
		pool.debitSharesLocked(recipient, sharesMinted)
		return nil, nil, nil, err
	}

	e.logger.Info("liquidity added",
		zap.String("token0", pool.Token0.Hex()),
		zap.String("token1", pool.Token1.Hex()),
		zap.String("amount0", amount0.String()),
		zap.String("amount1", amount1.String()),
		zap.String("shares", sharesMinted.String()),
	)
	e.emit(ctx, pool, model.EventLiquidityAdded, model.LiquidityAddedEvent{
		Amount0:      amount0.String(),
		Amount1:      amount1.String(),
		SharesMinted: sharesMinted.String(),
		Recipient:    recipient.Hex(),
	})

	return amountA, amountB, sharesMinted, nil
}

// RemoveLiquidity burns sharesToBurn of caller's position and pays out
// the pro-rata reserves to recipient, floor division favoring the
// pool. Returned amounts are in the caller's token order.
func (e *Engine) RemoveLiquidity(ctx context.Context, caller, tokenA, tokenB common.Address, sharesToBurn, amountAMin, amountBMin *big.Int, recipient common.Address, deadline uint64) (amountA, amountB *big.Int, err error) {
	pool, err := e.registry.ResolvePool(tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	if err := e.checkDeadline(deadline); err != nil {
		return nil, nil, err
	}
	if recipient == (common.Address{}) {
		return nil, nil, ErrInvalidRecipient
	}
	if sharesToBurn == nil || sharesToBurn.Sign() <= 0 {
		return nil, nil, ErrZeroLiquidity
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.totalShares.Sign() == 0 {
		return nil, nil, ErrEmptyPool
	}
	if pool.sharesOfLocked(caller).Cmp(sharesToBurn) < 0 {
		return nil, nil, ErrInsufficientShares
	}

	amount0 := new(big.Int).Mul(sharesToBurn, pool.reserve0)
	amount0.Div(amount0, pool.totalShares)
	amount1 := new(big.Int).Mul(sharesToBurn, pool.reserve1)
	amount1.Div(amount1, pool.totalShares)

	aIsToken0 := tokenA == pool.Token0
	amountA, amountB = orient(amount0, amount1, aIsToken0)
	if amountAMin != nil && amountA.Cmp(amountAMin) < 0 {
		return nil, nil, ErrSlippageA
	}
	if amountBMin != nil && amountB.Cmp(amountBMin) < 0 {
		return nil, nil, ErrSlippageB
	}

	snapshot := pool.snapshotLocked()
	pool.reserve0.Sub(pool.reserve0, amount0)
	pool.reserve1.Sub(pool.reserve1, amount1)
	pool.totalShares.Sub(pool.totalShares, sharesToBurn)
	pool.debitSharesLocked(caller, sharesToBurn)

	account := pool.Account()
	if err := e.ledger.Transfer(pool.Token0, account, recipient, amount0); err != nil {
		pool.restoreLocked(snapshot)
		pool.creditSharesLocked(caller, sharesToBurn)
		return nil, nil, err
	}
	if err := e.ledger.Transfer(pool.Token1, account, recipient, amount1); err != nil {
		if refundErr := e.ledger.Transfer(pool.Token0, recipient, account, amount0); refundErr != nil {
			e.logger.Error("refund after failed withdrawal leg", zap.Error(refundErr), zap.String("token", pool.Token0.Hex()))
		}
		pool.restoreLocked(snapshot)
		pool.creditSharesLocked(caller, sharesToBurn)
		return nil, nil, err
	}

	e.logger.Info("liquidity removed",
		zap.String("token0", pool.Token0.Hex()),
		zap.String("token1", pool.Token1.Hex()),
		zap.String("amount0", amount0.String()),
		zap.String("amount1", amount1.String()),
		zap.String("shares", sharesToBurn.String()),
	)
	e.emit(ctx, pool, model.EventLiquidityRemoved, model.LiquidityRemovedEvent{
		Amount0:      amount0.String(),
		Amount1:      amount1.String(),
		SharesBurned: sharesToBurn.String(),
		Recipient:    recipient.Hex(),
	})

	return amountA, amountB, nil
}

// Donate tops up a seeded pool's reserves without minting shares,
// raising the value of every outstanding share.
func (e *Engine) Donate(ctx context.Context, caller, tokenA, tokenB common.Address, amountA, amountB *big.Int) error {
	pool, err := e.registry.ResolvePool(tokenA, tokenB)
	if err != nil {
		return err
	}
	if amountA == nil {
		amountA = new(big.Int)
	}
	if amountB == nil {
		amountB = new(big.Int)
	}
	if amountA.Sign() < 0 || amountB.Sign() < 0 || (amountA.Sign() == 0 && amountB.Sign() == 0) {
		return ErrZeroAmount
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()

	// A donation into an empty pool would leave a partial-zero reserve
	// state with no shares outstanding.
	if pool.totalShares.Sign() == 0 {
		return ErrEmptyPool
	}

	aIsToken0 := tokenA == pool.Token0
	amount0, amount1 := orient(amountA, amountB, aIsToken0)

	if err := checkReserveBound(new(big.Int).Add(pool.reserve0, amount0)); err != nil {
		return err
	}
	if err := checkReserveBound(new(big.Int).Add(pool.reserve1, amount1)); err != nil {
		return err
	}

	snapshot := pool.snapshotLocked()
	pool.reserve0.Add(pool.reserve0, amount0)
	pool.reserve1.Add(pool.reserve1, amount1)

	account := pool.Account()
	if amount0.Sign() > 0 {
		if err := e.ledger.TransferFrom(pool.Token0, caller, account, account, amount0); err != nil {
			pool.restoreLocked(snapshot)
			return err
		}
	}
	if amount1.Sign() > 0 {
		if err := e.ledger.TransferFrom(pool.Token1, caller, account, account, amount1); err != nil {
			if amount0.Sign() > 0 {
				if refundErr := e.ledger.Transfer(pool.Token0, account, caller, amount0); refundErr != nil {
					e.logger.Error("refund after failed donation leg", zap.Error(refundErr), zap.String("token", pool.Token0.Hex()))
				}
			}
			pool.restoreLocked(snapshot)
			return err
		}
	}

	e.logger.Info("donation",
		zap.String("token0", pool.Token0.Hex()),
		zap.String("token1", pool.Token1.Hex()),
		zap.String("amount0", amount0.String()),
		zap.String("amount1", amount1.String()),
	)
	return nil
}

// fitDeposit matches a desired deposit to the pool's reserve ratio,
// operating in the caller's token orientation. Empty pool: both desired
// amounts are accepted as the bootstrap deposit.
func fitDeposit(amountADesired, amountBDesired, amountAMin, amountBMin, reserveA, reserveB *big.Int) (amountA, amountB *big.Int, err error) {
	if reserveA.Sign() == 0 && reserveB.Sign() == 0 {
		return new(big.Int).Set(amountADesired), new(big.Int).Set(amountBDesired), nil
	}

	amountBOptimal := quoteProportional(amountADesired, reserveB, reserveA)
	if amountBOptimal.Cmp(amountBDesired) <= 0 {
		if amountBMin != nil && amountBOptimal.Cmp(amountBMin) < 0 {
			return nil, nil, ErrSlippageB
		}
		return new(big.Int).Set(amountADesired), amountBOptimal, nil
	}

	amountAOptimal := quoteProportional(amountBDesired, reserveA, reserveB)
	if amountAOptimal.Cmp(amountADesired) > 0 {
		return nil, nil, ErrInsufficientAAmount
	}
	if amountAMin != nil && amountAOptimal.Cmp(amountAMin) < 0 {
		return nil, nil, ErrSlippageA
	}
	return amountAOptimal, new(big.Int).Set(amountBDesired), nil
}

func orient(first, second *big.Int, firstIsToken0 bool) (*big.Int, *big.Int) {
	if firstIsToken0 {
		return first, second
	}
	return second, first
}
