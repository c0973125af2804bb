package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapCore/internal/model"
)

// SwapExactInput trades amountIn of tokenIn for tokenOut at the
// constant-product price with the 0.3% fee, crediting the output to
// recipient. amountOutMin is the trader's only protection against
// price movement between quote and execution.
func (e *Engine) SwapExactInput(ctx context.Context, caller common.Address, amountIn, amountOutMin *big.Int, tokenIn, tokenOut, recipient common.Address, deadline uint64) (*big.Int, error) {
	pool, err := e.registry.ResolvePool(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	if err := e.checkDeadline(deadline); err != nil {
		return nil, err
	}
	if recipient == (common.Address{}) {
		return nil, ErrInvalidRecipient
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrZeroInput
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()

	inIsToken0 := tokenIn == pool.Token0
	reserveIn, reserveOut := orient(pool.reserve0, pool.reserve1, inIsToken0)

	amountOut, err := GetAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}
	if amountOutMin != nil && amountOut.Cmp(amountOutMin) < 0 {
		return nil, ErrSlippageExceeded
	}
	if err := checkReserveBound(new(big.Int).Add(reserveIn, amountIn)); err != nil {
		return nil, err
	}

	// The formula guarantees amountOut < reserveOut, so the out side
	// never underflows.
	snapshot := pool.snapshotLocked()
	reserveIn.Add(reserveIn, amountIn)
	reserveOut.Sub(reserveOut, amountOut)

	account := pool.Account()
	if err := e.ledger.TransferFrom(tokenIn, caller, account, account, amountIn); err != nil {
		pool.restoreLocked(snapshot)
		return nil, err
	}
	if err := e.ledger.Transfer(tokenOut, account, recipient, amountOut); err != nil {
		if refundErr := e.ledger.Transfer(tokenIn, account, caller, amountIn); refundErr != nil {
			e.logger.Error("refund after failed swap leg", zap.Error(refundErr), zap.String("token", tokenIn.Hex()))
		}
		pool.restoreLocked(snapshot)
		return nil, err
	}

	e.logger.Info("swap",
		zap.String("token_in", tokenIn.Hex()),
		zap.String("token_out", tokenOut.Hex()),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", amountOut.String()),
	)
	e.emit(ctx, pool, model.EventSwap, model.SwapEvent{
		Caller:    caller.Hex(),
		TokenIn:   tokenIn.Hex(),
		TokenOut:  tokenOut.Hex(),
		AmountIn:  amountIn.String(),
		AmountOut: amountOut.String(),
		Recipient: recipient.Hex(),
	})

	return amountOut, nil
}
