package engine

import "errors"

// Every operation either commits fully or returns one of these; callers
// branch on the error kind with errors.Is.
var (
	ErrIdenticalTokens  = errors.New("identical tokens")
	ErrZeroToken        = errors.New("zero token address")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrExpired          = errors.New("deadline expired")
	ErrZeroAmount       = errors.New("zero amount")
	ErrZeroInput        = errors.New("zero input amount")
	ErrZeroLiquidity    = errors.New("zero liquidity")

	ErrInsufficientAAmount         = errors.New("insufficient A amount")
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientShares          = errors.New("insufficient shares")

	ErrNoLiquidity      = errors.New("no liquidity")
	ErrSlippageA        = errors.New("amount A below minimum")
	ErrSlippageB        = errors.New("amount B below minimum")
	ErrSlippageExceeded = errors.New("output below minimum")

	ErrEmptyPool       = errors.New("empty pool")
	ErrReserveOverflow = errors.New("reserve overflow")
)
