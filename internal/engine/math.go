package engine

import "math/big"

// fee: 0.3% => multiplier 997/1000
var (
	feeMul = big.NewInt(997)
	feeDen = big.NewInt(1000)
)

// MaxReserve bounds each reserve to 112 bits, matching the width the
// downstream fixed-point math assumes.
var MaxReserve = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 112), big.NewInt(1))

// PriceScale is the fixed-point multiplier used by GetPrice.
var PriceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// GetAmountOut computes the exact-input swap output under the constant
// product formula with the 0.3% fee, floored so rounding always favors
// the pool:
//
//	amountOut = amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997)
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrZeroInput
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrNoLiquidity
	}

	amountInWithFee := new(big.Int).Mul(amountIn, feeMul)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, feeDen)
	denominator.Add(denominator, amountInWithFee)

	return numerator.Div(numerator, denominator), nil
}

// quoteProportional computes amount * reserveOther / reserveBase with
// floor division.
func quoteProportional(amount, reserveOther, reserveBase *big.Int) *big.Int {
	out := new(big.Int).Mul(amount, reserveOther)
	return out.Div(out, reserveBase)
}

// sqrtFloor returns floor(sqrt(x)) for non-negative x.
func sqrtFloor(x *big.Int) *big.Int {
	return new(big.Int).Sqrt(x)
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
