package ledger

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Errors surfaced verbatim to engine callers; the engine never wraps
// them into its own kinds.
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// TokenLedger is the external fungible-token collaborator. The engine
// debits and credits through it but never inspects or owns its state.
//
// Implementations are trusted: when the second transfer of a two-leg
// operation fails, the engine reverses the completed first leg with a
// Transfer drawn on the counterparty's balance. A ledger enforcing
// per-holder authority on Transfer would refuse that reversal; the
// path stays unreachable as long as pool account balances track the
// pool's recorded reserves.
type TokenLedger interface {
	BalanceOf(token, holder common.Address) *big.Int
	Transfer(token, from, to common.Address, amount *big.Int) error
	TransferFrom(token, owner, spender, to common.Address, amount *big.Int) error
	Approve(token, owner, spender common.Address, amount *big.Int)
}
