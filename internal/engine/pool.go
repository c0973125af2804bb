package engine

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Pool holds the reserve ledger for one canonical token pair. Token0 is
// strictly less than Token1 under byte ordering. A pool is either empty
// (both reserves and totalShares zero) or seeded (both reserves
// positive); no other state is reachable.
type Pool struct {
	Token0 common.Address
	Token1 common.Address

	// mu serializes every read-modify-commit sequence on this pool,
	// including the external ledger legs, so a reentrant or concurrent
	// call never observes intermediate state.
	mu sync.Mutex

	reserve0    *big.Int
	reserve1    *big.Int
	totalShares *big.Int
	positions   map[common.Address]*big.Int
}

func newPool(token0, token1 common.Address) *Pool {
	return &Pool{
		Token0:      token0,
		Token1:      token1,
		reserve0:    new(big.Int),
		reserve1:    new(big.Int),
		totalShares: new(big.Int),
		positions:   make(map[common.Address]*big.Int),
	}
}

// Account derives the address holding this pool's token balances on the
// external ledger.
func (p *Pool) Account() common.Address {
	return common.BytesToAddress(crypto.Keccak256(p.Token0.Bytes(), p.Token1.Bytes())[12:])
}

// Reserves returns copies of the current reserves and total shares.
func (p *Pool) Reserves() (reserve0, reserve1, totalShares *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.reserve0), new(big.Int).Set(p.reserve1), new(big.Int).Set(p.totalShares)
}

// SharesOf returns a copy of holder's share balance.
func (p *Pool) SharesOf(holder common.Address) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.sharesOfLocked(holder))
}

func (p *Pool) sharesOfLocked(holder common.Address) *big.Int {
	if shares, ok := p.positions[holder]; ok {
		return shares
	}
	return new(big.Int)
}

func (p *Pool) creditSharesLocked(holder common.Address, shares *big.Int) {
	current, ok := p.positions[holder]
	if !ok {
		current = new(big.Int)
		p.positions[holder] = current
	}
	current.Add(current, shares)
}

func (p *Pool) debitSharesLocked(holder common.Address, shares *big.Int) {
	current := p.positions[holder]
	current.Sub(current, shares)
	if current.Sign() == 0 {
		delete(p.positions, holder)
	}
}

// poolState is a snapshot used to restore the pool when a ledger leg
// fails after bookkeeping has been committed.
type poolState struct {
	reserve0    *big.Int
	reserve1    *big.Int
	totalShares *big.Int
}

func (p *Pool) snapshotLocked() poolState {
	return poolState{
		reserve0:    new(big.Int).Set(p.reserve0),
		reserve1:    new(big.Int).Set(p.reserve1),
		totalShares: new(big.Int).Set(p.totalShares),
	}
}

func (p *Pool) restoreLocked(s poolState) {
	p.reserve0.Set(s.reserve0)
	p.reserve1.Set(s.reserve1)
	p.totalShares.Set(s.totalShares)
}
