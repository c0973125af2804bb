package engine

import (
	"bytes"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type pairKey struct {
	token0, token1 common.Address
}

// Registry owns every Pool record. Pools are created implicitly,
// zero-valued, on first resolution; creation and lookup share one lock
// so two first-deposits cannot both believe they are bootstrapping
// separate records.
type Registry struct {
	mu    sync.RWMutex
	pools map[pairKey]*Pool
}

func NewRegistry() *Registry {
	return &Registry{pools: make(map[pairKey]*Pool)}
}

// SortTokens canonicalizes a token pair so that (A,B) and (B,A) always
// resolve to the same pool.
func SortTokens(tokenA, tokenB common.Address) (token0, token1 common.Address, err error) {
	if tokenA == tokenB {
		return common.Address{}, common.Address{}, ErrIdenticalTokens
	}
	if tokenA == (common.Address{}) || tokenB == (common.Address{}) {
		return common.Address{}, common.Address{}, ErrZeroToken
	}
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB, nil
	}
	return tokenB, tokenA, nil
}

// ResolvePool returns the canonical pool for the pair, creating a
// zero-valued record on first access.
func (r *Registry) ResolvePool(tokenA, tokenB common.Address) (*Pool, error) {
	token0, token1, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	key := pairKey{token0: token0, token1: token1}

	r.mu.RLock()
	pool, ok := r.pools[key]
	r.mu.RUnlock()
	if ok {
		return pool, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if pool, ok := r.pools[key]; ok {
		return pool, nil
	}
	pool = newPool(token0, token1)
	r.pools[key] = pool
	return pool, nil
}

// Pools returns every registered pool.
func (r *Registry) Pools() []*Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Pool, 0, len(r.pools))
	for _, pool := range r.pools {
		out = append(out, pool)
	}
	return out
}
