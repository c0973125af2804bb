package ledger

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type balanceKey struct {
	token, holder common.Address
}

type allowanceKey struct {
	token, owner, spender common.Address
}

// MemoryLedger is an in-memory TokenLedger used by tests and the replay
// pipeline. All amounts are copied on the way in and out.
type MemoryLedger struct {
	mu         sync.Mutex
	balances   map[balanceKey]*big.Int
	allowances map[allowanceKey]*big.Int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[balanceKey]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

// Mint credits freshly issued units to holder. Test and replay seeding
// only; the engine never mints.
func (l *MemoryLedger) Mint(token, holder common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balanceLocked(token, holder).Add(l.balanceLocked(token, holder), amount)
}

func (l *MemoryLedger) BalanceOf(token, holder common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balanceLocked(token, holder))
}

// Allowance reports the remaining approved spend for spender against
// owner's balance.
func (l *MemoryLedger) Allowance(token, owner, spender common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.allowanceLocked(token, owner, spender))
}

func (l *MemoryLedger) Transfer(token, from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.moveLocked(token, from, to, amount)
}

func (l *MemoryLedger) TransferFrom(token, owner, spender, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := l.allowanceLocked(token, owner, spender)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.moveLocked(token, owner, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

func (l *MemoryLedger) Approve(token, owner, spender common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowanceLocked(token, owner, spender).Set(amount)
}

func (l *MemoryLedger) moveLocked(token, from, to common.Address, amount *big.Int) error {
	fromBalance := l.balanceLocked(token, from)
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	fromBalance.Sub(fromBalance, amount)
	l.balanceLocked(token, to).Add(l.balanceLocked(token, to), amount)
	return nil
}

func (l *MemoryLedger) balanceLocked(token, holder common.Address) *big.Int {
	key := balanceKey{token: token, holder: holder}
	balance, ok := l.balances[key]
	if !ok {
		balance = new(big.Int)
		l.balances[key] = balance
	}
	return balance
}

func (l *MemoryLedger) allowanceLocked(token, owner, spender common.Address) *big.Int {
	key := allowanceKey{token: token, owner: owner, spender: spender}
	allowance, ok := l.allowances[key]
	if !ok {
		allowance = new(big.Int)
		l.allowances[key] = allowance
	}
	return allowance
}
