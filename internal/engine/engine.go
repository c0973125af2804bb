package engine

import (
	"context"
	"encoding/json"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapCore/internal/ledger"
	"swapCore/internal/model"
	"swapCore/internal/sink"
)

// Engine performs all pool mutations. It owns a Registry, debits and
// credits through the injected TokenLedger, and reports committed
// operations to the optional EventSink. Operations on distinct pools
// run concurrently; operations on one pool are serialized by the
// pool's own lock.
type Engine struct {
	registry *Registry
	ledger   ledger.TokenLedger
	events   sink.EventSink
	logger   *zap.Logger
	now      func() time.Time
	seq      atomic.Uint64
}

// NewEngine builds an Engine with its dependencies. A nil sink disables
// event reporting; a nil logger is replaced with a no-op one.
func NewEngine(registry *Registry, tokenLedger ledger.TokenLedger, events sink.EventSink, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry: registry,
		ledger:   tokenLedger,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Deadline checks and event
// timestamps use it.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// AlignEventSeq makes the next emitted event carry seq. Replay calls
// it with each operation's journal sequence so event numbering follows
// the journal and a resumed run never reissues sequence numbers a
// previous process already persisted.
func (e *Engine) AlignEventSeq(seq uint64) {
	e.seq.Store(seq - 1)
}

// Registry exposes the pool registry for read-side callers.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// GetReserves returns the reserves oriented to the caller's token
// order, plus the pool's total shares.
func (e *Engine) GetReserves(tokenA, tokenB common.Address) (reserveA, reserveB, totalShares *big.Int, err error) {
	pool, err := e.registry.ResolvePool(tokenA, tokenB)
	if err != nil {
		return nil, nil, nil, err
	}
	reserve0, reserve1, total := pool.Reserves()
	if tokenA == pool.Token0 {
		return reserve0, reserve1, total, nil
	}
	return reserve1, reserve0, total, nil
}

// GetPrice returns reserveB * PriceScale / reserveA, the fixed-point
// price of tokenA denominated in tokenB.
func (e *Engine) GetPrice(tokenA, tokenB common.Address) (*big.Int, error) {
	reserveA, reserveB, _, err := e.GetReserves(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	if reserveA.Sign() == 0 || reserveB.Sign() == 0 {
		return nil, ErrNoLiquidity
	}
	price := new(big.Int).Mul(reserveB, PriceScale)
	return price.Div(price, reserveA), nil
}

// LiquidityBalance returns holder's share balance in the pair's pool.
func (e *Engine) LiquidityBalance(tokenA, tokenB, holder common.Address) (*big.Int, error) {
	pool, err := e.registry.ResolvePool(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	return pool.SharesOf(holder), nil
}

func (e *Engine) checkDeadline(deadline uint64) error {
	if deadline < uint64(e.now().Unix()) {
		return ErrExpired
	}
	return nil
}

func checkReserveBound(reserve *big.Int) error {
	if reserve.Cmp(MaxReserve) > 0 {
		return ErrReserveOverflow
	}
	return nil
}

// emit reports a committed operation. Sink failures are logged and
// swallowed: observability is best-effort, bookkeeping is not.
func (e *Engine) emit(ctx context.Context, pool *Pool, eventName string, payload any) {
	if e.events == nil {
		return
	}
	decoded, err := json.Marshal(payload)
	if err != nil {
		e.logger.Warn("encode event", zap.Error(err), zap.String("event", eventName))
		return
	}
	record := model.EventRecord{
		Seq:       e.seq.Add(1),
		EventName: eventName,
		Timestamp: uint64(e.now().Unix()),
		Token0:    pool.Token0.Hex(),
		Token1:    pool.Token1.Hex(),
		Decoded:   decoded,
	}
	if err := e.events.PutEventBatch(ctx, []model.EventRecord{record}); err != nil {
		e.logger.Warn("sink event", zap.Error(err), zap.String("event", eventName), zap.Uint64("seq", record.Seq))
	}
}
