package simulate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapCore/internal/engine"
	"swapCore/internal/ledger"
	"swapCore/internal/model"
)

// PoolStore persists final pool snapshots after a replay.
type PoolStore interface {
	UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error
}

// Config controls replay behavior.
type Config struct {
	BatchSize  int
	StateStore StateStore
}

// Runner replays an operations JSONL file through the engine. Engine
// rejections are counted and logged, never abort the replay; malformed
// lines likewise.
type Runner struct {
	cfg    Config
	engine *engine.Engine
	tokens *ledger.MemoryLedger
	clock  *Clock
	pools  PoolStore
	logger *zap.Logger
}

func NewRunner(cfg Config, e *engine.Engine, tokens *ledger.MemoryLedger, clock *Clock, pools PoolStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		engine: e,
		tokens: tokens,
		clock:  clock,
		pools:  pools,
		logger: logger,
	}
}

// Run executes the replay over an operations JSONL file.
func (r *Runner) Run(ctx context.Context, inputPath string) error {
	if r.engine == nil {
		return fmt.Errorf("engine is nil")
	}
	if r.tokens == nil {
		return fmt.Errorf("token ledger is nil")
	}
	if r.cfg.BatchSize <= 0 {
		r.cfg.BatchSize = 1000
	}

	var lastApplied uint64
	if r.cfg.StateStore != nil {
		seq, ok, err := r.cfg.StateStore.Load(ctx)
		if err != nil {
			return err
		}
		if ok {
			lastApplied = seq
			r.logger.Info("resume from state", zap.Uint64("last_applied_seq", lastApplied))
		}
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, applied, rejected, skipped, failed int
	sinceSave := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var op model.Operation
		if err := json.Unmarshal(line, &op); err != nil {
			failed++
			r.logger.Warn("decode operation", zap.Error(err))
			continue
		}

		if op.Seq <= lastApplied {
			skipped++
			continue
		}

		if r.clock != nil {
			r.clock.Set(op.Timestamp)
		}
		r.engine.AlignEventSeq(op.Seq)

		if err := r.apply(ctx, op); err != nil {
			rejected++
			r.logger.Warn("operation rejected", zap.Error(err), zap.Uint64("seq", op.Seq), zap.String("type", op.Type))
		} else {
			applied++
		}
		lastApplied = op.Seq
		sinceSave++

		if r.cfg.StateStore != nil && sinceSave >= r.cfg.BatchSize {
			if err := r.cfg.StateStore.Save(ctx, lastApplied); err != nil {
				return err
			}
			sinceSave = 0
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if r.cfg.StateStore != nil {
		if err := r.cfg.StateStore.Save(ctx, lastApplied); err != nil {
			return err
		}
	}

	if err := r.flushPools(ctx); err != nil {
		return err
	}

	r.logger.Info("replay complete",
		zap.Int("total", total),
		zap.Int("applied", applied),
		zap.Int("rejected", rejected),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (r *Runner) apply(ctx context.Context, op model.Operation) error {
	caller, err := parseAddress(op.Caller)
	if err != nil {
		return fmt.Errorf("caller: %w", err)
	}
	tokenA, err := parseAddress(op.TokenA)
	if err != nil {
		return fmt.Errorf("token_a: %w", err)
	}

	// Mint and approve are ledger-seeding operations; token_b is only
	// required where a pool pair is involved.
	if op.Type == model.OpMint {
		amount, err := parseUnsigned(op.AmountA)
		if err != nil {
			return err
		}
		r.tokens.Mint(tokenA, caller, amount)
		return nil
	}

	tokenB, err := parseAddress(op.TokenB)
	if err != nil {
		return fmt.Errorf("token_b: %w", err)
	}

	switch op.Type {
	case model.OpApprove:
		amount, err := parseUnsigned(op.AmountA)
		if err != nil {
			return err
		}
		spender, err := r.resolveSpender(op, tokenA, tokenB)
		if err != nil {
			return err
		}
		r.tokens.Approve(tokenA, caller, spender, amount)
		return nil

	case model.OpAddLiquidity:
		amountA, err := parseBigInt(op.AmountA)
		if err != nil {
			return err
		}
		amountB, err := parseBigInt(op.AmountB)
		if err != nil {
			return err
		}
		amountAMin, err := parseOptionalBigInt(op.AmountAMin)
		if err != nil {
			return err
		}
		amountBMin, err := parseOptionalBigInt(op.AmountBMin)
		if err != nil {
			return err
		}
		recipient, err := recipientOrCaller(op.Recipient, caller)
		if err != nil {
			return err
		}
		_, _, _, err = r.engine.AddLiquidity(ctx, caller, tokenA, tokenB, amountA, amountB, amountAMin, amountBMin, recipient, op.Deadline)
		return err

	case model.OpRemoveLiquidity:
		shares, err := parseBigInt(op.Shares)
		if err != nil {
			return err
		}
		amountAMin, err := parseOptionalBigInt(op.AmountAMin)
		if err != nil {
			return err
		}
		amountBMin, err := parseOptionalBigInt(op.AmountBMin)
		if err != nil {
			return err
		}
		recipient, err := recipientOrCaller(op.Recipient, caller)
		if err != nil {
			return err
		}
		_, _, err = r.engine.RemoveLiquidity(ctx, caller, tokenA, tokenB, shares, amountAMin, amountBMin, recipient, op.Deadline)
		return err

	case model.OpSwap:
		amountIn, err := parseBigInt(op.AmountIn)
		if err != nil {
			return err
		}
		amountOutMin, err := parseOptionalBigInt(op.AmountOutMin)
		if err != nil {
			return err
		}
		recipient, err := recipientOrCaller(op.Recipient, caller)
		if err != nil {
			return err
		}
		_, err = r.engine.SwapExactInput(ctx, caller, amountIn, amountOutMin, tokenA, tokenB, recipient, op.Deadline)
		return err

	case model.OpDonate:
		amountA, err := parseBigInt(op.AmountA)
		if err != nil {
			return err
		}
		amountB, err := parseBigInt(op.AmountB)
		if err != nil {
			return err
		}
		return r.engine.Donate(ctx, caller, tokenA, tokenB, amountA, amountB)

	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
}

// resolveSpender defaults an approve's spender to the pair's pool
// account when the operation leaves it empty.
func (r *Runner) resolveSpender(op model.Operation, tokenA, tokenB common.Address) (common.Address, error) {
	if op.Spender != "" {
		return parseAddress(op.Spender)
	}
	pool, err := r.engine.Registry().ResolvePool(tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	return pool.Account(), nil
}

func (r *Runner) flushPools(ctx context.Context) error {
	if r.pools == nil {
		return nil
	}
	registered := r.engine.Registry().Pools()
	snapshots := make([]model.PoolSnapshot, 0, len(registered))
	for _, pool := range registered {
		reserve0, reserve1, total := pool.Reserves()
		snapshots = append(snapshots, model.PoolSnapshot{
			Token0:      pool.Token0.Hex(),
			Token1:      pool.Token1.Hex(),
			Reserve0:    reserve0.String(),
			Reserve1:    reserve1.String(),
			TotalShares: total.String(),
		})
	}
	if err := r.pools.UpsertPools(ctx, snapshots); err != nil {
		return fmt.Errorf("store pools: %w", err)
	}
	return nil
}

func parseAddress(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address: %s", value)
	}
	return common.HexToAddress(value), nil
}

func recipientOrCaller(value string, caller common.Address) (common.Address, error) {
	if value == "" {
		return caller, nil
	}
	return parseAddress(value)
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

// parseUnsigned guards the ledger-seeding operations: mint and approve
// bypass the engine, so negative journal amounts would drive balances
// or allowances negative without it.
func parseUnsigned(value string) (*big.Int, error) {
	parsed, err := parseBigInt(value)
	if err != nil {
		return nil, err
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", value)
	}
	return parsed, nil
}

func parseOptionalBigInt(value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	return parseBigInt(value)
}
