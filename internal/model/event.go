package model

import "encoding/json"

// Event type names used in EventRecord.EventName.
const (
	EventLiquidityAdded   = "liquidity_added"
	EventLiquidityRemoved = "liquidity_removed"
	EventSwap             = "swap"
)

// EventRecord is the envelope persisted for every committed operation.
// Amounts are decimal strings so arbitrary-width integers survive JSON.
type EventRecord struct {
	Seq       uint64          `json:"seq"`
	EventName string          `json:"event_name"`
	Timestamp uint64          `json:"timestamp"`
	Token0    string          `json:"token0"`
	Token1    string          `json:"token1"`
	Decoded   json.RawMessage `json:"decoded"`
}

// LiquidityAddedEvent is the decoded payload for a deposit.
type LiquidityAddedEvent struct {
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SharesMinted string `json:"shares_minted"`
	Recipient    string `json:"recipient"`
}

// LiquidityRemovedEvent is the decoded payload for a withdrawal.
type LiquidityRemovedEvent struct {
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SharesBurned string `json:"shares_burned"`
	Recipient    string `json:"recipient"`
}

// SwapEvent is the decoded payload for an exact-input swap.
type SwapEvent struct {
	Caller    string `json:"caller"`
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Recipient string `json:"recipient"`
}
