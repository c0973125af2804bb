package model

// Operation type names accepted by the replay pipeline.
const (
	OpMint            = "mint"
	OpApprove         = "approve"
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpSwap            = "swap"
	OpDonate          = "donate"
)

// Operation is one line of a replay input file. Fields are shared
// across operation types; unused ones stay empty. Amounts are decimal
// strings, addresses 0x-hex. For swaps token_a is the input token and
// token_b the output token.
type Operation struct {
	Seq          uint64 `json:"seq"`
	Type         string `json:"type"`
	Caller       string `json:"caller"`
	TokenA       string `json:"token_a"`
	TokenB       string `json:"token_b,omitempty"`
	AmountA      string `json:"amount_a,omitempty"`
	AmountB      string `json:"amount_b,omitempty"`
	AmountAMin   string `json:"amount_a_min,omitempty"`
	AmountBMin   string `json:"amount_b_min,omitempty"`
	Shares       string `json:"shares,omitempty"`
	AmountIn     string `json:"amount_in,omitempty"`
	AmountOutMin string `json:"amount_out_min,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	Spender      string `json:"spender,omitempty"`
	Deadline     uint64 `json:"deadline,omitempty"`
	Timestamp    uint64 `json:"timestamp"`
}
