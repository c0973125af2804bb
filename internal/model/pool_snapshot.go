package model

// PoolSnapshot is a point-in-time pool row for persistence.
type PoolSnapshot struct {
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Reserve0    string `json:"reserve0"`
	Reserve1    string `json:"reserve1"`
	TotalShares string `json:"total_shares"`
}
