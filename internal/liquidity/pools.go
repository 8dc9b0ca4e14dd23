package liquidity

import (
	"smc-analyst/internal/structure"
)

// PoolSide names which side of price the resting liquidity sits on.
// Buy-side liquidity rests above swing highs, sell-side below swing lows.
type PoolSide string

const (
	BuySide  PoolSide = "BUY_SIDE"
	SellSide PoolSide = "SELL_SIDE"
)

// Pool represents a cluster of swing levels where stop orders accumulate
type Pool struct {
	Side    PoolSide `json:"side"`
	Level   float64  `json:"level"`
	Touches int      `json:"touches"` // Swing points merged into this level
}

// PoolDetector clusters swing levels into liquidity pools
type PoolDetector struct {
	tolerance float64 // Relative distance for merging levels
}

// NewPoolDetector creates a pool detector with the given merge tolerance
func NewPoolDetector(tolerance float64) *PoolDetector {
	if tolerance <= 0 {
		tolerance = 0.001 // Default 0.1% clustering
	}
	return &PoolDetector{tolerance: tolerance}
}

// Detect clusters swing highs into buy-side pools and swing lows into
// sell-side pools. Levels within tolerance merge into their average.
func (pd *PoolDetector) Detect(highs, lows []structure.SwingPoint) []Pool {
	var pools []Pool
	pools = append(pools, pd.cluster(highs, BuySide)...)
	pools = append(pools, pd.cluster(lows, SellSide)...)
	return pools
}

func (pd *PoolDetector) cluster(swings []structure.SwingPoint, side PoolSide) []Pool {
	var pools []Pool

	for _, sw := range swings {
		merged := false
		for i := range pools {
			if relDiff(sw.Price, pools[i].Level) < pd.tolerance {
				// Running average keeps the level representative
				n := float64(pools[i].Touches)
				pools[i].Level = (pools[i].Level*n + sw.Price) / (n + 1)
				pools[i].Touches++
				merged = true
				break
			}
		}
		if !merged {
			pools = append(pools, Pool{Side: side, Level: sw.Price, Touches: 1})
		}
	}

	return pools
}

func relDiff(a, b float64) float64 {
	if b == 0 {
		return 1
	}
	d := (a - b) / b
	if d < 0 {
		return -d
	}
	return d
}
