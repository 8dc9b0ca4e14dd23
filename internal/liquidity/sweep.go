package liquidity

import (
	"time"

	"smc-analyst/internal/market"
	"smc-analyst/internal/structure"
)

// Sweep records a wick through a swing level that was immediately rejected:
// the candle's extreme pierced the level but its close recovered back
// inside it.
type Sweep struct {
	Side        PoolSide  `json:"side"`  // BUY_SIDE swept a high, SELL_SIDE swept a low
	Level       float64   `json:"level"` // The swing level that was pierced
	Extreme     float64   `json:"extreme"`
	Rejection   float64   `json:"rejection"` // |close - extreme|
	CandleIndex int       `json:"candle_index"`
	Timestamp   time.Time `json:"timestamp"`
}

// SweepDetector finds liquidity sweeps of recent swing levels
type SweepDetector struct {
	maxSwingAge int // Only sweep levels formed within this many candles
}

// NewSweepDetector creates a sweep detector. maxSwingAge bounds how far
// back a swing level stays sweepable.
func NewSweepDetector(maxSwingAge int) *SweepDetector {
	if maxSwingAge <= 0 {
		maxSwingAge = 50
	}
	return &SweepDetector{maxSwingAge: maxSwingAge}
}

// Detect scans candles after each swing for a pierce-and-reject of the
// swing level. Only the first sweep of each level is reported.
func (sd *SweepDetector) Detect(candles []market.Candle, highs, lows []structure.SwingPoint) []Sweep {
	var sweeps []Sweep

	for _, sw := range highs {
		for i := sw.Index + 1; i < len(candles) && i <= sw.Index+sd.maxSwingAge; i++ {
			c := candles[i]
			if c.Close > sw.Price {
				break // Level broken, not swept
			}
			if c.High > sw.Price && c.Close < sw.Price {
				sweeps = append(sweeps, Sweep{
					Side:        BuySide,
					Level:       sw.Price,
					Extreme:     c.High,
					Rejection:   c.High - c.Close,
					CandleIndex: i,
					Timestamp:   c.Timestamp,
				})
				break
			}
		}
	}

	for _, sw := range lows {
		for i := sw.Index + 1; i < len(candles) && i <= sw.Index+sd.maxSwingAge; i++ {
			c := candles[i]
			if c.Close < sw.Price {
				break
			}
			if c.Low < sw.Price && c.Close > sw.Price {
				sweeps = append(sweeps, Sweep{
					Side:        SellSide,
					Level:       sw.Price,
					Extreme:     c.Low,
					Rejection:   c.Close - c.Low,
					CandleIndex: i,
					Timestamp:   c.Timestamp,
				})
				break
			}
		}
	}

	return sweeps
}
