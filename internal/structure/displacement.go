package structure

import (
	"time"

	"smc-analyst/internal/market"
)

// Displacement records an abnormally large-bodied candle signaling
// aggressive directional momentum
type Displacement struct {
	Direction   Bias      `json:"direction"`
	BodySize    float64   `json:"body_size"`
	ATRMultiple float64   `json:"atr_multiple"`
	CandleIndex int       `json:"candle_index"`
	Timestamp   time.Time `json:"timestamp"`
}

// DisplacementDetector flags candles whose body exceeds a multiple of ATR
type DisplacementDetector struct {
	atrMultiplier float64
	atrPeriod     int
}

// NewDisplacementDetector creates a detector with the given ATR multiplier
func NewDisplacementDetector(atrMultiplier float64) *DisplacementDetector {
	if atrMultiplier <= 0 {
		atrMultiplier = 2.0 // Default 2x ATR
	}
	return &DisplacementDetector{
		atrMultiplier: atrMultiplier,
		atrPeriod:     14,
	}
}

// Detect scans the series for displacement candles. ATR is computed over
// the candles preceding each candidate so the candidate's own range does
// not dilute the baseline.
func (dd *DisplacementDetector) Detect(candles []market.Candle) []Displacement {
	if len(candles) < dd.atrPeriod+2 {
		return nil
	}

	var out []Displacement
	for i := dd.atrPeriod + 1; i < len(candles); i++ {
		atr := market.ATR(candles[:i], dd.atrPeriod)
		if atr <= 0 {
			continue
		}

		body := candles[i].Body()
		if body <= dd.atrMultiplier*atr {
			continue
		}

		dir := BiasBearish
		if candles[i].IsBullish() {
			dir = BiasBullish
		}
		out = append(out, Displacement{
			Direction:   dir,
			BodySize:    body,
			ATRMultiple: body / atr,
			CandleIndex: i,
			Timestamp:   candles[i].Timestamp,
		})
	}

	return out
}
