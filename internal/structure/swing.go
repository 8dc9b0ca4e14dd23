package structure

import (
	"time"

	"smc-analyst/internal/market"
)

// SwingKind distinguishes swing highs from swing lows
type SwingKind string

const (
	SwingHigh SwingKind = "HIGH"
	SwingLow  SwingKind = "LOW"
)

// SwingPoint represents a confirmed local price extreme
type SwingPoint struct {
	Index     int       `json:"index"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Kind      SwingKind `json:"kind"`
}

// SwingDetector identifies swing highs and lows in candle series
type SwingDetector struct {
	lookback int // Candles required on each side of a swing
}

// NewSwingDetector creates a swing detector with the given lookback
func NewSwingDetector(lookback int) *SwingDetector {
	if lookback <= 0 {
		lookback = 2 // Default 2-candle swing
	}
	return &SwingDetector{lookback: lookback}
}

// FindSwingHighs identifies swing high points. A candle qualifies when its
// high is at least the high of every candle within the lookback window on
// both sides. Equal extremes resolve to the earliest occurrence.
func (sd *SwingDetector) FindSwingHighs(candles []market.Candle) []SwingPoint {
	var swings []SwingPoint

	for i := sd.lookback; i < len(candles)-sd.lookback; i++ {
		h := candles[i].High
		isSwing := true

		for j := i - sd.lookback; j <= i+sd.lookback; j++ {
			if j == i {
				continue
			}
			// An earlier candle with an equal high owns the swing
			if candles[j].High > h || (candles[j].High == h && j < i) {
				isSwing = false
				break
			}
		}

		if isSwing {
			swings = append(swings, SwingPoint{
				Index:     i,
				Price:     h,
				Timestamp: candles[i].Timestamp,
				Kind:      SwingHigh,
			})
		}
	}

	return swings
}

// FindSwingLows identifies swing low points, mirror of FindSwingHighs
func (sd *SwingDetector) FindSwingLows(candles []market.Candle) []SwingPoint {
	var swings []SwingPoint

	for i := sd.lookback; i < len(candles)-sd.lookback; i++ {
		l := candles[i].Low
		isSwing := true

		for j := i - sd.lookback; j <= i+sd.lookback; j++ {
			if j == i {
				continue
			}
			if candles[j].Low < l || (candles[j].Low == l && j < i) {
				isSwing = false
				break
			}
		}

		if isSwing {
			swings = append(swings, SwingPoint{
				Index:     i,
				Price:     l,
				Timestamp: candles[i].Timestamp,
				Kind:      SwingLow,
			})
		}
	}

	return swings
}

// Lookback returns the configured swing lookback
func (sd *SwingDetector) Lookback() int {
	return sd.lookback
}
