package market

import (
	"time"
)

// Candle represents a single OHLCV price bar. Candles are immutable once
// ingested and always ordered ascending by timestamp.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume,omitempty"`
}

// Body returns the absolute size of the candle body
func (c Candle) Body() float64 {
	return abs(c.Close - c.Open)
}

// Range returns the full high-low range of the candle
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// IsBullish reports whether the candle closed above its open
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// UpperWick returns the distance from the body top to the high
func (c Candle) UpperWick() float64 {
	if c.Close > c.Open {
		return c.High - c.Close
	}
	return c.High - c.Open
}

// LowerWick returns the distance from the body bottom to the low
func (c Candle) LowerWick() float64 {
	if c.Close > c.Open {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
