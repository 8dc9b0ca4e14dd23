package pdarray

import (
	"fmt"
	"time"

	"smc-analyst/internal/market"
)

// FVGType represents the type of Fair Value Gap
type FVGType string

const (
	BullishFVG FVGType = "bullish"
	BearishFVG FVGType = "bearish"
)

// FVG represents a Fair Value Gap: a 3-candle price imbalance left
// unfilled by immediate price action
type FVG struct {
	ID          string     `json:"id"`
	Symbol      string     `json:"symbol"`
	Timeframe   string     `json:"timeframe"`
	Type        FVGType    `json:"type"`
	Top         float64    `json:"top"`
	Bottom      float64    `json:"bottom"`
	CreatedAt   time.Time  `json:"created_at"`
	CandleIndex int        `json:"candle_index"` // Index of the first candle of the triple
	Filled      bool       `json:"filled"`
	FilledAt    *time.Time `json:"filled_at,omitempty"`
}

// Midpoint returns the center of the gap, the fill reference level
func (f FVG) Midpoint() float64 {
	return (f.Top + f.Bottom) / 2
}

// FVGDetector detects Fair Value Gaps in candle series
type FVGDetector struct {
	minGapPercent float64 // Minimum gap size as percentage, 0 keeps every gap
}

// NewFVGDetector creates a new FVG detector
func NewFVGDetector(minGapPercent float64) *FVGDetector {
	if minGapPercent < 0 {
		minGapPercent = 0
	}
	return &FVGDetector{minGapPercent: minGapPercent}
}

// Detect identifies all Fair Value Gaps in the given candles and marks
// each gap filled if any later candle's opposite extreme crossed its
// midpoint.
func (fd *FVGDetector) Detect(symbol, timeframe string, candles []market.Candle) []FVG {
	if len(candles) < 3 {
		return nil
	}

	var fvgs []FVG

	for i := 0; i < len(candles)-2; i++ {
		c1 := candles[i]
		c3 := candles[i+2]

		// Bullish FVG: gap between first candle's high and third candle's low
		if c1.High < c3.Low {
			gapPct := ((c3.Low - c1.High) / c1.High) * 100
			if gapPct >= fd.minGapPercent {
				fvg := FVG{
					ID:          fvgID(symbol, timeframe, FVGType("bullish"), i),
					Symbol:      symbol,
					Timeframe:   timeframe,
					Type:        BullishFVG,
					Top:         c3.Low,
					Bottom:      c1.High,
					CreatedAt:   candles[i+1].Timestamp,
					CandleIndex: i,
				}
				fd.markFilled(&fvg, candles[i+3:])
				fvgs = append(fvgs, fvg)
			}
		}

		// Bearish FVG: gap between first candle's low and third candle's high
		if c1.Low > c3.High {
			gapPct := ((c1.Low - c3.High) / c3.High) * 100
			if gapPct >= fd.minGapPercent {
				fvg := FVG{
					ID:          fvgID(symbol, timeframe, FVGType("bearish"), i),
					Symbol:      symbol,
					Timeframe:   timeframe,
					Type:        BearishFVG,
					Top:         c1.Low,
					Bottom:      c3.High,
					CreatedAt:   candles[i+1].Timestamp,
					CandleIndex: i,
				}
				fd.markFilled(&fvg, candles[i+3:])
				fvgs = append(fvgs, fvg)
			}
		}
	}

	return fvgs
}

// markFilled checks whether later price action crossed the gap midpoint.
// A bullish gap fills when a low trades through the midpoint, a bearish
// gap when a high does.
func (fd *FVGDetector) markFilled(fvg *FVG, later []market.Candle) {
	mid := fvg.Midpoint()
	for _, c := range later {
		if fvg.Type == BullishFVG && c.Low <= mid {
			fvg.Filled = true
			t := c.Timestamp
			fvg.FilledAt = &t
			return
		}
		if fvg.Type == BearishFVG && c.High >= mid {
			fvg.Filled = true
			t := c.Timestamp
			fvg.FilledAt = &t
			return
		}
	}
}

// Unfilled returns only gaps that price has not yet filled
func Unfilled(fvgs []FVG) []FVG {
	var out []FVG
	for _, f := range fvgs {
		if !f.Filled {
			out = append(out, f)
		}
	}
	return out
}

// fvgID is deterministic so repeated analysis of the same candles yields
// the same gap identity
func fvgID(symbol, timeframe string, t FVGType, index int) string {
	return fmt.Sprintf("%s_%s_%s_%d", symbol, timeframe, t, index)
}
