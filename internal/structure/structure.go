package structure

import (
	"time"

	"smc-analyst/internal/market"
)

// Bias represents directional market bias derived from structure
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// StructureLabel classifies the shape of recent swing sequences
type StructureLabel string

const (
	StructureBullish StructureLabel = "BULLISH" // Higher highs and higher lows
	StructureBearish StructureLabel = "BEARISH" // Lower highs and lower lows
	StructureMixed   StructureLabel = "MIXED"
	StructureUnclear StructureLabel = "UNCLEAR" // Not enough swings to classify
)

// BreakKind distinguishes continuation breaks from shifts against structure
type BreakKind string

const (
	BreakContinuation BreakKind = "BREAK" // Break in the direction of structure
	BreakShift        BreakKind = "SHIFT" // Break against prevailing structure
)

// StructureBreak records a candle close through a swing level
type StructureBreak struct {
	Kind        BreakKind `json:"kind"`
	Direction   Bias      `json:"direction"` // BULLISH broke a high, BEARISH broke a low
	Level       float64   `json:"level"`
	CandleIndex int       `json:"candle_index"`
	Timestamp   time.Time `json:"timestamp"`
}

// DealingRange is the reference range between the last significant swing
// high and swing low
type DealingRange struct {
	High float64 `json:"high"`
	Low  float64 `json:"low"`
}

// Valid reports whether the range has usable bounds
func (dr DealingRange) Valid() bool {
	return dr.High > dr.Low && dr.Low > 0
}

// Contains reports whether price sits inside the range
func (dr DealingRange) Contains(price float64) bool {
	return dr.Valid() && price >= dr.Low && price <= dr.High
}

// Summary holds the full structural read of one candle series
type Summary struct {
	Label        StructureLabel   `json:"label"`
	Bias         Bias             `json:"bias"`
	SwingHighs   []SwingPoint     `json:"swing_highs"`
	SwingLows    []SwingPoint     `json:"swing_lows"`
	Breaks       []StructureBreak `json:"breaks"`
	DealingRange DealingRange     `json:"dealing_range"`
	BiasStrength float64          `json:"bias_strength"` // 0.0 to 1.0
}

// Analyzer performs market structure analysis over a candle series
type Analyzer struct {
	swings *SwingDetector
}

// NewAnalyzer creates a structure analyzer with the given swing lookback
func NewAnalyzer(swingLookback int) *Analyzer {
	return &Analyzer{swings: NewSwingDetector(swingLookback)}
}

// MinCandles is the smallest series the analyzer will classify.
// Shorter series degrade to an UNCLEAR summary instead of failing.
const MinCandles = 10

// Analyze classifies structure for the series. Insufficient data yields an
// UNCLEAR/NEUTRAL summary, never an error.
func (a *Analyzer) Analyze(candles []market.Candle) Summary {
	if len(candles) < MinCandles {
		return Summary{Label: StructureUnclear, Bias: BiasNeutral}
	}

	s := Summary{
		SwingHighs: a.swings.FindSwingHighs(candles),
		SwingLows:  a.swings.FindSwingLows(candles),
	}

	s.Label = classify(s.SwingHighs, s.SwingLows)
	s.Bias = biasFor(s.Label)
	s.Breaks = a.findBreaks(candles, s.SwingHighs, s.SwingLows, s.Label)
	s.DealingRange = dealingRange(s.SwingHighs, s.SwingLows)
	s.BiasStrength = strength(s.SwingHighs, s.SwingLows, s.Label)

	return s
}

// classify compares the last two swing highs and last two swing lows.
// Higher high plus higher low is bullish, lower high plus lower low is
// bearish, anything else is mixed.
func classify(highs, lows []SwingPoint) StructureLabel {
	if len(highs) < 2 || len(lows) < 2 {
		return StructureUnclear
	}

	hh := highs[len(highs)-1].Price > highs[len(highs)-2].Price
	hl := lows[len(lows)-1].Price > lows[len(lows)-2].Price
	lh := highs[len(highs)-1].Price < highs[len(highs)-2].Price
	ll := lows[len(lows)-1].Price < lows[len(lows)-2].Price

	switch {
	case hh && hl:
		return StructureBullish
	case lh && ll:
		return StructureBearish
	default:
		return StructureMixed
	}
}

func biasFor(label StructureLabel) Bias {
	switch label {
	case StructureBullish:
		return BiasBullish
	case StructureBearish:
		return BiasBearish
	default:
		return BiasNeutral
	}
}

// findBreaks scans candles after each confirmed swing for closes through
// the swing level. A break with the prevailing structure is a continuation
// break; a break against it is a structure shift.
func (a *Analyzer) findBreaks(candles []market.Candle, highs, lows []SwingPoint, label StructureLabel) []StructureBreak {
	var breaks []StructureBreak

	for _, sw := range highs {
		for i := sw.Index + a.swings.Lookback(); i < len(candles); i++ {
			if candles[i].Close > sw.Price {
				kind := BreakContinuation
				if label == StructureBearish {
					kind = BreakShift
				}
				breaks = append(breaks, StructureBreak{
					Kind:        kind,
					Direction:   BiasBullish,
					Level:       sw.Price,
					CandleIndex: i,
					Timestamp:   candles[i].Timestamp,
				})
				break // First close through the level is the break
			}
		}
	}

	for _, sw := range lows {
		for i := sw.Index + a.swings.Lookback(); i < len(candles); i++ {
			if candles[i].Close < sw.Price {
				kind := BreakContinuation
				if label == StructureBullish {
					kind = BreakShift
				}
				breaks = append(breaks, StructureBreak{
					Kind:        kind,
					Direction:   BiasBearish,
					Level:       sw.Price,
					CandleIndex: i,
					Timestamp:   candles[i].Timestamp,
				})
				break
			}
		}
	}

	return breaks
}

// dealingRange takes the most recent swing high and swing low as the
// reference range for premium/discount analysis
func dealingRange(highs, lows []SwingPoint) DealingRange {
	if len(highs) == 0 || len(lows) == 0 {
		return DealingRange{}
	}
	return DealingRange{
		High: highs[len(highs)-1].Price,
		Low:  lows[len(lows)-1].Price,
	}
}

// strength measures how one-sided the swing sequence is (0.0 to 1.0)
func strength(highs, lows []SwingPoint, label StructureLabel) float64 {
	var withTrend, total int

	for i := 1; i < len(highs); i++ {
		total++
		if label == StructureBullish && highs[i].Price > highs[i-1].Price {
			withTrend++
		} else if label == StructureBearish && highs[i].Price < highs[i-1].Price {
			withTrend++
		}
	}
	for i := 1; i < len(lows); i++ {
		total++
		if label == StructureBullish && lows[i].Price > lows[i-1].Price {
			withTrend++
		} else if label == StructureBearish && lows[i].Price < lows[i-1].Price {
			withTrend++
		}
	}

	if total == 0 || (label != StructureBullish && label != StructureBearish) {
		return 0.3 // Mixed structure has low conviction
	}
	return float64(withTrend) / float64(total)
}
