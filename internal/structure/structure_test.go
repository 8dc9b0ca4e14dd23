package structure

import (
	"testing"
	"time"

	"smc-analyst/internal/market"
)

func mkCandle(ts time.Time, o, h, l, c float64) market.Candle {
	return market.Candle{Timestamp: ts, Open: o, High: h, Low: l, Close: c}
}

// zigzag builds an uptrending series with clean swing structure:
// higher highs at indices 2, 6, 10 and higher lows at 4, 8.
func bullishSeries() []market.Candle {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	prices := []struct{ o, h, l, c float64 }{
		{100, 101, 99, 100},
		{100, 103, 100, 102},
		{102, 106, 101.5, 104}, // swing high 106
		{104, 105, 102, 103},
		{103, 104, 101, 102}, // swing low 101
		{102, 105, 102, 104},
		{104, 109, 104.5, 107}, // swing high 109
		{107, 108, 105, 106},
		{106, 107, 104, 105}, // swing low 104
		{105, 108, 105, 107},
		{107, 112, 106, 110}, // swing high 112
		{110, 111, 108, 109},
		{109, 110, 107, 108},
	}
	candles := make([]market.Candle, len(prices))
	for i, p := range prices {
		candles[i] = mkCandle(base.Add(time.Duration(i)*15*time.Minute), p.o, p.h, p.l, p.c)
	}
	return candles
}

func TestAnalyzeBullishStructure(t *testing.T) {
	analyzer := NewAnalyzer(2)

	s := analyzer.Analyze(bullishSeries())

	if s.Label != StructureBullish {
		t.Fatalf("Expected BULLISH label, got %s", s.Label)
	}
	if s.Bias != BiasBullish {
		t.Errorf("Expected BULLISH bias, got %s", s.Bias)
	}
	if len(s.SwingHighs) < 2 {
		t.Errorf("Expected at least 2 swing highs, got %d", len(s.SwingHighs))
	}
	if len(s.SwingLows) < 2 {
		t.Errorf("Expected at least 2 swing lows, got %d", len(s.SwingLows))
	}
	if s.BiasStrength <= 0.5 {
		t.Errorf("Expected strong bias for clean uptrend, got %f", s.BiasStrength)
	}
}

func TestAnalyzeTooFewCandles(t *testing.T) {
	analyzer := NewAnalyzer(2)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := []market.Candle{
		mkCandle(base, 100, 101, 99, 100),
		mkCandle(base.Add(time.Minute), 100, 102, 100, 101),
	}

	s := analyzer.Analyze(candles)

	if s.Label != StructureUnclear {
		t.Errorf("Expected UNCLEAR for short series, got %s", s.Label)
	}
	if s.Bias != BiasNeutral {
		t.Errorf("Expected NEUTRAL bias for short series, got %s", s.Bias)
	}
}

func TestFindBreaksContinuation(t *testing.T) {
	analyzer := NewAnalyzer(2)

	s := analyzer.Analyze(bullishSeries())

	// The series closes above earlier swing highs, producing bullish
	// continuation breaks
	var bullishBreaks int
	for _, b := range s.Breaks {
		if b.Direction == BiasBullish {
			bullishBreaks++
			if b.Kind != BreakContinuation {
				t.Errorf("Expected continuation break in uptrend, got %s", b.Kind)
			}
		}
	}
	if bullishBreaks == 0 {
		t.Error("Expected at least one bullish break")
	}
}

func TestDealingRange(t *testing.T) {
	analyzer := NewAnalyzer(2)

	s := analyzer.Analyze(bullishSeries())

	if !s.DealingRange.Valid() {
		t.Fatal("Expected a valid dealing range")
	}
	if s.DealingRange.High <= s.DealingRange.Low {
		t.Errorf("Range high %f must exceed low %f", s.DealingRange.High, s.DealingRange.Low)
	}
	if !s.DealingRange.Contains(s.DealingRange.Low + (s.DealingRange.High-s.DealingRange.Low)/2) {
		t.Error("Midpoint must lie inside the range")
	}
	if s.DealingRange.Contains(s.DealingRange.High + 1) {
		t.Error("Price above the range must not be contained")
	}
}

func TestDealingRangeInvalid(t *testing.T) {
	dr := DealingRange{}
	if dr.Valid() {
		t.Error("Zero range must be invalid")
	}
	if dr.Contains(100) {
		t.Error("Invalid range must contain nothing")
	}
}
