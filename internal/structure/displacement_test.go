package structure

import (
	"testing"
	"time"

	"smc-analyst/internal/market"
)

// flatThenExpand builds 16 tight candles followed by one large-bodied
// candle whose body dwarfs the preceding ATR.
func flatThenExpand(bullish bool) []market.Candle {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var candles []market.Candle
	for i := 0; i < 16; i++ {
		candles = append(candles, market.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      100,
			High:      100.6,
			Low:       99.4,
			Close:     100.2,
		})
	}

	// ATR of the flat stretch is about 1.2; a body of 5 clears 2x easily
	big := market.Candle{
		Timestamp: base.Add(16 * time.Minute),
		Open:      100,
		High:      105.5,
		Low:       99.8,
		Close:     105,
	}
	if !bullish {
		big = market.Candle{
			Timestamp: base.Add(16 * time.Minute),
			Open:      100,
			High:      100.2,
			Low:       94.5,
			Close:     95,
		}
	}
	return append(candles, big)
}

func TestDetectBullishDisplacement(t *testing.T) {
	detector := NewDisplacementDetector(2.0)

	out := detector.Detect(flatThenExpand(true))

	if len(out) != 1 {
		t.Fatalf("Expected 1 displacement, got %d", len(out))
	}
	d := out[0]
	if d.Direction != BiasBullish {
		t.Errorf("Expected BULLISH direction, got %s", d.Direction)
	}
	if d.CandleIndex != 16 {
		t.Errorf("Expected displacement at index 16, got %d", d.CandleIndex)
	}
	if d.ATRMultiple <= 2.0 {
		t.Errorf("Expected ATR multiple above 2.0, got %f", d.ATRMultiple)
	}
}

func TestDetectBearishDisplacement(t *testing.T) {
	detector := NewDisplacementDetector(2.0)

	out := detector.Detect(flatThenExpand(false))

	if len(out) != 1 {
		t.Fatalf("Expected 1 displacement, got %d", len(out))
	}
	if out[0].Direction != BiasBearish {
		t.Errorf("Expected BEARISH direction, got %s", out[0].Direction)
	}
}

func TestNoDisplacementInQuietMarket(t *testing.T) {
	detector := NewDisplacementDetector(2.0)

	candles := flatThenExpand(true)
	candles = candles[:len(candles)-1] // Drop the expansion candle

	if out := detector.Detect(candles); len(out) != 0 {
		t.Errorf("Expected no displacement in flat series, got %d", len(out))
	}
}

func TestDisplacementBodyAtThresholdNotFlagged(t *testing.T) {
	detector := NewDisplacementDetector(2.0)

	candles := flatThenExpand(true)
	// Shrink the final body to exactly 2x the flat-series ATR (1.2)
	last := &candles[len(candles)-1]
	last.Open = 100
	last.Close = 102.4
	last.High = 102.5
	last.Low = 99.9

	if out := detector.Detect(candles); len(out) != 0 {
		t.Errorf("Body equal to the threshold must not be flagged, got %d", len(out))
	}
}

func TestDisplacementTooFewCandles(t *testing.T) {
	detector := NewDisplacementDetector(2.0)

	candles := flatThenExpand(true)[:10]

	if out := detector.Detect(candles); out != nil {
		t.Errorf("Expected nil for series shorter than ATR period, got %v", out)
	}
}
