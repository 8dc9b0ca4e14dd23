package liquidity

import (
	"testing"
	"time"

	"smc-analyst/internal/market"
	"smc-analyst/internal/structure"
)

func TestPoolClustering(t *testing.T) {
	detector := NewPoolDetector(0.001)

	highs := []structure.SwingPoint{
		{Index: 2, Price: 100.00, Kind: structure.SwingHigh},
		{Index: 8, Price: 100.05, Kind: structure.SwingHigh}, // Within 0.1% of 100
		{Index: 14, Price: 110.00, Kind: structure.SwingHigh},
	}
	lows := []structure.SwingPoint{
		{Index: 5, Price: 95.00, Kind: structure.SwingLow},
	}

	pools := detector.Detect(highs, lows)

	if len(pools) != 3 {
		t.Fatalf("Expected 3 pools, got %d", len(pools))
	}

	var equalHighs *Pool
	for i := range pools {
		if pools[i].Side == BuySide && pools[i].Touches == 2 {
			equalHighs = &pools[i]
		}
	}
	if equalHighs == nil {
		t.Fatal("Expected a buy-side pool with 2 touches")
	}
	if equalHighs.Level < 100.00 || equalHighs.Level > 100.05 {
		t.Errorf("Merged level should average the touches, got %f", equalHighs.Level)
	}
}

func TestPoolSides(t *testing.T) {
	detector := NewPoolDetector(0.001)

	pools := detector.Detect(
		[]structure.SwingPoint{{Index: 2, Price: 100, Kind: structure.SwingHigh}},
		[]structure.SwingPoint{{Index: 5, Price: 95, Kind: structure.SwingLow}},
	)

	if len(pools) != 2 {
		t.Fatalf("Expected 2 pools, got %d", len(pools))
	}
	if pools[0].Side != BuySide {
		t.Errorf("Swing highs form buy-side pools, got %s", pools[0].Side)
	}
	if pools[1].Side != SellSide {
		t.Errorf("Swing lows form sell-side pools, got %s", pools[1].Side)
	}
}

func sweepFixture() ([]market.Candle, []structure.SwingPoint) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	candles := []market.Candle{
		{Timestamp: base, Open: 99, High: 100, Low: 98, Close: 99.5},
		{Timestamp: base.Add(time.Minute), Open: 99.5, High: 102, Low: 99, Close: 101}, // swing high 102
		{Timestamp: base.Add(2 * time.Minute), Open: 101, High: 101.5, Low: 100, Close: 100.5},
		// Wick pierces 102 but close recovers below: a sweep
		{Timestamp: base.Add(3 * time.Minute), Open: 100.5, High: 102.8, Low: 100.3, Close: 101.2},
	}
	highs := []structure.SwingPoint{{Index: 1, Price: 102, Timestamp: candles[1].Timestamp, Kind: structure.SwingHigh}}
	return candles, highs
}

func TestDetectBuySideSweep(t *testing.T) {
	detector := NewSweepDetector(50)

	candles, highs := sweepFixture()
	sweeps := detector.Detect(candles, highs, nil)

	if len(sweeps) != 1 {
		t.Fatalf("Expected 1 sweep, got %d", len(sweeps))
	}
	s := sweeps[0]
	if s.Side != BuySide {
		t.Errorf("Expected BUY_SIDE sweep, got %s", s.Side)
	}
	if s.Level != 102 {
		t.Errorf("Expected swept level 102, got %f", s.Level)
	}
	if s.Extreme != 102.8 {
		t.Errorf("Expected extreme 102.8, got %f", s.Extreme)
	}
	want := 102.8 - 101.2
	if diff := s.Rejection - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected rejection %f, got %f", want, s.Rejection)
	}
	if s.CandleIndex != 3 {
		t.Errorf("Expected sweep at index 3, got %d", s.CandleIndex)
	}
}

func TestCloseThroughLevelIsBreakNotSweep(t *testing.T) {
	detector := NewSweepDetector(50)

	candles, highs := sweepFixture()
	// Close beyond the level: broken, not swept
	candles[3].Close = 102.5

	if sweeps := detector.Detect(candles, highs, nil); len(sweeps) != 0 {
		t.Errorf("Close through the level must not count as a sweep, got %d", len(sweeps))
	}
}

func TestDetectSellSideSweep(t *testing.T) {
	detector := NewSweepDetector(50)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	candles := []market.Candle{
		{Timestamp: base, Open: 101, High: 102, Low: 100, Close: 100.5},
		{Timestamp: base.Add(time.Minute), Open: 100.5, High: 101, Low: 98, Close: 99}, // swing low 98
		{Timestamp: base.Add(2 * time.Minute), Open: 99, High: 100, Low: 98.5, Close: 99.5},
		// Wick pierces 98, close recovers above
		{Timestamp: base.Add(3 * time.Minute), Open: 99.5, High: 100, Low: 97.4, Close: 98.9},
	}
	lows := []structure.SwingPoint{{Index: 1, Price: 98, Timestamp: candles[1].Timestamp, Kind: structure.SwingLow}}

	sweeps := detector.Detect(candles, nil, lows)

	if len(sweeps) != 1 {
		t.Fatalf("Expected 1 sweep, got %d", len(sweeps))
	}
	if sweeps[0].Side != SellSide {
		t.Errorf("Expected SELL_SIDE sweep, got %s", sweeps[0].Side)
	}
	want := 98.9 - 97.4
	if diff := sweeps[0].Rejection - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected rejection %f, got %f", want, sweeps[0].Rejection)
	}
}

func TestSweepMaxSwingAge(t *testing.T) {
	detector := NewSweepDetector(1)

	candles, highs := sweepFixture()

	// With age 1 the sweep candle at index 3 sits outside the window of
	// the swing at index 1
	if sweeps := detector.Detect(candles, highs, nil); len(sweeps) != 0 {
		t.Errorf("Sweep beyond max swing age must be ignored, got %d", len(sweeps))
	}
}

func TestOnlyFirstSweepReported(t *testing.T) {
	detector := NewSweepDetector(50)

	candles, highs := sweepFixture()
	candles = append(candles, market.Candle{
		Timestamp: candles[3].Timestamp.Add(time.Minute),
		Open:      101.2, High: 102.9, Low: 100.8, Close: 101.0,
	})

	sweeps := detector.Detect(candles, highs, nil)

	if len(sweeps) != 1 {
		t.Fatalf("Expected only the first sweep of a level, got %d", len(sweeps))
	}
	if sweeps[0].CandleIndex != 3 {
		t.Errorf("Expected the earliest sweep at index 3, got %d", sweeps[0].CandleIndex)
	}
}
