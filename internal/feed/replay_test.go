package feed

import (
	"context"
	"testing"
	"time"

	"smc-analyst/internal/market"
)

func replayCandles(n int) []market.Candle {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      100, High: 101, Low: 99, Close: 100.5,
		}
	}
	return candles
}

func TestReplayCandles(t *testing.T) {
	p := NewReplayProvider("BTCUSDT", map[market.Timeframe][]market.Candle{
		market.TF1m:  replayCandles(30),
		market.TF15m: replayCandles(10),
	})

	out, err := p.Candles(context.Background(), "BTCUSDT", []market.Timeframe{market.TF15m, market.TF1m}, 100)
	if err != nil {
		t.Fatalf("Candles failed: %v", err)
	}

	if len(out.Data[market.TF1m]) != 30 || len(out.Data[market.TF15m]) != 10 {
		t.Errorf("Series lengths = %d/%d, want 30/10",
			len(out.Data[market.TF1m]), len(out.Data[market.TF15m]))
	}

	lower := out.Data[market.TF1m]
	if want := lower[len(lower)-1].Timestamp; !out.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %s, want latest last candle %s", out.Timestamp, want)
	}
}

func TestReplayLimitTruncates(t *testing.T) {
	p := NewReplayProvider("BTCUSDT", map[market.Timeframe][]market.Candle{
		market.TF1m: replayCandles(30),
	})

	out, err := p.Candles(context.Background(), "BTCUSDT", []market.Timeframe{market.TF1m}, 10)
	if err != nil {
		t.Fatalf("Candles failed: %v", err)
	}

	series := out.Data[market.TF1m]
	if len(series) != 10 {
		t.Fatalf("Series length = %d, want last 10", len(series))
	}
	if want := replayCandles(30)[29].Timestamp; !series[9].Timestamp.Equal(want) {
		t.Error("Truncation must keep the most recent candles")
	}
}

func TestReplayUnknownSymbol(t *testing.T) {
	p := NewReplayProvider("BTCUSDT", nil)

	if _, err := p.Candles(context.Background(), "ETHUSDT", []market.Timeframe{market.TF1m}, 10); err == nil {
		t.Fatal("Expected an error for an unknown symbol")
	}
}

func TestReplayAppendAdvances(t *testing.T) {
	p := NewReplayProvider("BTCUSDT", map[market.Timeframe][]market.Candle{
		market.TF1m: replayCandles(5),
	})

	next := market.Candle{
		Timestamp: time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC),
		Open:      100.5, High: 102, Low: 100, Close: 101.5,
	}
	p.Append(market.TF1m, next)

	out, err := p.Candles(context.Background(), "BTCUSDT", []market.Timeframe{market.TF1m}, 100)
	if err != nil {
		t.Fatalf("Candles failed: %v", err)
	}

	if len(out.Data[market.TF1m]) != 6 {
		t.Errorf("Series length after append = %d, want 6", len(out.Data[market.TF1m]))
	}
	if !out.Timestamp.Equal(next.Timestamp) {
		t.Errorf("Timestamp = %s, want the appended candle's %s", out.Timestamp, next.Timestamp)
	}
}
