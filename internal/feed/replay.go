package feed

import (
	"context"
	"fmt"
	"time"

	"smc-analyst/internal/market"
)

// ReplayProvider serves pre-loaded candle series. Each call returns the
// series as loaded; callers advance it with Append.
type ReplayProvider struct {
	symbol string
	data   map[market.Timeframe][]market.Candle
}

// NewReplayProvider creates a provider over canned candle data
func NewReplayProvider(symbol string, data map[market.Timeframe][]market.Candle) *ReplayProvider {
	if data == nil {
		data = make(map[market.Timeframe][]market.Candle)
	}
	return &ReplayProvider{symbol: symbol, data: data}
}

// Append extends one timeframe's series
func (p *ReplayProvider) Append(tf market.Timeframe, candles ...market.Candle) {
	p.data[tf] = append(p.data[tf], candles...)
}

// Candles returns the loaded series, truncated to the last limit candles
func (p *ReplayProvider) Candles(_ context.Context, symbol string, timeframes []market.Timeframe, limit int) (*market.MultiTimeframeCandles, error) {
	if symbol != p.symbol {
		return nil, fmt.Errorf("no replay data for symbol %s", symbol)
	}

	out := &market.MultiTimeframeCandles{
		Symbol: symbol,
		Data:   make(map[market.Timeframe][]market.Candle, len(timeframes)),
	}

	var last time.Time
	for _, tf := range timeframes {
		series := p.data[tf]
		if limit > 0 && len(series) > limit {
			series = series[len(series)-limit:]
		}
		out.Data[tf] = series
		if n := len(series); n > 0 && series[n-1].Timestamp.After(last) {
			last = series[n-1].Timestamp
		}
	}
	out.Timestamp = last

	return out, nil
}
