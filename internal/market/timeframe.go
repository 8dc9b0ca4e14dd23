package market

import "time"

// Timeframe represents different chart timeframes
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// Duration returns the bar duration for the timeframe
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// MultiTimeframeCandles holds candle series across different timeframes
// for a single symbol at a single point in time.
type MultiTimeframeCandles struct {
	Symbol    string
	Timestamp time.Time
	Data      map[Timeframe][]Candle
}

// Higher returns the candle series for the slowest timeframe present.
// The slowest series carries the directional bias for analysis.
func (m *MultiTimeframeCandles) Higher() (Timeframe, []Candle) {
	var best Timeframe
	var bestDur time.Duration
	for tf := range m.Data {
		if d := tf.Duration(); d > bestDur {
			best, bestDur = tf, d
		}
	}
	return best, m.Data[best]
}

// Lower returns the candle series for the fastest timeframe present.
func (m *MultiTimeframeCandles) Lower() (Timeframe, []Candle) {
	var best Timeframe
	bestDur := time.Duration(1<<63 - 1)
	for tf := range m.Data {
		if d := tf.Duration(); d < bestDur {
			best, bestDur = tf, d
		}
	}
	return best, m.Data[best]
}
