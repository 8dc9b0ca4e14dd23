package events

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// EventType names what happened in the market. Types are facts, never
// opinions: they record observable occurrences, not interpretations.
type EventType string

const (
	EventBullishStructureBreak  EventType = "BULLISH_STRUCTURE_BREAK"
	EventBearishStructureBreak  EventType = "BEARISH_STRUCTURE_BREAK"
	EventBullishStructureShift  EventType = "BULLISH_STRUCTURE_SHIFT"
	EventBearishStructureShift  EventType = "BEARISH_STRUCTURE_SHIFT"
	EventBuySideLiquiditySwept  EventType = "BUY_SIDE_LIQUIDITY_SWEPT"
	EventSellSideLiquiditySwept EventType = "SELL_SIDE_LIQUIDITY_SWEPT"
	EventBullishDisplacement    EventType = "BULLISH_DISPLACEMENT"
	EventBearishDisplacement    EventType = "BEARISH_DISPLACEMENT"
	EventBullishFVGFormed       EventType = "BULLISH_FVG_FORMED"
	EventBearishFVGFormed       EventType = "BEARISH_FVG_FORMED"
	EventEqualHighsFormed       EventType = "EQUAL_HIGHS_FORMED"
	EventEqualLowsFormed        EventType = "EQUAL_LOWS_FORMED"
)

// MarketEvent is a single timestamped market occurrence. ID is a
// deterministic fingerprint: two events with the same fingerprint are the
// same occurrence and collapse to one.
type MarketEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price,omitempty"`
	PriceLevel  float64   `json:"price_level,omitempty"`
	CandleIndex int       `json:"candle_index,omitempty"`
	Timeframe   string    `json:"timeframe,omitempty"`
	Description string    `json:"description"`
}

// Fingerprint derives the deterministic event identity from the fields
// that define an occurrence
func Fingerprint(t EventType, ts time.Time, symbol string, priceLevel float64) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s|%.8f", t, ts.UTC().Unix(), symbol, priceLevel)))
	return hex.EncodeToString(h[:8])
}

// New builds a market event with its fingerprint populated
func New(t EventType, ts time.Time, symbol string, priceLevel float64, description string) MarketEvent {
	return MarketEvent{
		ID:          Fingerprint(t, ts, symbol, priceLevel),
		Type:        t,
		Timestamp:   ts,
		Symbol:      symbol,
		PriceLevel:  priceLevel,
		Description: description,
	}
}

// Dedupe collapses events with identical fingerprints, keeping the first
// occurrence and preserving order
func Dedupe(evs []MarketEvent) []MarketEvent {
	seen := make(map[string]bool, len(evs))
	out := evs[:0:0]
	for _, ev := range evs {
		if seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true
		out = append(out, ev)
	}
	return out
}

// CountByType tallies events per type, used for state hashing and phase
// detection summaries
func CountByType(evs []MarketEvent) map[EventType]int {
	counts := make(map[EventType]int)
	for _, ev := range evs {
		counts[ev.Type]++
	}
	return counts
}
