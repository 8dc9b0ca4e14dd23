package observer

import (
	"fmt"
	"time"

	"smc-analyst/internal/events"
	"smc-analyst/internal/liquidity"
	"smc-analyst/internal/market"
	"smc-analyst/internal/pdarray"
	"smc-analyst/internal/session"
	"smc-analyst/internal/structure"
)

// Config holds the observer's detection parameters
type Config struct {
	SwingLookback    int     `json:"swing_lookback"`  // Candles each side of a swing
	ATRMultiplier    float64 `json:"atr_multiplier"`  // Displacement body threshold
	MinGapPercent    float64 `json:"min_gap_percent"` // Minimum FVG size
	PoolTolerance    float64 `json:"pool_tolerance"`  // Liquidity level clustering
	SweepMaxSwingAge int     `json:"sweep_max_swing_age"`
	MinPoolTouches   int     `json:"min_pool_touches"` // Touches before equal highs/lows are reported
}

// DefaultConfig returns the standard detection parameters
func DefaultConfig() Config {
	return Config{
		SwingLookback:    2,
		ATRMultiplier:    2.0,
		MinGapPercent:    0,
		PoolTolerance:    0.001,
		SweepMaxSwingAge: 50,
		MinPoolTouches:   2,
	}
}

// Result is one complete observation cycle: events plus the raw fact
// bundle plus a stable digest of the materially significant facts.
type Result struct {
	Symbol       string               `json:"symbol"`
	Timestamp    time.Time            `json:"timestamp"`
	CurrentPrice float64              `json:"current_price"`
	Events       []events.MarketEvent `json:"events"`
	Facts        Facts                `json:"facts"`
	StateHash    string               `json:"state_hash"`
}

// NewEvents returns the events whose fingerprints did not appear in the
// previous observation
func (r *Result) NewEvents(prev *Result) []events.MarketEvent {
	if prev == nil {
		return r.Events
	}
	seen := make(map[string]bool, len(prev.Events))
	for _, ev := range prev.Events {
		seen[ev.ID] = true
	}
	var out []events.MarketEvent
	for _, ev := range r.Events {
		if !seen[ev.ID] {
			out = append(out, ev)
		}
	}
	return out
}

// Observer converts raw candles into objective market facts and events.
// It is a pure function of its inputs: identical candles always produce
// identical events and an identical state hash.
type Observer struct {
	cfg           Config
	structures    *structure.Analyzer
	displacements *structure.DisplacementDetector
	sweeps        *liquidity.SweepDetector
	pools         *liquidity.PoolDetector
	fvgs          *pdarray.FVGDetector
	blocks        *pdarray.OrderBlockDetector
	clock         *session.Clock
}

// New creates an observer with the given configuration
func New(cfg Config) *Observer {
	if cfg.SwingLookback <= 0 {
		cfg.SwingLookback = 2
	}
	if cfg.ATRMultiplier <= 0 {
		cfg.ATRMultiplier = 2.0
	}
	if cfg.MinPoolTouches <= 0 {
		cfg.MinPoolTouches = 2
	}
	return &Observer{
		cfg:           cfg,
		structures:    structure.NewAnalyzer(cfg.SwingLookback),
		displacements: structure.NewDisplacementDetector(cfg.ATRMultiplier),
		sweeps:        liquidity.NewSweepDetector(cfg.SweepMaxSwingAge),
		pools:         liquidity.NewPoolDetector(cfg.PoolTolerance),
		fvgs:          pdarray.NewFVGDetector(cfg.MinGapPercent),
		blocks:        pdarray.NewOrderBlockDetector(),
		clock:         session.NewClock(),
	}
}

// Clock exposes the session clock so callers can override windows
func (o *Observer) Clock() *session.Clock {
	return o.clock
}

// Observe runs the full fact pipeline for one symbol at one timestamp.
// candles must contain at least one higher and one lower timeframe series.
// Insufficient data degrades to neutral facts, never an error.
func (o *Observer) Observe(symbol string, ts time.Time, candles *market.MultiTimeframeCandles, prev *Result) Result {
	sess := o.clock.At(ts)

	ltf, lower := candles.Lower()
	_, higher := candles.Higher()

	result := Result{Symbol: symbol, Timestamp: ts}
	if len(lower) > 0 {
		result.CurrentPrice = lower[len(lower)-1].Close
	}

	if len(lower) < structure.MinCandles || len(higher) < structure.MinCandles {
		result.Facts = NeutralFacts(sess)
		result.StateHash = hashFacts(result.Facts, nil)
		return result
	}

	htf := o.structures.Analyze(higher)
	ltfSummary := o.structures.Analyze(lower)
	displacements := o.displacements.Detect(lower)
	sweeps := o.sweeps.Detect(lower, ltfSummary.SwingHighs, ltfSummary.SwingLows)
	pools := o.pools.Detect(ltfSummary.SwingHighs, ltfSummary.SwingLows)
	fvgs := o.fvgs.Detect(symbol, string(ltf), lower)
	blocks := o.blocks.Detect(lower, displacements)

	facts := Facts{
		Structure: StructureFacts{
			HTFBias:      htf.Bias,
			HTFLabel:     htf.Label,
			LTFLabel:     ltfSummary.Label,
			BiasStrength: htf.BiasStrength,
			DealingRange: htf.DealingRange,
			Breaks:       ltfSummary.Breaks,
		},
		Liquidity: LiquidityFacts{Pools: pools, Sweeps: sweeps},
		PDArrays: PDArrayFacts{
			FVGs:          fvgs,
			UnfilledFVGs:  len(pdarray.Unfilled(fvgs)),
			OrderBlocks:   blocks,
			ActiveBlocks:  len(pdarray.Active(blocks)),
			Zone:          pdarray.ClassifyZone(result.CurrentPrice, htf.DealingRange),
			InOTEZone:     pdarray.InOTEZone(result.CurrentPrice, htf.DealingRange, htf.Bias),
			Displacements: displacements,
		},
		Session: sess,
	}

	evs := o.buildEvents(symbol, string(ltf), lower, facts)
	result.Facts = facts
	result.Events = events.Dedupe(evs)
	result.StateHash = hashFacts(facts, result.Events)
	return result
}

// buildEvents converts detected facts into typed market events. Event
// timestamps come from the originating candles so observation is
// reproducible.
func (o *Observer) buildEvents(symbol, tf string, lower []market.Candle, facts Facts) []events.MarketEvent {
	var evs []events.MarketEvent

	for _, br := range facts.Structure.Breaks {
		var t events.EventType
		switch {
		case br.Kind == structure.BreakShift && br.Direction == structure.BiasBullish:
			t = events.EventBullishStructureShift
		case br.Kind == structure.BreakShift && br.Direction == structure.BiasBearish:
			t = events.EventBearishStructureShift
		case br.Direction == structure.BiasBullish:
			t = events.EventBullishStructureBreak
		default:
			t = events.EventBearishStructureBreak
		}
		ev := events.New(t, br.Timestamp, symbol, br.Level,
			fmt.Sprintf("close through swing level %.5f", br.Level))
		ev.Timeframe = tf
		ev.CandleIndex = br.CandleIndex
		evs = append(evs, ev)
	}

	for _, sw := range facts.Liquidity.Sweeps {
		t := events.EventSellSideLiquiditySwept
		if sw.Side == liquidity.BuySide {
			t = events.EventBuySideLiquiditySwept
		}
		ev := events.New(t, sw.Timestamp, symbol, sw.Level,
			fmt.Sprintf("wick through %.5f rejected by %.5f", sw.Level, sw.Rejection))
		ev.Timeframe = tf
		ev.CandleIndex = sw.CandleIndex
		ev.Price = sw.Extreme
		evs = append(evs, ev)
	}

	for _, d := range facts.PDArrays.Displacements {
		t := events.EventBearishDisplacement
		if d.Direction == structure.BiasBullish {
			t = events.EventBullishDisplacement
		}
		ev := events.New(t, d.Timestamp, symbol, lower[d.CandleIndex].Close,
			fmt.Sprintf("body %.5f at %.1fx ATR", d.BodySize, d.ATRMultiple))
		ev.Timeframe = tf
		ev.CandleIndex = d.CandleIndex
		evs = append(evs, ev)
	}

	for _, f := range facts.PDArrays.FVGs {
		t := events.EventBearishFVGFormed
		if f.Type == pdarray.BullishFVG {
			t = events.EventBullishFVGFormed
		}
		ev := events.New(t, f.CreatedAt, symbol, f.Midpoint(),
			fmt.Sprintf("imbalance %.5f to %.5f", f.Bottom, f.Top))
		ev.Timeframe = tf
		ev.CandleIndex = f.CandleIndex
		evs = append(evs, ev)
	}

	for _, p := range facts.Liquidity.Pools {
		if p.Touches < o.cfg.MinPoolTouches {
			continue
		}
		t := events.EventEqualLowsFormed
		if p.Side == liquidity.BuySide {
			t = events.EventEqualHighsFormed
		}
		// Pool events carry the observation window's last candle time so
		// repeated observation of the same window stays deterministic
		ev := events.New(t, lower[len(lower)-1].Timestamp, symbol, p.Level,
			fmt.Sprintf("%d equal levels near %.5f", p.Touches, p.Level))
		ev.Timeframe = tf
		evs = append(evs, ev)
	}

	return evs
}
