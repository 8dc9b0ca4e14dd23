package phase

import (
	"fmt"
	"time"

	"smc-analyst/internal/events"
	"smc-analyst/internal/structure"
)

// Detection confidences are fixed per branch. The values are tuned
// heuristics carried over from the production rule set.
const (
	confDistribution   = 0.85
	confManipulation   = 0.80
	confExpansion      = 0.75
	confAccumulation   = 0.70
	confReaccumulation = 0.60
	confRanging        = 0.40
	confUnknown        = 0.30
)

// Input is everything the detector reads for one classification
type Input struct {
	Now          time.Time
	Events       []events.MarketEvent
	Bias         structure.Bias
	PriceInRange bool // Price sits inside a previously identified dealing range
}

// Detector classifies the market regime from recent events and enforces
// the transition table when committing state.
type Detector struct {
	lookback      time.Duration // Window for event relevance
	sweepFollowup time.Duration // How long a sweep waits for displacement
}

// NewDetector creates a phase detector with the given event lookback
func NewDetector(lookback time.Duration) *Detector {
	if lookback <= 0 {
		lookback = 60 * time.Minute
	}
	return &Detector{
		lookback:      lookback,
		sweepFollowup: 15 * time.Minute,
	}
}

// Detect classifies the current regime. It is read-only: callers may
// discard the result without touching state. The first matching branch
// of the priority ladder wins.
func (d *Detector) Detect(state *State, in Input) (Phase, float64, string) {
	recent := d.inWindow(in.Now, in.Events)

	sweeps := filter(recent, isSweep)
	displacements := filter(recent, isDisplacement)
	fvgs := filter(recent, isFVG)
	breaks := filter(recent, isBreak)

	// 1. Distribution: sweep, then displacement, then imbalance, in order
	if ok, seq := sweepDisplacementFVG(sweeps, displacements, fvgs); ok {
		return Distribution, confDistribution,
			fmt.Sprintf("sweep at %s followed by displacement and imbalance", seq.Format("15:04"))
	}

	// 2. Manipulation: a sweep that displacement never confirmed
	if sw, ok := unconfirmedSweep(sweeps, displacements, d.sweepFollowup); ok {
		return Manipulation, confManipulation,
			fmt.Sprintf("liquidity swept at %s with no follow-through", sw.Format("15:04"))
	}

	// 3. Expansion: repeated structure breaks in one direction
	if dir, ok := onesidedBreaks(breaks); ok {
		return Expansion, confExpansion,
			fmt.Sprintf("%d structure breaks, all %s", len(breaks), dir)
	}

	// 4. Accumulation: price held inside the dealing range, nothing broke
	if in.PriceInRange && len(breaks) == 0 {
		return Accumulation, confAccumulation, "price holding inside dealing range with no breaks"
	}

	// 5. Re-accumulation / re-distribution: bias persists quietly after
	// a consolidation phase
	if in.Bias != structure.BiasNeutral && len(displacements) == 0 && accumulationLike(state.Current) {
		if in.Bias == structure.BiasBullish {
			return Reaccumulation, confReaccumulation, "bullish bias persisting without displacement"
		}
		return Redistribution, confReaccumulation, "bearish bias persisting without displacement"
	}

	// 6. Ranging: nothing happened at all
	if len(sweeps) == 0 && len(displacements) == 0 && len(breaks) == 0 {
		return Ranging, confRanging, "no sweep, displacement or structure activity"
	}

	return Unknown, confUnknown, "no regime pattern matched"
}

// Update runs Detect and commits the result under the transition rule:
// the move must be in the table, or the detection confidence must reach
// the override threshold. Held transitions refresh confidence only.
func (d *Detector) Update(state *State, in Input) bool {
	next, conf, reason := d.Detect(state, in)

	if next == state.Current {
		state.Confidence = conf
		return false
	}

	allowed := CanTransition(state.Current, next)
	if !allowed && conf < OverrideConfidence {
		// Invalid transition below override: hold phase, refresh confidence
		state.Confidence = conf
		return false
	}

	state.commit(Transition{
		From:       state.Current,
		To:         next,
		At:         in.Now,
		Confidence: conf,
		Reason:     reason,
		Overridden: !allowed,
	})
	return true
}

func (d *Detector) inWindow(now time.Time, evs []events.MarketEvent) []events.MarketEvent {
	cutoff := now.Add(-d.lookback)
	var out []events.MarketEvent
	for _, ev := range evs {
		if !ev.Timestamp.Before(cutoff) && !ev.Timestamp.After(now) {
			out = append(out, ev)
		}
	}
	return out
}

func filter(evs []events.MarketEvent, keep func(events.EventType) bool) []events.MarketEvent {
	var out []events.MarketEvent
	for _, ev := range evs {
		if keep(ev.Type) {
			out = append(out, ev)
		}
	}
	return out
}

func isSweep(t events.EventType) bool {
	return t == events.EventBuySideLiquiditySwept || t == events.EventSellSideLiquiditySwept
}

func isDisplacement(t events.EventType) bool {
	return t == events.EventBullishDisplacement || t == events.EventBearishDisplacement
}

func isFVG(t events.EventType) bool {
	return t == events.EventBullishFVGFormed || t == events.EventBearishFVGFormed
}

func isBreak(t events.EventType) bool {
	return t == events.EventBullishStructureBreak || t == events.EventBearishStructureBreak
}

// sweepDisplacementFVG looks for the strict temporal sequence sweep →
// displacement → imbalance and returns the sweep time when found
func sweepDisplacementFVG(sweeps, displacements, fvgs []events.MarketEvent) (bool, time.Time) {
	for _, sw := range sweeps {
		for _, disp := range displacements {
			if !disp.Timestamp.After(sw.Timestamp) {
				continue
			}
			for _, fvg := range fvgs {
				if fvg.Timestamp.After(disp.Timestamp) {
					return true, sw.Timestamp
				}
			}
		}
	}
	return false, time.Time{}
}

// unconfirmedSweep finds a sweep with no displacement inside the
// follow-up window after it
func unconfirmedSweep(sweeps, displacements []events.MarketEvent, followup time.Duration) (time.Time, bool) {
	for _, sw := range sweeps {
		confirmed := false
		for _, disp := range displacements {
			if disp.Timestamp.After(sw.Timestamp) && disp.Timestamp.Sub(sw.Timestamp) <= followup {
				confirmed = true
				break
			}
		}
		if !confirmed {
			return sw.Timestamp, true
		}
	}
	return time.Time{}, false
}

// onesidedBreaks reports whether there are at least two structure breaks
// and all share one direction
func onesidedBreaks(breaks []events.MarketEvent) (string, bool) {
	if len(breaks) < 2 {
		return "", false
	}
	dir := breaks[0].Type
	for _, br := range breaks[1:] {
		if br.Type != dir {
			return "", false
		}
	}
	if dir == events.EventBullishStructureBreak {
		return "bullish", true
	}
	return "bearish", true
}
