package phase

import (
	"testing"
	"time"

	"smc-analyst/internal/events"
	"smc-analyst/internal/structure"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ev(t events.EventType, minutesAgo int) events.MarketEvent {
	ts := baseTime.Add(-time.Duration(minutesAgo) * time.Minute)
	return events.New(t, ts, "BTCUSDT", 42000, "")
}

func TestDetectDistribution(t *testing.T) {
	// Sweep, then displacement, then imbalance, in strict temporal order
	d := NewDetector(60 * time.Minute)
	state := NewState()

	in := Input{
		Now: baseTime,
		Events: []events.MarketEvent{
			ev(events.EventBuySideLiquiditySwept, 30),
			ev(events.EventBearishDisplacement, 20),
			ev(events.EventBearishFVGFormed, 10),
		},
	}

	phase, conf, _ := d.Detect(state, in)

	if phase != Distribution {
		t.Fatalf("Expected DISTRIBUTION, got %s", phase)
	}
	if conf != 0.85 {
		t.Errorf("Distribution confidence = %.2f, want 0.85", conf)
	}
}

func TestDetectDistributionRequiresOrder(t *testing.T) {
	// Same events, but the imbalance formed before the displacement
	d := NewDetector(60 * time.Minute)
	state := NewState()

	in := Input{
		Now: baseTime,
		Events: []events.MarketEvent{
			ev(events.EventBuySideLiquiditySwept, 30),
			ev(events.EventBearishFVGFormed, 25),
			ev(events.EventBearishDisplacement, 20),
		},
	}

	phase, _, _ := d.Detect(state, in)

	if phase == Distribution {
		t.Error("Out-of-order sequence must not classify as DISTRIBUTION")
	}
}

func TestDetectManipulation(t *testing.T) {
	// A sweep with no displacement inside the follow-up window
	d := NewDetector(60 * time.Minute)
	state := NewState()

	in := Input{
		Now:    baseTime,
		Events: []events.MarketEvent{ev(events.EventSellSideLiquiditySwept, 20)},
	}

	phase, conf, _ := d.Detect(state, in)

	if phase != Manipulation {
		t.Fatalf("Expected MANIPULATION, got %s", phase)
	}
	if conf != 0.80 {
		t.Errorf("Manipulation confidence = %.2f, want 0.80", conf)
	}
}

func TestDetectExpansion(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()

	in := Input{
		Now: baseTime,
		Events: []events.MarketEvent{
			ev(events.EventBullishStructureBreak, 40),
			ev(events.EventBullishStructureBreak, 15),
		},
	}

	phase, conf, _ := d.Detect(state, in)

	if phase != Expansion {
		t.Fatalf("Expected EXPANSION, got %s", phase)
	}
	if conf != 0.75 {
		t.Errorf("Expansion confidence = %.2f, want 0.75", conf)
	}
}

func TestMixedBreaksAreNotExpansion(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()

	in := Input{
		Now: baseTime,
		Events: []events.MarketEvent{
			ev(events.EventBullishStructureBreak, 40),
			ev(events.EventBearishStructureBreak, 15),
		},
	}

	if phase, _, _ := d.Detect(state, in); phase == Expansion {
		t.Error("Breaks in both directions must not classify as EXPANSION")
	}
}

func TestDetectAccumulation(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()

	in := Input{
		Now:          baseTime,
		Events:       []events.MarketEvent{ev(events.EventBullishFVGFormed, 10)},
		PriceInRange: true,
	}

	phase, conf, _ := d.Detect(state, in)

	if phase != Accumulation {
		t.Fatalf("Expected ACCUMULATION, got %s", phase)
	}
	if conf != 0.70 {
		t.Errorf("Accumulation confidence = %.2f, want 0.70", conf)
	}
}

func TestDetectReaccumulation(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()
	state.Current = Accumulation

	in := Input{
		Now:  baseTime,
		Bias: structure.BiasBullish,
		Events: []events.MarketEvent{
			ev(events.EventBullishStructureBreak, 10),
		},
	}

	phase, conf, _ := d.Detect(state, in)

	if phase != Reaccumulation {
		t.Fatalf("Expected REACCUMULATION, got %s", phase)
	}
	if conf != 0.60 {
		t.Errorf("Reaccumulation confidence = %.2f, want 0.60", conf)
	}
}

func TestDetectRedistribution(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()
	state.Current = Reaccumulation

	in := Input{
		Now:  baseTime,
		Bias: structure.BiasBearish,
		Events: []events.MarketEvent{
			ev(events.EventBearishStructureBreak, 10),
		},
	}

	if phase, _, _ := d.Detect(state, in); phase != Redistribution {
		t.Fatalf("Expected REDISTRIBUTION, got %s", phase)
	}
}

func TestDetectRanging(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()

	phase, conf, _ := d.Detect(state, Input{Now: baseTime})

	if phase != Ranging {
		t.Fatalf("Expected RANGING with no events, got %s", phase)
	}
	if conf != 0.40 {
		t.Errorf("Ranging confidence = %.2f, want 0.40", conf)
	}
}

func TestDetectUnknownFallback(t *testing.T) {
	// A lone break with price outside any range matches no branch
	d := NewDetector(60 * time.Minute)
	state := NewState()

	in := Input{
		Now:    baseTime,
		Events: []events.MarketEvent{ev(events.EventBullishStructureBreak, 10)},
	}

	phase, conf, _ := d.Detect(state, in)

	if phase != Unknown {
		t.Fatalf("Expected UNKNOWN, got %s", phase)
	}
	if conf != 0.30 {
		t.Errorf("Unknown confidence = %.2f, want 0.30", conf)
	}
}

func TestEventsOutsideLookbackIgnored(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()

	in := Input{
		Now:    baseTime,
		Events: []events.MarketEvent{ev(events.EventSellSideLiquiditySwept, 90)},
	}

	if phase, _, _ := d.Detect(state, in); phase != Ranging {
		t.Errorf("Stale events must be excluded, got %s", phase)
	}
}

func TestUpdateCommitsLegalTransition(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()
	state.Current = Accumulation

	in := Input{
		Now:    baseTime,
		Events: []events.MarketEvent{ev(events.EventBuySideLiquiditySwept, 20)},
	}

	if !d.Update(state, in) {
		t.Fatal("Legal ACCUMULATION -> MANIPULATION move must commit")
	}
	if state.Current != Manipulation {
		t.Errorf("Current phase = %s, want MANIPULATION", state.Current)
	}
	if len(state.History) != 1 || state.History[0].Overridden {
		t.Error("Committed legal transition must be recorded without the override flag")
	}
}

func TestUpdateBlocksIllegalLowConfidenceTransition(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()
	state.Current = Ranging

	// Two one-sided breaks detect EXPANSION at 0.75, which RANGING
	// cannot reach and 0.75 does not override
	in := Input{
		Now: baseTime,
		Events: []events.MarketEvent{
			ev(events.EventBullishStructureBreak, 40),
			ev(events.EventBullishStructureBreak, 15),
		},
	}

	if d.Update(state, in) {
		t.Fatal("RANGING -> EXPANSION below override must not commit")
	}
	if state.Current != Ranging {
		t.Errorf("Phase must hold at RANGING, got %s", state.Current)
	}
	if state.Confidence != 0.75 {
		t.Errorf("Held phase must still refresh confidence, got %.2f", state.Confidence)
	}
}

func TestUpdateOverrideCommitsIllegalTransition(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()
	state.Current = Ranging

	// Full sweep -> displacement -> imbalance sequence detects
	// DISTRIBUTION at the override threshold
	in := Input{
		Now: baseTime,
		Events: []events.MarketEvent{
			ev(events.EventBuySideLiquiditySwept, 30),
			ev(events.EventBearishDisplacement, 20),
			ev(events.EventBearishFVGFormed, 10),
		},
	}

	if !d.Update(state, in) {
		t.Fatal("Override-confidence detection must commit an illegal move")
	}
	if state.Current != Distribution {
		t.Errorf("Current phase = %s, want DISTRIBUTION", state.Current)
	}
	if !state.History[len(state.History)-1].Overridden {
		t.Error("Override commit must set the Overridden flag")
	}
}

func TestUpdateSamePhaseRefreshesConfidence(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()
	state.Current = Ranging
	state.Confidence = 0.9

	if d.Update(state, Input{Now: baseTime}) {
		t.Fatal("Re-detecting the current phase must not count as a transition")
	}
	if state.Confidence != 0.40 {
		t.Errorf("Confidence must refresh to 0.40, got %.2f", state.Confidence)
	}
}

func TestHistoryBounded(t *testing.T) {
	d := NewDetector(60 * time.Minute)
	state := NewState()

	sweep := Input{
		Now:    baseTime,
		Events: []events.MarketEvent{ev(events.EventSellSideLiquiditySwept, 20)},
	}
	quiet := Input{Now: baseTime}

	// Alternate MANIPULATION and RANGING well past the history cap
	for i := 0; i < HistoryLimit*2; i++ {
		if i%2 == 0 {
			d.Update(state, sweep)
		} else {
			d.Update(state, quiet)
		}
	}

	if len(state.History) != HistoryLimit {
		t.Errorf("History length = %d, want %d", len(state.History), HistoryLimit)
	}
}

func TestStateReset(t *testing.T) {
	state := NewState()
	state.commit(Transition{From: Unknown, To: Manipulation, At: baseTime, Confidence: 0.80})

	state.Reset()

	if state.Current != Unknown || len(state.History) != 0 || state.Confidence != 0 {
		t.Errorf("Reset must restore the initial state, got %+v", state)
	}
}
