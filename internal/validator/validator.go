package validator

import (
	"fmt"
	"time"

	"smc-analyst/internal/decision"
	"smc-analyst/internal/events"
	"smc-analyst/internal/observer"
	"smc-analyst/internal/pdarray"
	"smc-analyst/internal/phase"
	"smc-analyst/internal/state"
	"smc-analyst/internal/structure"
)

// Config holds the validator's limits
type Config struct {
	MaxTradesPerSession int           `json:"max_trades_per_session"`
	SweepWindow         time.Duration `json:"sweep_window"`
}

// DefaultConfig returns the standard validation limits
func DefaultConfig() Config {
	return Config{
		MaxTradesPerSession: 3,
		SweepWindow:         60 * time.Minute,
	}
}

// Result is the validation verdict. AdjustedConfidence is forced to 0.0
// whenever any veto reason is present: a vetoed TRADE always becomes
// NO_TRADE regardless of the oracle's original confidence.
type Result struct {
	Approved           bool          `json:"approved"`
	FinalDecision      decision.Type `json:"final_decision"`
	VetoReasons        []VetoReason  `json:"veto_reasons,omitempty"`
	Warnings           []string      `json:"warnings,omitempty"`
	OriginalConfidence float64       `json:"original_confidence"`
	AdjustedConfidence float64       `json:"adjusted_confidence"`
	ConfluenceCount    int           `json:"confluence_count"`
}

// Validator is the hard-veto gate over proposed decisions. It can only
// downgrade or reject, never upgrade.
type Validator struct {
	cfg Config
}

// New creates a validator with the given limits
func New(cfg Config) *Validator {
	if cfg.MaxTradesPerSession <= 0 {
		cfg.MaxTradesPerSession = 3
	}
	if cfg.SweepWindow <= 0 {
		cfg.SweepWindow = 60 * time.Minute
	}
	return &Validator{cfg: cfg}
}

// Validate gates a proposed decision against the context and facts.
// WAIT and NO_TRADE pass through unconditionally; only TRADE is checked.
// All hard checks run independently and every failure is collected.
func (v *Validator) Validate(proposed decision.Proposed, ctx *state.Context, facts observer.Facts, now time.Time) Result {
	result := Result{
		FinalDecision:      proposed.Decision,
		OriginalConfidence: proposed.Confidence,
		AdjustedConfidence: proposed.Confidence,
	}

	if proposed.Decision != decision.Trade {
		result.Approved = true
		return result
	}

	direction := decision.Long
	if proposed.Setup != nil {
		direction = proposed.Setup.Direction
	}

	ltfAligned := v.checkAlignment(facts, direction)
	recentSweep := v.hasRecentSweep(ctx, facts, now)
	hasDisplacement := len(facts.PDArrays.Displacements) > 0

	// Hard checks, evaluated independently so audit sees every failure

	if facts.Structure.HTFBias == structure.BiasNeutral {
		result.VetoReasons = append(result.VetoReasons, veto(VetoHTFBiasUnclear, "HTF structure unclear"))
	}

	if !ltfAligned {
		result.VetoReasons = append(result.VetoReasons, veto(VetoLTFNotAligned,
			"LTF structure neither aligned with bias nor justified by a structure shift"))
	}

	if !facts.Session.InKillZone {
		result.VetoReasons = append(result.VetoReasons, veto(VetoOutsideKillZone,
			"outside recognized high-probability session window"))
	}

	if !recentSweep {
		result.VetoReasons = append(result.VetoReasons, veto(VetoNoRecentSweep,
			fmt.Sprintf("no liquidity sweep within the last %s", v.cfg.SweepWindow)))
	}

	if !hasDisplacement {
		result.VetoReasons = append(result.VetoReasons, veto(VetoNoDisplacement,
			"no displacement candle present"))
	}

	switch zone := facts.PDArrays.Zone; {
	case zone == pdarray.ZoneEquilibrium:
		result.Warnings = append(result.Warnings, "entry at equilibrium, neither premium nor discount")
	case direction == decision.Long && zone != pdarray.ZoneDiscount:
		result.VetoReasons = append(result.VetoReasons, veto(VetoWrongEntryZone,
			fmt.Sprintf("long entry in %s zone, discount required", zone)))
	case direction == decision.Short && zone != pdarray.ZonePremium:
		result.VetoReasons = append(result.VetoReasons, veto(VetoWrongEntryZone,
			fmt.Sprintf("short entry in %s zone, premium required", zone)))
	}

	if ctx.InNewsCooldown(now) {
		result.VetoReasons = append(result.VetoReasons, veto(VetoNewsCooldown,
			fmt.Sprintf("news cooldown active until %s", ctx.NewsCooldownUntil.UTC().Format(time.RFC3339))))
	}

	if ctx.TradesThisSession >= v.cfg.MaxTradesPerSession {
		result.VetoReasons = append(result.VetoReasons, veto(VetoSessionLimit,
			fmt.Sprintf("%d trades this session, cap is %d", ctx.TradesThisSession, v.cfg.MaxTradesPerSession)))
	}

	if !phase.SupportsEntry(ctx.Phase.Current) {
		result.VetoReasons = append(result.VetoReasons, veto(VetoPhaseNotSupportive,
			fmt.Sprintf("phase %s does not support entries", ctx.Phase.Current)))
	}

	result.ConfluenceCount = v.countConfluence(ctx, facts, direction, ltfAligned, recentSweep, hasDisplacement)

	if len(result.VetoReasons) > 0 {
		result.Approved = false
		result.FinalDecision = decision.NoTrade
		result.AdjustedConfidence = 0.0
		return result
	}

	result.Approved = true
	result.AdjustedConfidence = v.adjustConfidence(&result, ctx)
	return result
}

// checkAlignment passes when LTF structure matches the HTF bias, or a
// structure shift justifies the proposed direction
func (v *Validator) checkAlignment(facts observer.Facts, direction decision.Direction) bool {
	bias := facts.Structure.HTFBias
	ltf := facts.Structure.LTFLabel

	if bias == structure.BiasBullish && ltf == structure.StructureBullish {
		return true
	}
	if bias == structure.BiasBearish && ltf == structure.StructureBearish {
		return true
	}

	for _, br := range facts.Structure.Breaks {
		if br.Kind != structure.BreakShift {
			continue
		}
		if direction == decision.Long && br.Direction == structure.BiasBullish {
			return true
		}
		if direction == decision.Short && br.Direction == structure.BiasBearish {
			return true
		}
	}
	return false
}

// hasRecentSweep checks the current facts first, then the context's
// folded event history
func (v *Validator) hasRecentSweep(ctx *state.Context, facts observer.Facts, now time.Time) bool {
	cutoff := now.Add(-v.cfg.SweepWindow)
	for _, sw := range facts.Liquidity.Sweeps {
		if !sw.Timestamp.Before(cutoff) {
			return true
		}
	}
	for _, ev := range ctx.RecentEvents(now, v.cfg.SweepWindow) {
		if ev.Type == events.EventBuySideLiquiditySwept || ev.Type == events.EventSellSideLiquiditySwept {
			return true
		}
	}
	return false
}

// countConfluence tallies the ten fixed confluence conditions. The count
// feeds the soft-warning thresholds only, never a veto.
func (v *Validator) countConfluence(ctx *state.Context, facts observer.Facts, direction decision.Direction, ltfAligned, recentSweep, hasDisplacement bool) int {
	hasShift := false
	for _, br := range facts.Structure.Breaks {
		if br.Kind == structure.BreakShift {
			hasShift = true
			break
		}
	}

	zoneMatches := (direction == decision.Long && facts.PDArrays.Zone == pdarray.ZoneDiscount) ||
		(direction == decision.Short && facts.PDArrays.Zone == pdarray.ZonePremium)

	conditions := []bool{
		facts.Structure.HTFBias != structure.BiasNeutral, // Bias clarity
		ltfAligned,
		hasShift,
		recentSweep,
		hasDisplacement,
		facts.PDArrays.UnfilledFVGs > 0,
		facts.PDArrays.ActiveBlocks > 0,
		facts.Session.InKillZone,
		facts.PDArrays.InOTEZone && zoneMatches,
		phase.SupportsEntry(ctx.Phase.Current),
	}

	count := 0
	for _, ok := range conditions {
		if ok {
			count++
		}
	}
	return count
}

// adjustConfidence applies the soft checks and clamps to [0,1]
func (v *Validator) adjustConfidence(result *Result, ctx *state.Context) float64 {
	conf := result.OriginalConfidence

	if ctx.Phase.Confidence < 0.5 {
		conf -= 0.10
		result.Warnings = append(result.Warnings, "low phase confidence")
	}

	switch {
	case result.ConfluenceCount < 3:
		conf -= 0.15
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("weak confluence, only %d of 10 elements", result.ConfluenceCount))
	case result.ConfluenceCount >= 5:
		conf += 0.05
	}

	if biasStrengthWeak(ctx) {
		conf -= 0.05
		result.Warnings = append(result.Warnings, "weak bias strength")
	}

	if ctx.ShiftsThisSession >= 3 {
		conf -= 0.10
		result.Warnings = append(result.Warnings, "choppy market, repeated structure shifts this session")
	}

	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

// biasStrengthWeak reads the last observed bias strength from context.
// A neutral bias never reaches this point; weak means under 60% of
// swings agreeing with the trend.
func biasStrengthWeak(ctx *state.Context) bool {
	return ctx.LastBiasStrength > 0 && ctx.LastBiasStrength < 0.6
}
