package oracle

import (
	"fmt"
	"strings"

	"smc-analyst/internal/observer"
	"smc-analyst/internal/state"
)

// SystemPromptDecision instructs the model on the decision contract
const SystemPromptDecision = `You are a disciplined smart-money-concepts trading analyst. You receive objective market facts: structure, liquidity, imbalances, session state and current regime. Propose exactly one decision.

Your response must be valid JSON with this structure:
{
  "decision": "TRADE" | "WAIT" | "NO_TRADE",
  "confidence": 0.0-1.0,
  "reasoning": "brief explanation grounded in the supplied facts",
  "rule_citations": ["rule names you relied on"],
  "setup": {
    "direction": "LONG" | "SHORT",
    "entry": number,
    "stop": number,
    "target": number
  }
}

Omit "setup" unless the decision is TRADE.
Only propose TRADE when higher-timeframe bias, liquidity behavior and session timing align. A proposed trade will still pass a hard rule gate; do not argue against the rules.
Be conservative with confidence. Missing a trade is acceptable; an unsafe trade is not.`

// BuildUserPrompt renders the fact bundle and persistent context into the
// narrative the model reasons over
func BuildUserPrompt(obs observer.Result, ctx *state.Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Market snapshot: %s at %s\n", obs.Symbol, obs.Timestamp.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Current price: %.5f\n\n", obs.CurrentPrice)

	f := obs.Facts
	fmt.Fprintf(&b, "## Structure\n")
	fmt.Fprintf(&b, "- HTF bias: %s (structure %s, strength %.2f)\n", f.Structure.HTFBias, f.Structure.HTFLabel, f.Structure.BiasStrength)
	fmt.Fprintf(&b, "- LTF structure: %s\n", f.Structure.LTFLabel)
	if f.Structure.DealingRange.Valid() {
		fmt.Fprintf(&b, "- Dealing range: %.5f to %.5f, price in %s\n", f.Structure.DealingRange.Low, f.Structure.DealingRange.High, f.PDArrays.Zone)
	}

	fmt.Fprintf(&b, "\n## Liquidity\n")
	fmt.Fprintf(&b, "- Pools: %d, sweeps in window: %d\n", len(f.Liquidity.Pools), len(f.Liquidity.Sweeps))
	fmt.Fprintf(&b, "- Unfilled FVGs: %d, active order blocks: %d, displacements: %d\n",
		f.PDArrays.UnfilledFVGs, f.PDArrays.ActiveBlocks, len(f.PDArrays.Displacements))

	fmt.Fprintf(&b, "\n## Session\n")
	fmt.Fprintf(&b, "- Session: %s, kill zone: %s (in kill zone: %t)\n", f.Session.Session, f.Session.KillZone, f.Session.InKillZone)

	fmt.Fprintf(&b, "\n## Events this cycle\n")
	if len(obs.Events) == 0 {
		b.WriteString("- none\n")
	}
	for _, ev := range obs.Events {
		fmt.Fprintf(&b, "- %s %s: %s\n", ev.Timestamp.UTC().Format("15:04"), ev.Type, ev.Description)
	}

	fmt.Fprintf(&b, "\n## Regime context\n")
	fmt.Fprintf(&b, "- Phase: %s since %s (confidence %.2f)\n", ctx.Phase.Current, ctx.Phase.Since.UTC().Format("15:04"), ctx.Phase.Confidence)
	if ctx.Phase.LastTransitionReason != "" {
		fmt.Fprintf(&b, "- Last transition: %s\n", ctx.Phase.LastTransitionReason)
	}
	fmt.Fprintf(&b, "- Trades this session: %d, structure shifts this session: %d\n", ctx.TradesThisSession, ctx.ShiftsThisSession)

	if n := len(ctx.Decisions); n > 0 {
		last := ctx.Decisions[n-1]
		fmt.Fprintf(&b, "- Previous decision: %s (approved=%t, confidence %.2f)\n", last.FinalDecision, last.Approved, last.AdjustedConfidence)
	}

	return b.String()
}
