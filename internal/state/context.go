package state

import (
	"fmt"
	"time"

	"smc-analyst/internal/events"
	"smc-analyst/internal/phase"
	"smc-analyst/internal/session"
	"smc-analyst/internal/structure"
)

// Bounds on retained history per symbol
const (
	eventHistoryLimit    = 200
	decisionHistoryLimit = 50
)

// DecisionRecord summarizes one validated decision for the audit history
type DecisionRecord struct {
	At                 time.Time `json:"at"`
	Decision           string    `json:"decision"`
	FinalDecision      string    `json:"final_decision"`
	Approved           bool      `json:"approved"`
	OriginalConfidence float64   `json:"original_confidence"`
	AdjustedConfidence float64   `json:"adjusted_confidence"`
	VetoCount          int       `json:"veto_count"`
}

// Context is the persistent per-symbol analysis state. One Context exists
// per active symbol; the caller owns its lifecycle and serializes access
// per symbol. Mutation happens between pipeline steps, never inside them.
type Context struct {
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Phase *phase.State `json:"phase"`

	// Rolling observation memory
	LastStateHash    string                 `json:"last_state_hash"`
	EventHistory     []events.MarketEvent   `json:"event_history"`
	DealingRange     structure.DealingRange `json:"dealing_range"`
	LastBias         structure.Bias         `json:"last_bias"`
	LastBiasStrength float64                `json:"last_bias_strength"`

	// Session-scoped counters, reset when the session key changes
	SessionKey           string `json:"session_key"`
	TradesThisSession    int    `json:"trades_this_session"`
	ShiftsThisSession    int    `json:"shifts_this_session"`
	DecisionsThisSession int    `json:"decisions_this_session"`

	NewsCooldownUntil time.Time `json:"news_cooldown_until"`

	Decisions []DecisionRecord `json:"decisions"`
}

// NewContext creates the initial context for a symbol
func NewContext(symbol string) *Context {
	now := time.Now().UTC()
	return &Context{
		Symbol:    symbol,
		CreatedAt: now,
		UpdatedAt: now,
		Phase:     phase.NewState(),
		LastBias:  structure.BiasNeutral,
	}
}

// sessionKeyFor scopes the per-session counters to one session of one
// UTC day
func sessionKeyFor(ts time.Time, sess session.Name) string {
	return fmt.Sprintf("%s:%s", ts.UTC().Format("2006-01-02"), sess)
}

// RollSession resets session counters when the active session changes
func (c *Context) RollSession(ts time.Time, sess session.Name) {
	key := sessionKeyFor(ts, sess)
	if key == c.SessionKey {
		return
	}
	c.SessionKey = key
	c.TradesThisSession = 0
	c.ShiftsThisSession = 0
	c.DecisionsThisSession = 0
}

// FoldObservation absorbs an observation's durable facts into the context
func (c *Context) FoldObservation(ts time.Time, stateHash string, newEvents []events.MarketEvent, bias structure.Bias, biasStrength float64, dr structure.DealingRange) {
	c.LastStateHash = stateHash
	c.LastBias = bias
	c.LastBiasStrength = biasStrength
	if dr.Valid() {
		c.DealingRange = dr
	}

	for _, ev := range newEvents {
		if ev.Type == events.EventBullishStructureShift || ev.Type == events.EventBearishStructureShift {
			c.ShiftsThisSession++
		}
	}

	c.EventHistory = append(c.EventHistory, newEvents...)
	if len(c.EventHistory) > eventHistoryLimit {
		c.EventHistory = c.EventHistory[len(c.EventHistory)-eventHistoryLimit:]
	}
	c.UpdatedAt = ts
}

// RecordDecision appends a validation summary and maintains the
// trades-this-session counter the validator consults
func (c *Context) RecordDecision(rec DecisionRecord) {
	c.Decisions = append(c.Decisions, rec)
	if len(c.Decisions) > decisionHistoryLimit {
		c.Decisions = c.Decisions[len(c.Decisions)-decisionHistoryLimit:]
	}

	c.DecisionsThisSession++
	if rec.Approved && rec.FinalDecision == "TRADE" {
		c.TradesThisSession++
	}
	c.UpdatedAt = rec.At
}

// StartNewsCooldown opens a cooldown window during which the validator
// rejects entries
func (c *Context) StartNewsCooldown(until time.Time) {
	c.NewsCooldownUntil = until
}

// InNewsCooldown reports whether a cooldown window is active
func (c *Context) InNewsCooldown(now time.Time) bool {
	return now.Before(c.NewsCooldownUntil)
}

// RecentEvents returns history events within the window ending at now
func (c *Context) RecentEvents(now time.Time, window time.Duration) []events.MarketEvent {
	cutoff := now.Add(-window)
	var out []events.MarketEvent
	for _, ev := range c.EventHistory {
		if !ev.Timestamp.Before(cutoff) && !ev.Timestamp.After(now) {
			out = append(out, ev)
		}
	}
	return out
}
