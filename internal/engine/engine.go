package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smc-analyst/internal/circuit"
	"smc-analyst/internal/decision"
	"smc-analyst/internal/events"
	"smc-analyst/internal/guard"
	"smc-analyst/internal/market"
	"smc-analyst/internal/observer"
	"smc-analyst/internal/oracle"
	"smc-analyst/internal/phase"
	"smc-analyst/internal/state"
	"smc-analyst/internal/validator"
)

// CandleProvider supplies candle series per timeframe. Live and replay
// providers satisfy the same interface; the engine treats them
// identically.
type CandleProvider interface {
	Candles(ctx context.Context, symbol string, timeframes []market.Timeframe, limit int) (*market.MultiTimeframeCandles, error)
}

// Oracle is the reasoning boundary. Propose returns the model's raw
// response text; parsing and degradation happen on this side.
type Oracle interface {
	Propose(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AuditStore persists cycle artifacts for audit and replay
type AuditStore interface {
	SaveObservation(ctx context.Context, traceID string, obs observer.Result) error
	SaveValidation(ctx context.Context, traceID, symbol string, proposed decision.Proposed, result validator.Result) error
	SavePhaseTransition(ctx context.Context, symbol string, tr phase.Transition) error
}

// SnapshotStore persists per-symbol context so state survives restarts
type SnapshotStore interface {
	SaveContext(ctx context.Context, sc *state.Context) error
	LoadContext(ctx context.Context, symbol string) (*state.Context, error)
}

// Config holds engine parameters
type Config struct {
	Timeframes    []market.Timeframe `json:"timeframes"`
	CandleLimit   int                `json:"candle_limit"`
	PhaseLookback time.Duration      `json:"phase_lookback"`
}

// DefaultConfig returns standard engine parameters: one higher and one
// lower timeframe, an hour of phase lookback.
func DefaultConfig() Config {
	return Config{
		Timeframes:    []market.Timeframe{market.TF15m, market.TF1m},
		CandleLimit:   100,
		PhaseLookback: 60 * time.Minute,
	}
}

// CycleResult is everything one analysis cycle produced
type CycleResult struct {
	TraceID      string            `json:"trace_id"`
	Symbol       string            `json:"symbol"`
	Skipped      bool              `json:"skipped"` // Nothing material changed since last cycle
	Observation  observer.Result   `json:"observation"`
	PhaseChanged bool              `json:"phase_changed"`
	Proposed     decision.Proposed `json:"proposed"`
	Validation   validator.Result  `json:"validation"`
}

// Engine runs the full analysis cycle: observe, update phase, consult
// the oracle, validate. Cycles for one symbol are serialized; different
// symbols run independently.
type Engine struct {
	cfg       Config
	provider  CandleProvider
	oracle    Oracle
	obs       *observer.Observer
	detector  *phase.Detector
	validator *validator.Validator
	registry  *state.Registry
	bus       *events.Bus
	audit     AuditStore
	snapshots SnapshotStore
	news      *guard.NewsGuard
	breaker   *circuit.Breaker
	logger    zerolog.Logger

	mu       sync.Mutex
	symLocks map[string]*sync.Mutex
	prevObs  map[string]*observer.Result
}

// New creates an engine. audit and snapshots may be nil when persistence
// is disabled.
func New(cfg Config, provider CandleProvider, orc Oracle, obs *observer.Observer, det *phase.Detector, val *validator.Validator, reg *state.Registry, bus *events.Bus, audit AuditStore, snapshots SnapshotStore, logger zerolog.Logger) *Engine {
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = 100
	}
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = DefaultConfig().Timeframes
	}
	return &Engine{
		cfg:       cfg,
		provider:  provider,
		oracle:    orc,
		obs:       obs,
		detector:  det,
		validator: val,
		registry:  reg,
		bus:       bus,
		audit:     audit,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "Engine").Logger(),
		symLocks:  make(map[string]*sync.Mutex),
		prevObs:   make(map[string]*observer.Result),
	}
}

// Registry exposes the context registry for API consumers
func (e *Engine) Registry() *state.Registry {
	return e.registry
}

// SetNewsGuard wires scheduled news cooldowns into the cycle
func (e *Engine) SetNewsGuard(g *guard.NewsGuard) {
	e.news = g
}

// SetOracleBreaker wires a circuit breaker around oracle calls
func (e *Engine) SetOracleBreaker(b *circuit.Breaker) {
	e.breaker = b
}

// lockFor returns the per-symbol mutex, creating it on first use
func (e *Engine) lockFor(symbol string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.symLocks[symbol]
	if !ok {
		l = &sync.Mutex{}
		e.symLocks[symbol] = l
	}
	return l
}

// RunCycle executes one full analysis cycle for a symbol
func (e *Engine) RunCycle(ctx context.Context, symbol string) (*CycleResult, error) {
	lock := e.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	traceID := uuid.NewString()
	log := e.logger.With().Str("symbol", symbol).Str("trace_id", traceID).Logger()

	candles, err := e.provider.Candles(ctx, symbol, e.cfg.Timeframes, e.cfg.CandleLimit)
	if err != nil {
		log.Error().Err(err).Msg("candle fetch failed")
		return nil, err
	}

	now := candles.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	sc := e.registry.Get(symbol)
	prev := e.prevObs[symbol]

	obs := e.obs.Observe(symbol, now, candles, prev)
	result := &CycleResult{TraceID: traceID, Symbol: symbol, Observation: obs}

	// Unchanged material facts: skip the oracle round-trip entirely
	if prev != nil && prev.StateHash == obs.StateHash {
		log.Debug().Str("state_hash", obs.StateHash).Msg("state unchanged, skipping analysis")
		result.Skipped = true
		e.bus.Publish(events.Notice{Type: events.NoticeCycleSkipped, Symbol: symbol,
			Data: map[string]interface{}{"trace_id": traceID, "state_hash": obs.StateHash}})
		return result, nil
	}

	newEvents := obs.NewEvents(prev)
	e.prevObs[symbol] = &obs

	sc.RollSession(now, obs.Facts.Session.Session)
	if e.news != nil {
		if until, active := e.news.CooldownUntil(now); active {
			sc.StartNewsCooldown(until)
		}
	}
	sc.FoldObservation(now, obs.StateHash, newEvents,
		obs.Facts.Structure.HTFBias, obs.Facts.Structure.BiasStrength, obs.Facts.Structure.DealingRange)

	for _, ev := range newEvents {
		e.bus.PublishMarketEvent(ev)
	}
	if e.audit != nil {
		if err := e.audit.SaveObservation(ctx, traceID, obs); err != nil {
			log.Warn().Err(err).Msg("observation audit write failed")
		}
	}

	result.PhaseChanged = e.updatePhase(ctx, log, sc, obs, now)

	proposed := e.consultOracle(ctx, log, obs, sc)
	result.Proposed = proposed

	verdict := e.validator.Validate(proposed, sc, obs.Facts, now)
	result.Validation = verdict

	sc.RecordDecision(state.DecisionRecord{
		At:                 now,
		Decision:           string(proposed.Decision),
		FinalDecision:      string(verdict.FinalDecision),
		Approved:           verdict.Approved,
		OriginalConfidence: verdict.OriginalConfidence,
		AdjustedConfidence: verdict.AdjustedConfidence,
		VetoCount:          len(verdict.VetoReasons),
	})

	e.bus.PublishDecisionValidated(symbol, string(verdict.FinalDecision), verdict.Approved, len(verdict.VetoReasons), verdict.AdjustedConfidence)

	if e.audit != nil {
		if err := e.audit.SaveValidation(ctx, traceID, symbol, proposed, verdict); err != nil {
			log.Warn().Err(err).Msg("validation audit write failed")
		}
	}
	if e.snapshots != nil {
		if err := e.snapshots.SaveContext(ctx, sc); err != nil {
			log.Warn().Err(err).Msg("context snapshot failed")
		}
	}

	log.Info().
		Str("final_decision", string(verdict.FinalDecision)).
		Bool("approved", verdict.Approved).
		Int("vetoes", len(verdict.VetoReasons)).
		Float64("adjusted_confidence", verdict.AdjustedConfidence).
		Msg("cycle complete")

	return result, nil
}

// updatePhase runs the detector and commits under the transition rule
func (e *Engine) updatePhase(ctx context.Context, log zerolog.Logger, sc *state.Context, obs observer.Result, now time.Time) bool {
	from := sc.Phase.Current
	changed := e.detector.Update(sc.Phase, phase.Input{
		Now:          now,
		Events:       sc.RecentEvents(now, e.cfg.PhaseLookback),
		Bias:         obs.Facts.Structure.HTFBias,
		PriceInRange: sc.DealingRange.Contains(obs.CurrentPrice),
	})
	if !changed {
		return false
	}

	tr := sc.Phase.History[len(sc.Phase.History)-1]
	log.Info().Str("from", string(from)).Str("to", string(tr.To)).
		Float64("confidence", tr.Confidence).Msg("phase transition")
	e.bus.PublishPhaseChanged(sc.Symbol, string(from), string(tr.To), tr.Reason, tr.Confidence)

	if e.audit != nil {
		if err := e.audit.SavePhaseTransition(ctx, sc.Symbol, tr); err != nil {
			log.Warn().Err(err).Msg("phase audit write failed")
		}
	}
	return true
}

// consultOracle performs the single network-bound step. Any failure or
// contract violation degrades to a conservative NO_TRADE proposal.
func (e *Engine) consultOracle(ctx context.Context, log zerolog.Logger, obs observer.Result, sc *state.Context) decision.Proposed {
	if e.oracle == nil {
		return decision.Proposed{
			Decision:   decision.NoTrade,
			Confidence: oracle.FallbackConfidence,
			Reasoning:  "no reasoning oracle configured",
		}
	}

	if e.breaker != nil {
		if ok, reason := e.breaker.Allow(obs.Timestamp); !ok {
			log.Warn().Str("reason", reason).Msg("oracle call suppressed")
			return decision.Proposed{
				Decision:   decision.NoTrade,
				Confidence: oracle.FallbackConfidence,
				Reasoning:  reason,
			}
		}
	}

	raw, err := e.oracle.Propose(ctx, oracle.SystemPromptDecision, oracle.BuildUserPrompt(obs, sc))
	if err != nil {
		if e.breaker != nil {
			e.breaker.RecordFailure(obs.Timestamp, err)
		}
		log.Warn().Err(err).Msg("oracle call failed")
		return decision.Proposed{
			Decision:   decision.NoTrade,
			Confidence: oracle.FallbackConfidence,
			Reasoning:  "oracle unavailable: " + err.Error(),
		}
	}
	if e.breaker != nil {
		e.breaker.RecordSuccess()
	}

	return oracle.Parse(raw)
}
