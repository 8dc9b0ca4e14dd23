package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smc-analyst/internal/decision"
	"smc-analyst/internal/observer"
	"smc-analyst/internal/phase"
	"smc-analyst/internal/validator"
)

// AuditRepository persists analysis cycle artifacts
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// SaveObservation stores an observation result with its facts and events
func (r *AuditRepository) SaveObservation(ctx context.Context, traceID string, obs observer.Result) error {
	facts, err := json.Marshal(obs.Facts)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	events, err := json.Marshal(obs.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO observations (trace_id, symbol, observed_at, current_price, state_hash, event_count, facts, events)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		traceID, obs.Symbol, obs.Timestamp, obs.CurrentPrice, obs.StateHash, len(obs.Events), facts, events,
	)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

// SaveValidation stores a proposed decision together with its verdict
func (r *AuditRepository) SaveValidation(ctx context.Context, traceID, symbol string, proposed decision.Proposed, result validator.Result) error {
	vetoes, err := json.Marshal(result.VetoReasons)
	if err != nil {
		return fmt.Errorf("marshal veto reasons: %w", err)
	}
	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO validations (trace_id, symbol, proposed_decision, final_decision, approved,
			original_confidence, adjusted_confidence, veto_reasons, warnings, confluence_count, reasoning)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		traceID, symbol, string(proposed.Decision), string(result.FinalDecision), result.Approved,
		result.OriginalConfidence, result.AdjustedConfidence, vetoes, warnings, result.ConfluenceCount, proposed.Reasoning,
	)
	if err != nil {
		return fmt.Errorf("insert validation: %w", err)
	}
	return nil
}

// SavePhaseTransition stores a committed phase transition
func (r *AuditRepository) SavePhaseTransition(ctx context.Context, symbol string, tr phase.Transition) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO phase_transitions (symbol, from_phase, to_phase, confidence, reason, overridden, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		symbol, string(tr.From), string(tr.To), tr.Confidence, tr.Reason, tr.Overridden, tr.At,
	)
	if err != nil {
		return fmt.Errorf("insert phase transition: %w", err)
	}
	return nil
}

// ObservationRow is a stored observation summary
type ObservationRow struct {
	ID           int64     `json:"id"`
	TraceID      string    `json:"trace_id"`
	Symbol       string    `json:"symbol"`
	ObservedAt   time.Time `json:"observed_at"`
	CurrentPrice float64   `json:"current_price"`
	StateHash    string    `json:"state_hash"`
	EventCount   int       `json:"event_count"`
}

// RecentObservations returns the latest observations for a symbol
func (r *AuditRepository) RecentObservations(ctx context.Context, symbol string, limit int) ([]ObservationRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, trace_id, symbol, observed_at, current_price, state_hash, event_count
		FROM observations WHERE symbol = $1
		ORDER BY observed_at DESC LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []ObservationRow
	for rows.Next() {
		var o ObservationRow
		if err := rows.Scan(&o.ID, &o.TraceID, &o.Symbol, &o.ObservedAt, &o.CurrentPrice, &o.StateHash, &o.EventCount); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ValidationRow is a stored validation verdict
type ValidationRow struct {
	ID                 int64           `json:"id"`
	TraceID            string          `json:"trace_id"`
	Symbol             string          `json:"symbol"`
	ProposedDecision   string          `json:"proposed_decision"`
	FinalDecision      string          `json:"final_decision"`
	Approved           bool            `json:"approved"`
	OriginalConfidence float64         `json:"original_confidence"`
	AdjustedConfidence float64         `json:"adjusted_confidence"`
	VetoReasons        json.RawMessage `json:"veto_reasons"`
	Warnings           json.RawMessage `json:"warnings"`
	ConfluenceCount    int             `json:"confluence_count"`
	CreatedAt          time.Time       `json:"created_at"`
}

// RecentValidations returns the latest validation verdicts for a symbol
func (r *AuditRepository) RecentValidations(ctx context.Context, symbol string, limit int) ([]ValidationRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, trace_id, symbol, proposed_decision, final_decision, approved,
			original_confidence, adjusted_confidence, veto_reasons, warnings, confluence_count, created_at
		FROM validations WHERE symbol = $1
		ORDER BY created_at DESC LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query validations: %w", err)
	}
	defer rows.Close()

	var out []ValidationRow
	for rows.Next() {
		var v ValidationRow
		if err := rows.Scan(&v.ID, &v.TraceID, &v.Symbol, &v.ProposedDecision, &v.FinalDecision, &v.Approved,
			&v.OriginalConfidence, &v.AdjustedConfidence, &v.VetoReasons, &v.Warnings, &v.ConfluenceCount, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan validation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// PhaseTransitionRow is a stored phase transition
type PhaseTransitionRow struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	FromPhase  string    `json:"from_phase"`
	ToPhase    string    `json:"to_phase"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Overridden bool      `json:"overridden"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RecentPhaseTransitions returns the latest phase transitions for a symbol
func (r *AuditRepository) RecentPhaseTransitions(ctx context.Context, symbol string, limit int) ([]PhaseTransitionRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, symbol, from_phase, to_phase, confidence, reason, overridden, occurred_at
		FROM phase_transitions WHERE symbol = $1
		ORDER BY occurred_at DESC LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query phase transitions: %w", err)
	}
	defer rows.Close()

	var out []PhaseTransitionRow
	for rows.Next() {
		var p PhaseTransitionRow
		if err := rows.Scan(&p.ID, &p.Symbol, &p.FromPhase, &p.ToPhase, &p.Confidence, &p.Reason, &p.Overridden, &p.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan phase transition: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
