package events

import (
	"sync"
	"time"
)

// NoticeType names system-level notifications flowing through the bus
type NoticeType string

const (
	NoticeMarketEvent       NoticeType = "MARKET_EVENT"
	NoticeObservationDone   NoticeType = "OBSERVATION_COMPLETED"
	NoticePhaseChanged      NoticeType = "PHASE_CHANGED"
	NoticeDecisionValidated NoticeType = "DECISION_VALIDATED"
	NoticeCycleSkipped      NoticeType = "CYCLE_SKIPPED"
	NoticeContextReset      NoticeType = "CONTEXT_RESET"
	NoticeAnalysisError     NoticeType = "ANALYSIS_ERROR"
)

// Notice is a system notification published during analysis cycles
type Notice struct {
	Type      NoticeType             `json:"type"`
	Symbol    string                 `json:"symbol"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles notices
type Subscriber func(Notice)

// Bus manages notice publishing and subscriptions for the analysis
// pipeline. Subscribers run on their own goroutines so slow consumers
// never block a cycle.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[NoticeType][]Subscriber
	allSubs     []Subscriber
}

// NewBus creates a new notice bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[NoticeType][]Subscriber),
	}
}

// Subscribe registers a subscriber for a specific notice type
func (b *Bus) Subscribe(t NoticeType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], sub)
}

// SubscribeAll registers a subscriber for all notices
func (b *Bus) SubscribeAll(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, sub)
}

// Publish sends a notice to all registered subscribers
func (b *Bus) Publish(n Notice) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	if subs, ok := b.subscribers[n.Type]; ok {
		for _, sub := range subs {
			go sub(n)
		}
	}
	for _, sub := range b.allSubs {
		go sub(n)
	}
}

// PublishMarketEvent publishes a single observed market event
func (b *Bus) PublishMarketEvent(ev MarketEvent) {
	b.Publish(Notice{
		Type:      NoticeMarketEvent,
		Symbol:    ev.Symbol,
		Timestamp: ev.Timestamp,
		Data: map[string]interface{}{
			"event_id":    ev.ID,
			"event_type":  string(ev.Type),
			"price_level": ev.PriceLevel,
			"timeframe":   ev.Timeframe,
			"description": ev.Description,
		},
	})
}

// PublishPhaseChanged publishes a committed phase transition
func (b *Bus) PublishPhaseChanged(symbol, from, to, reason string, confidence float64) {
	b.Publish(Notice{
		Type:   NoticePhaseChanged,
		Symbol: symbol,
		Data: map[string]interface{}{
			"from":       from,
			"to":         to,
			"reason":     reason,
			"confidence": confidence,
		},
	})
}

// PublishDecisionValidated publishes a validation verdict
func (b *Bus) PublishDecisionValidated(symbol, finalDecision string, approved bool, vetoCount int, adjustedConfidence float64) {
	b.Publish(Notice{
		Type:   NoticeDecisionValidated,
		Symbol: symbol,
		Data: map[string]interface{}{
			"final_decision":      finalDecision,
			"approved":            approved,
			"veto_count":          vetoCount,
			"adjusted_confidence": adjustedConfidence,
		},
	})
}
