package phase

import (
	"time"
)

// HistoryLimit bounds the retained transition history per symbol
const HistoryLimit = 20

// Transition records one committed phase change
type Transition struct {
	From       Phase     `json:"from"`
	To         Phase     `json:"to"`
	At         time.Time `json:"at"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Overridden bool      `json:"overridden"` // Committed via the confidence override
}

// State is the persistent per-symbol phase state. It is mutated only by
// Detector.Update; everything else reads it.
type State struct {
	Current              Phase        `json:"current"`
	Since                time.Time    `json:"since"`
	Confidence           float64      `json:"confidence"`
	History              []Transition `json:"history"`
	LastTransitionReason string       `json:"last_transition_reason"`
}

// NewState returns the initial phase state
func NewState() *State {
	return &State{Current: Unknown}
}

// commit applies a transition and appends it to the bounded history
func (s *State) commit(tr Transition) {
	s.Current = tr.To
	s.Since = tr.At
	s.Confidence = tr.Confidence
	s.LastTransitionReason = tr.Reason

	s.History = append(s.History, tr)
	if len(s.History) > HistoryLimit {
		s.History = s.History[len(s.History)-HistoryLimit:]
	}
}

// Reset returns the state to its initial condition
func (s *State) Reset() {
	*s = State{Current: Unknown}
}
