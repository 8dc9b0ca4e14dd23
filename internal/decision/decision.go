// Package decision defines the shapes exchanged with the external
// reasoning oracle: the proposed decision it returns and the trade setup
// attached to it.
package decision

// Type is the oracle's recommendation
type Type string

const (
	Trade   Type = "TRADE"
	Wait    Type = "WAIT"
	NoTrade Type = "NO_TRADE"
)

// Valid reports whether the value is a member of the closed enumeration
func (t Type) Valid() bool {
	return t == Trade || t == Wait || t == NoTrade
}

// Direction is the proposed trade direction
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Setup carries the price levels for a proposed trade
type Setup struct {
	Direction Direction `json:"direction"`
	Entry     float64   `json:"entry"`
	Stop      float64   `json:"stop"`
	Target    float64   `json:"target"`
}

// Proposed is the oracle's decision payload. It is immutable once
// received; the validator may only reject or downgrade it.
type Proposed struct {
	Decision      Type     `json:"decision"`
	Confidence    float64  `json:"confidence"` // 0.0 to 1.0
	Reasoning     string   `json:"reasoning"`
	RuleCitations []string `json:"rule_citations,omitempty"`
	Setup         *Setup   `json:"setup,omitempty"`
}
