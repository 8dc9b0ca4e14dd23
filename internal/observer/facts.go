package observer

import (
	"smc-analyst/internal/liquidity"
	"smc-analyst/internal/pdarray"
	"smc-analyst/internal/session"
	"smc-analyst/internal/structure"
)

// StructureFacts carries the structural read across timeframes
type StructureFacts struct {
	HTFBias      structure.Bias             `json:"htf_bias"`
	HTFLabel     structure.StructureLabel   `json:"htf_label"`
	LTFLabel     structure.StructureLabel   `json:"ltf_label"`
	BiasStrength float64                    `json:"bias_strength"`
	DealingRange structure.DealingRange     `json:"dealing_range"`
	Breaks       []structure.StructureBreak `json:"breaks"`
}

// LiquidityFacts carries pools and sweeps from the lower timeframe
type LiquidityFacts struct {
	Pools  []liquidity.Pool  `json:"pools"`
	Sweeps []liquidity.Sweep `json:"sweeps"`
}

// PDArrayFacts carries imbalance and zone placement facts
type PDArrayFacts struct {
	FVGs          []pdarray.FVG            `json:"fvgs"`
	UnfilledFVGs  int                      `json:"unfilled_fvgs"`
	OrderBlocks   []pdarray.OrderBlock     `json:"order_blocks"`
	ActiveBlocks  int                      `json:"active_blocks"`
	Zone          pdarray.Zone             `json:"zone"`
	InOTEZone     bool                     `json:"in_ote_zone"`
	Displacements []structure.Displacement `json:"displacements"`
}

// Facts is the complete interpretation-free fact bundle for one cycle
type Facts struct {
	Structure StructureFacts `json:"structure"`
	Liquidity LiquidityFacts `json:"liquidity"`
	PDArrays  PDArrayFacts   `json:"pd_arrays"`
	Session   session.Status `json:"session"`
}

// NeutralFacts is the degraded bundle returned when a candle series is
// too short for structure detection
func NeutralFacts(sess session.Status) Facts {
	return Facts{
		Structure: StructureFacts{
			HTFBias:  structure.BiasNeutral,
			HTFLabel: structure.StructureUnclear,
			LTFLabel: structure.StructureUnclear,
		},
		PDArrays: PDArrayFacts{Zone: pdarray.ZoneUnknown},
		Session:  sess,
	}
}
