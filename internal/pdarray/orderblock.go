package pdarray

import (
	"time"

	"smc-analyst/internal/market"
	"smc-analyst/internal/structure"
)

// OrderBlock is the last opposite-direction candle before a displacement
// move, a zone where institutional orders are assumed to rest
type OrderBlock struct {
	Direction   structure.Bias `json:"direction"` // Direction of the displacement it precedes
	Top         float64        `json:"top"`
	Bottom      float64        `json:"bottom"`
	CandleIndex int            `json:"candle_index"`
	Timestamp   time.Time      `json:"timestamp"`
	Mitigated   bool           `json:"mitigated"` // Price has traded through the zone
}

// OrderBlockDetector locates order blocks from displacement candles
type OrderBlockDetector struct{}

// NewOrderBlockDetector creates an order block detector
func NewOrderBlockDetector() *OrderBlockDetector {
	return &OrderBlockDetector{}
}

// Detect walks back from each displacement candle to the last candle of
// the opposite color and records its full range as the block. A block is
// mitigated once a later close passes through its far side.
func (od *OrderBlockDetector) Detect(candles []market.Candle, displacements []structure.Displacement) []OrderBlock {
	var blocks []OrderBlock

	for _, d := range displacements {
		for i := d.CandleIndex - 1; i >= 0; i-- {
			c := candles[i]
			if d.Direction == structure.BiasBullish && !c.IsBearish() {
				continue
			}
			if d.Direction == structure.BiasBearish && !c.IsBullish() {
				continue
			}

			block := OrderBlock{
				Direction:   d.Direction,
				Top:         c.High,
				Bottom:      c.Low,
				CandleIndex: i,
				Timestamp:   c.Timestamp,
			}
			od.markMitigated(&block, candles[d.CandleIndex+1:])
			blocks = append(blocks, block)
			break
		}
	}

	return blocks
}

func (od *OrderBlockDetector) markMitigated(block *OrderBlock, later []market.Candle) {
	for _, c := range later {
		if block.Direction == structure.BiasBullish && c.Close < block.Bottom {
			block.Mitigated = true
			return
		}
		if block.Direction == structure.BiasBearish && c.Close > block.Top {
			block.Mitigated = true
			return
		}
	}
}

// Active returns only blocks price has not traded through
func Active(blocks []OrderBlock) []OrderBlock {
	var out []OrderBlock
	for _, b := range blocks {
		if !b.Mitigated {
			out = append(out, b)
		}
	}
	return out
}
