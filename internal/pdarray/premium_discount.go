package pdarray

import (
	"smc-analyst/internal/structure"
)

// Zone names where price sits within a reference dealing range
type Zone string

const (
	ZonePremium     Zone = "PREMIUM"
	ZoneDiscount    Zone = "DISCOUNT"
	ZoneEquilibrium Zone = "EQUILIBRIUM"
	ZoneUnknown     Zone = "UNKNOWN" // No valid reference range
)

// / Equilibrium band: bottom 48% of the range is discount, top 52%+ is
// premium, the sliver between is equilibrium.
const (
	discountCeiling = 0.48
	premiumFloor    = 0.52
)

// ClassifyZone places price within the dealing range
func ClassifyZone(price float64, dr structure.DealingRange) Zone {
	if !dr.Valid() {
		return ZoneUnknown
	}

	pos := (price - dr.Low) / (dr.High - dr.Low)
	switch {
	case pos < discountCeiling:
		return ZoneDiscount
	case pos > premiumFloor:
		return ZonePremium
	default:
		return ZoneEquilibrium
	}
}

// OTE retracement band: the optimal trade entry window between the 62%
// and 79% retracement of the dealing range.
const (
	oteShallow = 0.62
	oteDeep    = 0.79
)

// InOTEZone reports whether price sits inside the optimal-entry
// retracement band for the given bias. For a bullish bias the band is
// measured down from the range high; for bearish, up from the low.
func InOTEZone(price float64, dr structure.DealingRange, bias structure.Bias) bool {
	if !dr.Valid() {
		return false
	}

	span := dr.High - dr.Low
	switch bias {
	case structure.BiasBullish:
		upper := dr.High - oteShallow*span
		lower := dr.High - oteDeep*span
		return price >= lower && price <= upper
	case structure.BiasBearish:
		lower := dr.Low + oteShallow*span
		upper := dr.Low + oteDeep*span
		return price >= lower && price <= upper
	default:
		return false
	}
}
