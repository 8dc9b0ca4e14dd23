package phase

// Phase is the market regime classification under the Power of Three
// model: accumulation, manipulation, distribution, plus the derived and
// fallback regimes.
type Phase string

const (
	Accumulation   Phase = "ACCUMULATION"
	Manipulation   Phase = "MANIPULATION"
	Distribution   Phase = "DISTRIBUTION"
	Expansion      Phase = "EXPANSION"
	Reaccumulation Phase = "REACCUMULATION"
	Redistribution Phase = "REDISTRIBUTION"
	Ranging        Phase = "RANGING"
	Unknown        Phase = "UNKNOWN"
)

// All lists every phase, used for exhaustive table checks in tests
var All = []Phase{
	Accumulation, Manipulation, Distribution, Expansion,
	Reaccumulation, Redistribution, Ranging, Unknown,
}

// OverrideConfidence lets a detection bypass the transition table when
// the detector is sufficiently sure of the new regime
const OverrideConfidence = 0.85

// transitions is the directed table of legal phase moves. UNKNOWN may
// move anywhere; every phase may fall back to UNKNOWN.
var transitions = map[Phase][]Phase{
	Unknown:        {Accumulation, Manipulation, Distribution, Expansion, Reaccumulation, Redistribution, Ranging},
	Accumulation:   {Manipulation, Reaccumulation, Ranging, Unknown},
	Manipulation:   {Distribution, Accumulation, Ranging, Unknown},
	Distribution:   {Expansion, Redistribution, Ranging, Unknown},
	Expansion:      {Distribution, Reaccumulation, Redistribution, Ranging, Unknown},
	Reaccumulation: {Expansion, Manipulation, Distribution, Ranging, Unknown},
	Redistribution: {Expansion, Manipulation, Distribution, Ranging, Unknown},
	Ranging:        {Accumulation, Manipulation, Unknown},
}

// CanTransition reports whether the table allows moving from one phase
// to another. Self-transitions are not moves and return false.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// SupportsEntry reports whether a regime permits trade entries. Only the
// delivery phases qualify.
func SupportsEntry(p Phase) bool {
	return p == Distribution || p == Expansion
}

// accumulationLike reports the phases that count as consolidation for
// re-accumulation and re-distribution detection
func accumulationLike(p Phase) bool {
	return p == Accumulation || p == Reaccumulation || p == Redistribution
}
