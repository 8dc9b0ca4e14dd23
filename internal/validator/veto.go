package validator

// VetoCode is the stable rule-reference id for a hard rejection. Codes
// are a closed set so audit trails and tests match on structure, not on
// message substrings.
type VetoCode string

const (
	VetoHTFBiasUnclear     VetoCode = "HTF_BIAS_UNCLEAR"
	VetoLTFNotAligned      VetoCode = "LTF_NOT_ALIGNED"
	VetoOutsideKillZone    VetoCode = "OUTSIDE_KILL_ZONE"
	VetoNoRecentSweep      VetoCode = "NO_RECENT_SWEEP"
	VetoNoDisplacement     VetoCode = "NO_DISPLACEMENT"
	VetoWrongEntryZone     VetoCode = "WRONG_ENTRY_ZONE"
	VetoNewsCooldown       VetoCode = "NEWS_COOLDOWN"
	VetoSessionLimit       VetoCode = "SESSION_LIMIT_REACHED"
	VetoPhaseNotSupportive VetoCode = "PHASE_NOT_SUPPORTIVE"
)

// VetoReason pairs a rule code with its human-readable explanation
type VetoReason struct {
	Code    VetoCode `json:"code"`
	Message string   `json:"message"`
}

func veto(code VetoCode, message string) VetoReason {
	return VetoReason{Code: code, Message: message}
}
