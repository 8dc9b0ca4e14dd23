package oracle

import (
	"encoding/json"
	"regexp"
	"strings"

	"smc-analyst/internal/decision"
)

// FallbackConfidence is the confidence assigned when the model's output
// cannot be parsed into the expected shape
const FallbackConfidence = 0.3

// stripMarkdownCodeBlock removes markdown code fences from model output.
// Handles ```json\n{...}\n``` and bare ``` fences.
func stripMarkdownCodeBlock(response string) string {
	response = strings.TrimSpace(response)

	re := regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?```$")
	if matches := re.FindStringSubmatch(response); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return response
}

// extractJSON pulls the first JSON object out of surrounding prose when
// the model wrapped its answer in commentary
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// rawDecision is the wire shape the model is asked for. Confidence is
// accepted on either a 0-1 or 0-100 scale.
type rawDecision struct {
	Decision      string          `json:"decision"`
	Confidence    float64         `json:"confidence"`
	Reasoning     string          `json:"reasoning"`
	RuleCitations []string        `json:"rule_citations"`
	Setup         *decision.Setup `json:"setup"`
}

// Parse converts model output into a proposed decision. A malformed or
// unparseable response is never an error: it degrades to NO_TRADE at
// fallback confidence with a diagnostic rationale, so an oracle contract
// violation can never crash an analysis cycle.
func Parse(response string) decision.Proposed {
	text := extractJSON(stripMarkdownCodeBlock(response))

	var raw rawDecision
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return fallback("oracle response was not valid JSON: " + err.Error())
	}

	dt := decision.Type(strings.ToUpper(strings.TrimSpace(raw.Decision)))
	if !dt.Valid() {
		return fallback("oracle response carried unknown decision " + strings.TrimSpace(raw.Decision))
	}

	conf := raw.Confidence
	if conf > 1 {
		conf /= 100 // Model answered on a percentage scale
	}
	if conf < 0 || conf > 1 {
		return fallback("oracle confidence out of range")
	}

	if raw.Setup != nil {
		dir := decision.Direction(strings.ToUpper(string(raw.Setup.Direction)))
		if dir != decision.Long && dir != decision.Short {
			return fallback("oracle setup carried unknown direction " + string(raw.Setup.Direction))
		}
		raw.Setup.Direction = dir
	}

	return decision.Proposed{
		Decision:      dt,
		Confidence:    conf,
		Reasoning:     raw.Reasoning,
		RuleCitations: raw.RuleCitations,
		Setup:         raw.Setup,
	}
}

func fallback(diagnostic string) decision.Proposed {
	return decision.Proposed{
		Decision:   decision.NoTrade,
		Confidence: FallbackConfidence,
		Reasoning:  diagnostic,
	}
}
