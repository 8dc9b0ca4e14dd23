package observer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"smc-analyst/internal/events"
)

// hashFacts digests the materially significant subset of the facts: bias,
// structure labels, per-type event counts, session and kill-zone flags,
// and the premium/discount zone. Two observations with equal hashes are
// equivalent for the purpose of skipping downstream analysis.
func hashFacts(f Facts, evs []events.MarketEvent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "bias=%s|htf=%s|ltf=%s|zone=%s|session=%s|killzone=%s|inkz=%t",
		f.Structure.HTFBias,
		f.Structure.HTFLabel,
		f.Structure.LTFLabel,
		f.PDArrays.Zone,
		f.Session.Session,
		f.Session.KillZone,
		f.Session.InKillZone,
	)

	counts := events.CountByType(evs)
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&b, "|%s=%d", t, counts[events.EventType(t)])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
