package review

import (
	"fmt"
	"sort"
	"strings"
)

const lowScoreThreshold = 6.0

// BuildInsights derives the three weekly summary strings from a score set.
// With no active sectors it returns fixed placeholder guidance. Ties at the
// minimum score resolve to whichever sector the stable sort leaves last, so
// the open loop is order-dependent on ties.
func BuildInsights(scores []SectorScore) ReflectionInsights {
	if len(scores) == 0 {
		return ReflectionInsights{
			Facts:    "No active sectors configured for this week yet.",
			Patterns: "Activate at least one sector to generate weekly patterns.",
			OpenLoop: "Define your top sector and set an intention.",
		}
	}

	sorted := make([]SectorScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	avg := OverallScore(scores)

	var low []SectorScore
	for _, s := range scores {
		if s.Score < lowScoreThreshold {
			low = append(low, s)
		}
	}

	patterns := "No sectors below 6.0 this week. Maintain consistency over intensity."
	if len(low) > 0 {
		parts := make([]string, len(low))
		for i, s := range low {
			parts[i] = fmt.Sprintf("%s (%.1f)", s.Name, s.Score)
		}
		patterns = fmt.Sprintf("Sectors under 6.0: %s.", strings.Join(parts, ", "))
	}

	top := sorted[0]
	weakest := sorted[len(sorted)-1]

	return ReflectionInsights{
		Facts: fmt.Sprintf("Active sectors: %d. Average score: %.1f/10. Strongest sector: %s (%.1f).",
			len(scores), avg, top.Name, top.Score),
		Patterns: patterns,
		OpenLoop: fmt.Sprintf("Primary open loop: elevate %s next week.", weakest.Name),
	}
}
