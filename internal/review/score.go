package review

import "strings"

const (
	defaultScore    = 5
	noIntentionText = "No intention set yet."
	intentionPrefix = "Next week: "
)

// BuildSectorScores projects the current entry map onto the active contracts.
// One score per active contract, in contract order. A sector with no rating
// yet scores the neutral midpoint rather than zero; a missing entry is
// treated the same as an empty one.
func BuildSectorScores(contracts []SectorContract, entries WeeklyEntryMap) []SectorScore {
	scores := make([]SectorScore, 0, len(contracts))
	for _, contract := range contracts {
		if !contract.Active {
			continue
		}
		entry, ok := entries[contract.ID]

		score := float64(defaultScore)
		if ok && entry.Rating != nil {
			score = *entry.Rating
		}

		rationale := noIntentionText
		if ok {
			if intention := strings.TrimSpace(entry.Intention); intention != "" {
				rationale = intentionPrefix + intention
			}
		}

		scores = append(scores, SectorScore{
			ID:        contract.ID,
			Icon:      contract.Icon,
			Name:      contract.Name,
			Score:     score,
			Rationale: rationale,
		})
	}
	return scores
}

// OverallScore is the arithmetic mean of the score set, 0 when empty.
// Rounding happens at display/lock time, not here.
func OverallScore(scores []SectorScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	return sum / float64(len(scores))
}
