package review

import (
	"strconv"
	"strings"
)

// BridgeArgs parameterizes the exported weekly review block.
type BridgeArgs struct {
	WeekLabel        string
	Contracts        []SectorContract
	Entries          WeeklyEntryMap
	IncludeSensitive bool
}

// BuildBridgeText serializes the week's scores and notes into the plain-text
// block pasted into an external chat tool. Line order, punctuation, and
// placeholder text are part of the contract: consumers copy this verbatim.
func BuildBridgeText(args BridgeArgs) string {
	var visible []SectorContract
	for _, contract := range args.Contracts {
		if !contract.Active {
			continue
		}
		if contract.Sensitive && !args.IncludeSensitive {
			continue
		}
		visible = append(visible, contract)
	}

	var lines []string
	lines = append(lines, "--- WEEKLY REVIEW: "+args.WeekLabel+" ---")
	lines = append(lines, "")
	lines = append(lines, "SECTOR SCORES:")

	for _, contract := range visible {
		entry, ok := args.Entries[contract.ID]
		rating := "Unrated"
		if ok && entry.Rating != nil {
			rating = strconv.FormatFloat(*entry.Rating, 'f', -1, 64) + "/10"
		}
		lines = append(lines, "- "+contract.Name+": "+rating)
	}

	lines = append(lines, "")
	lines = append(lines, "SECTOR NOTES:")
	for _, contract := range visible {
		entry := args.Entries[contract.ID]
		lines = append(lines, "- "+contract.Name+":")

		// Highlights come from the first two prompts only.
		var highlights []string
		for _, prompt := range firstPrompts(contract.Prompts, 2) {
			if text := answerText(entry.PromptAnswers[prompt.ID]); text != "" {
				highlights = append(highlights, text)
			}
		}
		if len(highlights) > 0 {
			lines = append(lines, "  "+strings.Join(highlights, " | "))
		} else {
			lines = append(lines, "  No key notes captured yet.")
		}

		intention := strings.TrimSpace(entry.Intention)
		if intention == "" {
			intention = noIntentionText
		}
		lines = append(lines, "  Intention: "+intention)
	}

	lines = append(lines, "")
	lines = append(lines, "---")
	lines = append(lines, "Challenge my self-assessment, surface blind spots, and help prioritize the next week.")

	return strings.Join(lines, "\n")
}

func firstPrompts(prompts []PromptDefinition, n int) []PromptDefinition {
	if len(prompts) < n {
		return prompts
	}
	return prompts[:n]
}

// answerText renders an answer as a trimmed highlight string; checklist
// selections join with ", ".
func answerText(a Answer) string {
	switch a.Kind {
	case AnswerNumber:
		return strings.TrimSpace(strconv.FormatFloat(a.Number, 'f', -1, 64))
	case AnswerChecklist:
		return strings.TrimSpace(strings.Join(a.Selected, ", "))
	default:
		return strings.TrimSpace(a.Text)
	}
}
