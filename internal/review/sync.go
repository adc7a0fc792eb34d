package review

import "fmt"

// NewEntryMap creates a fresh entry map covering every contract, each entry
// holding the default answer for every prompt, a nil rating, and empty notes.
func NewEntryMap(contracts []SectorContract) WeeklyEntryMap {
	entries := make(WeeklyEntryMap, len(contracts))
	for _, contract := range contracts {
		answers := make(map[string]Answer, len(contract.Prompts))
		for _, prompt := range contract.Prompts {
			answers[prompt.ID] = EmptyAnswer(prompt.Kind)
		}
		entries[contract.ID] = WeeklySectorEntry{
			SectorID:      contract.ID,
			PromptAnswers: answers,
		}
	}
	return entries
}

// SyncEntriesWithContracts returns a copy of entries where every contract has
// an entry and every prompt on every contract has an answer key. Entries for
// contracts no longer present are retained untouched: a temporarily
// deactivated sector must not lose its data. Idempotent.
func SyncEntriesWithContracts(entries WeeklyEntryMap, contracts []SectorContract) WeeklyEntryMap {
	next := make(WeeklyEntryMap, len(entries)+len(contracts))
	for id, entry := range entries {
		next[id] = copyEntry(entry)
	}

	for _, contract := range contracts {
		entry, ok := next[contract.ID]
		if !ok {
			entry = WeeklySectorEntry{
				SectorID:      contract.ID,
				PromptAnswers: map[string]Answer{},
			}
		}
		if entry.PromptAnswers == nil {
			entry.PromptAnswers = map[string]Answer{}
		}
		for _, prompt := range contract.Prompts {
			if _, ok := entry.PromptAnswers[prompt.ID]; !ok {
				entry.PromptAnswers[prompt.ID] = EmptyAnswer(prompt.Kind)
			}
		}
		next[contract.ID] = entry
	}
	return next
}

func copyEntry(entry WeeklySectorEntry) WeeklySectorEntry {
	cp := entry
	if entry.PromptAnswers != nil {
		cp.PromptAnswers = make(map[string]Answer, len(entry.PromptAnswers))
		for k, v := range entry.PromptAnswers {
			cp.PromptAnswers[k] = v
		}
	}
	if entry.Rating != nil {
		r := *entry.Rating
		cp.Rating = &r
	}
	return cp
}

// ValidateContracts checks structural invariants over a full contract set:
// unique non-empty ids and no more than MaxActiveSectors active.
func ValidateContracts(contracts []SectorContract) error {
	seen := make(map[string]bool, len(contracts))
	active := 0
	for _, contract := range contracts {
		if contract.ID == "" {
			return fmt.Errorf("sector %q has no id", contract.Name)
		}
		if seen[contract.ID] {
			return fmt.Errorf("duplicate sector id %q", contract.ID)
		}
		seen[contract.ID] = true
		if contract.Active {
			active++
		}
	}
	if active > MaxActiveSectors {
		return fmt.Errorf("%d active sectors exceeds the cap of %d", active, MaxActiveSectors)
	}
	return nil
}

// ValidateAnswers checks an entry's answers against the owning contract:
// every answered prompt must exist and carry the answer shape its kind
// expects. Unanswered prompts are filled in by sync, not rejected here.
func ValidateAnswers(entry WeeklySectorEntry, contract SectorContract) error {
	kinds := make(map[string]PromptKind, len(contract.Prompts))
	for _, prompt := range contract.Prompts {
		kinds[prompt.ID] = prompt.Kind
	}
	for id, answer := range entry.PromptAnswers {
		kind, ok := kinds[id]
		if !ok {
			return fmt.Errorf("answer for unknown prompt %q", id)
		}
		if !answerMatchesKind(answer, kind) {
			return fmt.Errorf("prompt %q expects a %s answer", id, kind)
		}
	}
	if entry.Rating != nil && (*entry.Rating < 0 || *entry.Rating > 10) {
		return fmt.Errorf("rating %v out of range 0-10", *entry.Rating)
	}
	return nil
}

func answerMatchesKind(a Answer, kind PromptKind) bool {
	switch kind {
	case PromptNumber:
		// Empty text is the synthesized default before the user answers.
		return a.Kind == AnswerNumber || (a.Kind == AnswerText && a.Text == "")
	case PromptChecklist:
		return a.Kind == AnswerChecklist
	default:
		return a.Kind == AnswerText
	}
}
