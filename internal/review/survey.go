package review

import (
	"fmt"
	"regexp"
	"strings"
)

// Survey captures the eight yes/no onboarding answers used to seed sector
// candidates. Nil-safe zero value: everything false yields only the two
// always-on candidates.
type Survey struct {
	Student          bool `json:"student"`
	Employed         bool `json:"employed"`
	Creator          bool `json:"creator"`
	Training         bool `json:"training"`
	Combat           bool `json:"combat"`
	Music            bool `json:"music"`
	SocialLeadership bool `json:"socialLeadership"`
	RomanceFocus     bool `json:"romanceFocus"`
}

// CandidateSector is a proposed sector awaiting user confirmation during
// onboarding review.
type CandidateSector struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Icon      string         `json:"icon"`
	Intent    string         `json:"intent"`
	Priority  SectorPriority `json:"priority"`
	Sensitive bool           `json:"sensitive"`
	Active    bool           `json:"active"`
}

// Contract promotes a confirmed candidate to a full sector contract with the
// generic prompt set.
func (c CandidateSector) Contract() SectorContract {
	intent := c.Intent
	if intent == "" {
		intent = defaultIntent(c.Name)
	}
	icon := c.Icon
	if icon == "" {
		icon = "✨"
	}
	return NewCustomContract(CustomContractInput{
		Name:         c.Name,
		Icon:         icon,
		Intent:       intent,
		Priority:     c.Priority,
		Sensitive:    c.Sensitive,
		Signals:      []string{"Consistency", "Execution quality", "Momentum"},
		AntiPatterns: []string{"Avoidance", "No tracking"},
		Prompts: []string{
			"What happened in this sector this week?",
			"What did you execute well?",
			"What slipped or needs attention?",
		},
	})
}

func defaultIntent(name string) string {
	return fmt.Sprintf("Measure weekly execution and growth in %s.", name)
}

func candidateSlug(input string) string {
	s := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(input), "-"), "-")
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

// SeedCandidates derives sector candidates from survey answers. Recovery and
// mindset are always proposed. Candidates are deduplicated by name.
func SeedCandidates(survey Survey) []CandidateSector {
	var result []CandidateSector
	push := func(name, icon, intent string, priority SectorPriority, sensitive bool) {
		result = append(result, CandidateSector{
			ID:        candidateSlug(fmt.Sprintf("%s-%d", name, len(result))),
			Name:      name,
			Icon:      icon,
			Intent:    intent,
			Priority:  priority,
			Sensitive: sensitive,
			Active:    true,
		})
	}

	if survey.Student {
		push("University", "📚", "Track attendance, assignment progress, and learning quality.", PriorityHigh, false)
	}
	if survey.Employed {
		push("Work", "💼", "Track high-leverage output and income direction.", PriorityHigh, false)
	}
	if survey.Creator {
		push("YouTube – Business & Content", "🎥", "Track publishing consistency, content quality, and momentum.", PriorityHigh, false)
	}
	if survey.Training {
		push("Gym & Fitness", "💪", "Track sessions, intensity, recovery, and nutrition.", PriorityHigh, false)
	}
	if survey.Combat {
		push("Jiujitsu", "🥋", "Track sessions, techniques, and mat confidence progression.", PriorityNormal, false)
	}
	if survey.Music {
		push("Music (Band + Solo)", "🎸", "Track rehearsals, songwriting, and performance readiness.", PriorityNormal, false)
	}
	if survey.SocialLeadership {
		push("Leadership & Adventure", "🧭", "Track initiative, influence, and challenge creation.", PriorityNormal, false)
	}
	if survey.RomanceFocus {
		push("Romance", "💘", "Track romantic interactions with standards, integrity, and emotional control.", PriorityNormal, true)
	}

	push("Recovery & Optimisation", "🛌", "Track sleep, recovery protocol, and daytime energy.", PriorityNormal, false)
	push("Mindset & Focus", "🧠", "Track attention discipline and internal alignment.", PriorityNormal, false)

	return dedupeCandidates(result)
}

func dedupeCandidates(items []CandidateSector) []CandidateSector {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item.Name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

var (
	namedSectorRe  = regexp.MustCompile(`(?i)(?:called|named)\s+([a-zA-Z0-9][a-zA-Z0-9\s_-]{2,32})`)
	chunkSplitRe   = regexp.MustCompile(`[\n,.;|/]`)
	reservedWordRe = regexp.MustCompile(`(?i)^(week|rating|intention|what|focus|overall)`)
	plainChunkRe   = regexp.MustCompile(`(?i)^[a-z0-9\s&+-]+$`)
	hasLetterRe    = regexp.MustCompile(`(?i)[a-z]`)
	hasUpperRe     = regexp.MustCompile(`[A-Z]`)
	listMarkerRe   = regexp.MustCompile(`^[-*]\s*`)
)

// ExtractSectorNames pulls candidate sector names out of freeform onboarding
// text. This is a best-effort heuristic, not a parser: "called X"/"named X"
// captures plus short delimiter-separated chunks, capped at 8. The only
// guarantee is a non-empty result for clearly delimited input.
func ExtractSectorNames(text string) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	for _, m := range namedSectorRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}

	for _, chunk := range chunkSplitRe.Split(text, -1) {
		chunk = strings.TrimSpace(chunk)
		if len(chunk) < 4 || len(chunk) > 34 {
			continue
		}
		if reservedWordRe.MatchString(chunk) {
			continue
		}
		if !plainChunkRe.MatchString(chunk) || !hasLetterRe.MatchString(chunk) {
			continue
		}
		if hasUpperRe.MatchString(chunk) || len(strings.Fields(chunk)) <= 4 {
			add(listMarkerRe.ReplaceAllString(chunk, ""))
		}
	}

	if len(names) > 8 {
		names = names[:8]
	}
	return names
}
