package review

import (
	"encoding/json"
	"fmt"
)

// MaxActiveSectors caps how many sectors may be active at once.
const MaxActiveSectors = 7

// SectorPriority orders sectors by how much weight the user assigns them.
type SectorPriority string

const (
	PriorityHigh   SectorPriority = "high"
	PriorityNormal SectorPriority = "normal"
	PriorityLow    SectorPriority = "low"
)

// PromptKind selects the answer shape a prompt expects.
type PromptKind string

const (
	PromptText      PromptKind = "text"
	PromptNumber    PromptKind = "number"
	PromptChecklist PromptKind = "checklist"
)

// PromptOption is one selectable item of a checklist prompt.
type PromptOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// PromptDefinition describes a single reflection question belonging to a
// sector contract.
type PromptDefinition struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Kind        PromptKind     `json:"type"`
	Placeholder string         `json:"placeholder,omitempty"`
	Options     []PromptOption `json:"options,omitempty"`
	Advanced    bool           `json:"advanced,omitempty"`
}

// SectorRubric anchors what a 0, 5, 8, and 10 look like for a sector.
type SectorRubric struct {
	Zero  string `json:"zero"`
	Five  string `json:"five"`
	Eight string `json:"eight"`
	Ten   string `json:"ten"`
}

// SectorContract is the fixed definition of a tracked life sector: what it
// means, how it is rated, and which prompts its weekly entry must answer.
type SectorContract struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Icon         string             `json:"icon"`
	Intent       string             `json:"intent"`
	Priority     SectorPriority     `json:"priority"`
	Sensitive    bool               `json:"sensitive,omitempty"`
	Active       bool               `json:"active"`
	Signals      []string           `json:"signals"`
	AntiPatterns []string           `json:"antiPatterns"`
	Prompts      []PromptDefinition `json:"prompts"`
	Rubric       SectorRubric       `json:"rubric"`
}

// AnswerKind tags the concrete shape held by an Answer.
type AnswerKind string

const (
	AnswerText      AnswerKind = "text"
	AnswerNumber    AnswerKind = "number"
	AnswerChecklist AnswerKind = "checklist"
)

// Answer is a tagged union over the three prompt answer shapes. On the wire
// it stays a plain string, number, or string array so stored entries from
// earlier builds keep decoding.
type Answer struct {
	Kind     AnswerKind
	Text     string
	Number   float64
	Selected []string
}

// TextAnswer wraps a free-text answer.
func TextAnswer(s string) Answer { return Answer{Kind: AnswerText, Text: s} }

// NumberAnswer wraps a numeric answer.
func NumberAnswer(n float64) Answer { return Answer{Kind: AnswerNumber, Number: n} }

// ChecklistAnswer wraps a list of selected option ids.
func ChecklistAnswer(ids ...string) Answer {
	if ids == nil {
		ids = []string{}
	}
	return Answer{Kind: AnswerChecklist, Selected: ids}
}

// EmptyAnswer returns the default answer for a prompt kind: an empty list for
// checklists, an empty string otherwise.
func EmptyAnswer(kind PromptKind) Answer {
	if kind == PromptChecklist {
		return ChecklistAnswer()
	}
	return TextAnswer("")
}

// IsZero reports whether the answer carries no user input.
func (a Answer) IsZero() bool {
	switch a.Kind {
	case AnswerNumber:
		return false
	case AnswerChecklist:
		return len(a.Selected) == 0
	default:
		return a.Text == ""
	}
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerNumber:
		return json.Marshal(a.Number)
	case AnswerChecklist:
		sel := a.Selected
		if sel == nil {
			sel = []string{}
		}
		return json.Marshal(sel)
	default:
		return json.Marshal(a.Text)
	}
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var sel []string
	if err := json.Unmarshal(data, &sel); err == nil {
		*a = ChecklistAnswer(sel...)
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*a = NumberAnswer(num)
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*a = TextAnswer(text)
		return nil
	}
	return fmt.Errorf("answer must be a string, number, or string array")
}

// WeeklySectorEntry holds one week's answers for a single sector.
type WeeklySectorEntry struct {
	SectorID      string            `json:"sectorId"`
	PromptAnswers map[string]Answer `json:"promptAnswers"`
	Rating        *float64          `json:"rating"`
	WhatMakesTen  string            `json:"whatMakesTen"`
	Intention     string            `json:"intention"`
}

// WeeklyEntryMap maps sector id to that sector's entry for the current week.
type WeeklyEntryMap map[string]WeeklySectorEntry

// SectorScore is the derived score projection of a {contract, entry} pair.
type SectorScore struct {
	ID        string  `json:"id"`
	Icon      string  `json:"icon"`
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// ReflectionInsights is the derived textual summary over a full score set.
type ReflectionInsights struct {
	Facts    string `json:"facts"`
	Patterns string `json:"patterns"`
	OpenLoop string `json:"openLoop"`
}

// PresetPack bundles a set of sector contracts a user can merge in.
type PresetPack struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Sectors     []SectorContract `json:"sectors"`
}
