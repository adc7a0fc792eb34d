package review

import (
	"encoding/json"
	"testing"
)

func TestAnswerUnmarshal_WireShapes(t *testing.T) {
	var entry WeeklySectorEntry
	raw := `{
		"sectorId": "gym",
		"promptAnswers": {
			"gym-p1": "solid week",
			"gym-p2": 4,
			"gym-p3": ["squat", "bench"]
		},
		"rating": 8,
		"whatMakesTen": "",
		"intention": "more sleep"
	}`
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if a := entry.PromptAnswers["gym-p1"]; a.Kind != AnswerText || a.Text != "solid week" {
		t.Errorf("text answer = %+v", a)
	}
	if a := entry.PromptAnswers["gym-p2"]; a.Kind != AnswerNumber || a.Number != 4 {
		t.Errorf("number answer = %+v", a)
	}
	if a := entry.PromptAnswers["gym-p3"]; a.Kind != AnswerChecklist || len(a.Selected) != 2 {
		t.Errorf("checklist answer = %+v", a)
	}
	if entry.Rating == nil || *entry.Rating != 8 {
		t.Errorf("rating = %v", entry.Rating)
	}
}

func TestAnswerMarshal_StaysUntagged(t *testing.T) {
	answers := map[string]Answer{
		"a": TextAnswer("x"),
		"b": NumberAnswer(2),
		"c": ChecklistAnswer(),
	}
	b, err := json.Marshal(answers)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"a":"x","b":2,"c":[]}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}

func TestAnswerUnmarshal_RejectsObjects(t *testing.T) {
	var a Answer
	if err := json.Unmarshal([]byte(`{"nested":true}`), &a); err == nil {
		t.Error("object accepted as answer")
	}
}
