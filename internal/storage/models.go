package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DailyLogKind distinguishes how a capture was made.
type DailyLogKind string

const (
	LogFood     DailyLogKind = "food"
	LogVoice    DailyLogKind = "voice"
	LogQuickAdd DailyLogKind = "quick_add"
)

// DailyLog is one append-only food/note capture. Logs are never mutated.
type DailyLog struct {
	ID         string       `json:"id"`
	Kind       DailyLogKind `json:"type"`
	Item       string       `json:"item"`
	Calories   float64      `json:"calories"`
	Protein    float64      `json:"protein"`
	Confidence *float64     `json:"confidence,omitempty"` // 0-1, set for model-estimated logs
	CreatedAt  time.Time    `json:"createdAt"`
}

// MacroTotals aggregates calories and protein over a set of logs.
type MacroTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
}

// WeekSummary is one locked week on the timeline.
type WeekSummary struct {
	Week     string    `json:"week"`
	Title    string    `json:"title"`
	Dates    string    `json:"dates"`
	Score    float64   `json:"score"`
	Trend    string    `json:"trend"` // "up", "down", or "flat"
	LockedAt time.Time `json:"lockedAt"`
}
