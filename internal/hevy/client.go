package hevy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL = "https://api.hevyapp.com"
	defaultTimeout = 15 * time.Second
)

// ConnectURL is where users create a developer API key.
const ConnectURL = "https://hevy.com/settings?developer"

// Client talks to the Hevy workout-tracking API with a server-held key.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Hevy client. An empty API key is allowed; calls will
// fail with a descriptive error, which the summary endpoint absorbs.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// UserInfo is the subset of the user endpoint the app consumes.
type UserInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Set struct {
	WeightKg float64 `json:"weight_kg"`
	Reps     float64 `json:"reps"`
}

type Exercise struct {
	Title string `json:"title"`
	Sets  []Set  `json:"sets"`
}

type Workout struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	StartTime string     `json:"start_time"`
	CreatedAt string     `json:"created_at"`
	Exercises []Exercise `json:"exercises"`
}

// WorkoutSummary condenses the most recent workout for the client UI.
type WorkoutSummary struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	StartTime     string  `json:"start_time"`
	ExerciseCount int     `json:"exercise_count"`
	VolumeKg      float64 `json:"volume_kg"`
}

// Summary is the combined Hevy snapshot returned to the client. Connected is
// false when any upstream call failed; Error then carries the reason.
type Summary struct {
	Connected    bool            `json:"connected"`
	User         *UserInfo       `json:"user"`
	WorkoutCount int             `json:"workoutCount"`
	LastWorkout  *WorkoutSummary `json:"lastWorkout"`
	Error        string          `json:"error,omitempty"`
}

// Summary fetches user info, the workout count, and the latest workout with
// three concurrent calls. All three must succeed; callers convert the error
// into a connected:false payload rather than a failure status.
func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var (
		user struct {
			Data *UserInfo `json:"data"`
		}
		count struct {
			WorkoutCount int `json:"workout_count"`
		}
		page struct {
			Workouts []Workout `json:"workouts"`
		}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.getJSON(gctx, "/v1/user/info", &user) })
	g.Go(func() error { return c.getJSON(gctx, "/v1/workouts/count", &count) })
	g.Go(func() error { return c.getJSON(gctx, "/v1/workouts?page=1&pageSize=1", &page) })
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Connected:    true,
		User:         user.Data,
		WorkoutCount: count.WorkoutCount,
	}
	if len(page.Workouts) > 0 {
		last := page.Workouts[0]
		start := last.StartTime
		if start == "" {
			start = last.CreatedAt
		}
		summary.LastWorkout = &WorkoutSummary{
			ID:            last.ID,
			Title:         last.Title,
			StartTime:     start,
			ExerciseCount: len(last.Exercises),
			VolumeKg:      VolumeKg(last),
		}
	}
	return summary, nil
}

// VolumeKg is the total training volume of a workout: Σ(weight × reps) over
// all sets of all exercises.
func VolumeKg(w Workout) float64 {
	var total float64
	for _, exercise := range w.Exercises {
		for _, set := range exercise.Sets {
			total += set.WeightKg * set.Reps
		}
	}
	return total
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("HEVY_API_KEY is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Hevy %s failed (%d): %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
