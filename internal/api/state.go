package api

import (
	"encoding/json"
	"sync"
	"time"
)

// WebhookEvent is the last payload a provider delivered, with its arrival
// time. A zero ReceivedAt means nothing has arrived yet.
type WebhookEvent struct {
	Latest     json.RawMessage
	ReceivedAt time.Time
}

// State holds the in-memory, process-lifetime webhook slots and the Withings
// OAuth handshake values. Later deliveries overwrite earlier ones; nothing is
// queued or persisted. All access goes through the mutex since the server
// handles requests concurrently.
type State struct {
	mu sync.Mutex

	hevy     WebhookEvent
	withings WebhookEvent

	withingsAuthCode  string
	withingsAuthState string
}

func NewState() *State {
	return &State{}
}

// RecordHevyEvent overwrites the Hevy slot with the given payload.
func (s *State) RecordHevyEvent(payload json.RawMessage, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hevy = WebhookEvent{Latest: payload, ReceivedAt: at}
}

// HevyEvent returns the current Hevy slot.
func (s *State) HevyEvent() WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hevy
}

// RecordWithingsEvent overwrites the Withings slot with the given payload.
func (s *State) RecordWithingsEvent(payload json.RawMessage, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withings = WebhookEvent{Latest: payload, ReceivedAt: at}
}

// RecordWithingsAuth captures the most recent OAuth callback values.
func (s *State) RecordWithingsAuth(code, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withingsAuthCode = code
	s.withingsAuthState = state
}

// WithingsEvent returns the current Withings slot plus the last OAuth
// callback code and state.
func (s *State) WithingsEvent() (event WebhookEvent, authCode, authState string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withings, s.withingsAuthCode, s.withingsAuthState
}
