package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SnapshotStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type SnapshotStore interface {
	SetProfileKey(key, value string) error
	GetProfileKey(key string) (string, error)
	GetAllProfileKeys() (map[string]string, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager provides cached, structured access to the identity snapshot stored
// in SQLite.
type Manager struct {
	store SnapshotStore
	clock Clock
	ttl   time.Duration

	mu       sync.RWMutex
	cached   *Snapshot
	cachedAt time.Time
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store SnapshotStore) *Manager {
	return &Manager{
		store: store,
		clock: realClock{},
		ttl:   60 * time.Second,
	}
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store SnapshotStore, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		clock: clock,
		ttl:   ttl,
	}
}

// GetSnapshot reads all profile keys from storage (or cache) and assembles
// a Snapshot. Returns a zero-value Snapshot on an empty store.
func (m *Manager) GetSnapshot() (Snapshot, error) {
	// Fast path: read lock for cache hit.
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		s := deepCopySnapshot(m.cached)
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	// Slow path: write lock for cache miss.
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return deepCopySnapshot(m.cached), nil
	}

	keys, err := m.store.GetAllProfileKeys()
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading profile keys: %w", err)
	}

	s := buildSnapshot(keys)
	m.cached = &s
	m.cachedAt = m.clock.Now()
	return deepCopySnapshot(&s), nil
}

// SetField persists a profile key and invalidates the cache. Non-string values
// are stored as JSON.
func (m *Manager) SetField(key string, value interface{}) error {
	var str string
	switch v := value.(type) {
	case string:
		str = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshalling value for key %q: %w", key, err)
		}
		str = string(b)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetProfileKey(key, str); err != nil {
		return fmt.Errorf("setting profile key %q: %w", key, err)
	}

	m.cached = nil
	return nil
}

func deepCopySnapshot(s *Snapshot) Snapshot {
	if s == nil {
		return Snapshot{}
	}
	cp := *s

	if s.Priorities != nil {
		cp.Priorities = make([]string, len(s.Priorities))
		copy(cp.Priorities, s.Priorities)
	}
	if s.Strengths != nil {
		cp.Strengths = make([]string, len(s.Strengths))
		copy(cp.Strengths, s.Strengths)
	}
	if s.Failures != nil {
		cp.Failures = make([]string, len(s.Failures))
		copy(cp.Failures, s.Failures)
	}
	return cp
}

// buildSnapshot assembles a Snapshot from flat key-value pairs. List values
// are stored as JSON arrays.
func buildSnapshot(keys map[string]string) Snapshot {
	var s Snapshot

	if v, ok := keys["bottleneck"]; ok {
		s.Bottleneck = v
	}

	unmarshalProfileKey(keys, "priorities", &s.Priorities)
	unmarshalProfileKey(keys, "strengths", &s.Strengths)
	unmarshalProfileKey(keys, "failures", &s.Failures)

	return s
}

// unmarshalProfileKey unmarshals a JSON value from keys into target, logging
// a warning if the value is present but malformed.
func unmarshalProfileKey(keys map[string]string, key string, target interface{}) {
	v, ok := keys[key]
	if !ok {
		return
	}
	if err := json.Unmarshal([]byte(v), target); err != nil {
		slog.Warn("malformed profile key, skipping", "key", key, "error", err)
	}
}
