package profile

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

// --- Mock store ---

type mockStore struct {
	mu   sync.Mutex
	data map[string]string

	getAllCalls int
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) SetProfileKey(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockStore) GetProfileKey(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", nil
	}
	return v, nil
}

func (m *mockStore) GetAllProfileKeys() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getAllCalls++
	cp := make(map[string]string, len(m.data))
	for k, v := range m.data {
		cp[k] = v
	}
	return cp, nil
}

// --- Mock clock ---

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Tests ---

func TestGetSnapshot_Empty(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	s, err := mgr.GetSnapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Bottleneck != "" {
		t.Errorf("expected empty bottleneck, got %q", s.Bottleneck)
	}
	if len(s.Priorities) != 0 {
		t.Errorf("expected no priorities, got %v", s.Priorities)
	}
}

func TestSetAndGetField(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	if err := mgr.SetField("bottleneck", "context switching"); err != nil {
		t.Fatalf("SetField error: %v", err)
	}
	if err := mgr.SetField("priorities", []string{"degree", "strength", "income"}); err != nil {
		t.Fatalf("SetField error: %v", err)
	}

	s, err := mgr.GetSnapshot()
	if err != nil {
		t.Fatalf("GetSnapshot error: %v", err)
	}
	if s.Bottleneck != "context switching" {
		t.Errorf("bottleneck = %q", s.Bottleneck)
	}
	if !reflect.DeepEqual(s.Priorities, []string{"degree", "strength", "income"}) {
		t.Errorf("priorities = %v", s.Priorities)
	}
}

func TestMalformedListKeyIsSkipped(t *testing.T) {
	store := newMockStore()
	store.data["strengths"] = "not json"
	mgr := NewManager(store)

	s, err := mgr.GetSnapshot()
	if err != nil {
		t.Fatalf("GetSnapshot error: %v", err)
	}
	if len(s.Strengths) != 0 {
		t.Errorf("malformed key should be skipped, got %v", s.Strengths)
	}
}

func TestSnapshotCopyIsIsolated(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)
	mgr.SetField("failures", []string{"overcommitting"})

	s1, _ := mgr.GetSnapshot()
	s1.Failures[0] = "mutated"

	s2, _ := mgr.GetSnapshot()
	if s2.Failures[0] != "overcommitting" {
		t.Errorf("cached snapshot leaked through returned copy: %v", s2.Failures)
	}
}

func TestCacheTTL(t *testing.T) {
	store := newMockStore()
	clock := &mockClock{now: time.Now()}
	mgr := NewManagerWithClock(store, clock, 60*time.Second)

	mgr.SetField("bottleneck", "sleep")

	mgr.GetSnapshot()
	mgr.GetSnapshot()

	store.mu.Lock()
	calls := store.getAllCalls
	store.mu.Unlock()

	if calls != 1 {
		t.Errorf("expected 1 store call (cache hit on second), got %d", calls)
	}
}

func TestCacheInvalidation(t *testing.T) {
	store := newMockStore()
	clock := &mockClock{now: time.Now()}
	ttl := 60 * time.Second
	mgr := NewManagerWithClock(store, clock, ttl)

	mgr.SetField("bottleneck", "sleep")

	mgr.GetSnapshot()

	// Advance past TTL
	clock.Advance(ttl + time.Second)

	mgr.GetSnapshot()

	store.mu.Lock()
	calls := store.getAllCalls
	store.mu.Unlock()

	if calls != 2 {
		t.Errorf("expected 2 store calls (cache expired), got %d", calls)
	}
}

func TestSetFieldInvalidatesCache(t *testing.T) {
	store := newMockStore()
	clock := &mockClock{now: time.Now()}
	mgr := NewManagerWithClock(store, clock, time.Hour)

	mgr.GetSnapshot()
	mgr.SetField("bottleneck", "naps")

	s, err := mgr.GetSnapshot()
	if err != nil {
		t.Fatalf("GetSnapshot error: %v", err)
	}
	if s.Bottleneck != "naps" {
		t.Errorf("stale cache served after SetField: %q", s.Bottleneck)
	}
}
