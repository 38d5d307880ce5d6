package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"docassist/internal/chat"
)

// MemoryStore keeps states in process. Values are stored as JSON so callers
// never share memory with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (s *MemoryStore) Create(_ context.Context, st *chat.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[st.ID]; exists {
		return ErrExists
	}
	now := time.Now()
	st.CreatedAt = now
	st.UpdatedAt = now
	st.Version = 1
	val, err := json.Marshal(st)
	if err != nil {
		return err
	}
	s.sessions[st.ID] = val
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*chat.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, exists := s.sessions[id]
	if !exists {
		return nil, nil
	}
	var st chat.State
	if err := json.Unmarshal(val, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *MemoryStore) Update(_ context.Context, st *chat.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	val, exists := s.sessions[st.ID]
	if !exists {
		return ErrNotFound
	}
	var stored chat.State
	if err := json.Unmarshal(val, &stored); err != nil {
		return err
	}
	if stored.Version != st.Version {
		return ErrVersionConflict
	}

	st.Version++
	st.UpdatedAt = time.Now()
	newVal, err := json.Marshal(st)
	if err != nil {
		st.Version--
		return err
	}
	s.sessions[st.ID] = newVal
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string][]byte)
	return nil
}
