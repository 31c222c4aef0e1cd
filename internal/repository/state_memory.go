package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/smk-student-hub/internal/models"
)

// MemoryStateStore is a process-local StateStore for development and tests.
type MemoryStateStore struct {
	mu      sync.RWMutex
	entries map[models.StateKey]models.StateEntry
	now     func() time.Time
}

// NewMemoryStateStore constructs an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[models.StateKey]models.StateEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a copy of the stored entry.
func (s *MemoryStateStore) Get(_ context.Context, key models.StateKey) (*models.StateEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	entry.Value = cloneRaw(entry.Value)
	return &entry, nil
}

// Set writes a value honouring the expected version.
func (s *MemoryStateStore) Set(_ context.Context, key models.StateKey, value json.RawMessage, expected int64) (*models.StateEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.entries[key]
	switch {
	case expected == models.AnyVersion:
	case expected == 0 && exists:
		return nil, ErrVersionMismatch
	case expected > 0 && (!exists || current.Version != expected):
		return nil, ErrVersionMismatch
	}

	entry := models.StateEntry{
		Key:       key,
		Value:     cloneRaw(value),
		Version:   current.Version + 1,
		UpdatedAt: s.now(),
	}
	s.entries[key] = entry
	entry.Value = cloneRaw(entry.Value)
	return &entry, nil
}

// Snapshot returns every entry ordered by key.
func (s *MemoryStateStore) Snapshot(_ context.Context) ([]models.StateEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.StateEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entry.Value = cloneRaw(entry.Value)
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Replace swaps the whole namespace under one lock.
func (s *MemoryStateStore) Replace(_ context.Context, entries map[models.StateKey]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var base int64
	for _, entry := range s.entries {
		if entry.Version > base {
			base = entry.Version
		}
	}
	now := s.now()
	next := make(map[models.StateKey]models.StateEntry, len(entries))
	for key, value := range entries {
		next[key] = models.StateEntry{Key: key, Value: cloneRaw(value), Version: base + 1, UpdatedAt: now}
	}
	s.entries = next
	return nil
}

// Ping always succeeds.
func (s *MemoryStateStore) Ping(context.Context) error {
	return nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
