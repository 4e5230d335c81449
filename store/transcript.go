package store

import (
	"sync"

	"resumechat/types"
)

// TranscriptStorer keeps the chat transcript. Turns can only be appended.
type TranscriptStorer interface {
	Append(turns ...types.ChatTurn)
	List() []types.ChatTurn
	Len() int
}

// MemoryStore holds the transcript for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	turns []types.ChatTurn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(turns ...types.ChatTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turns...)
}

// List returns a copy so callers cannot change stored turns.
func (m *MemoryStore) List() []types.ChatTurn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ChatTurn, len(m.turns))
	copy(out, m.turns)
	return out
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}
