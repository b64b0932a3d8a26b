package task

import (
	"sync"

	"github.com/google/uuid"
)

// Scope is per-task side state that features may attach values to. Tasks
// created with the same Scope share it.
type Scope struct {
	ID string

	mu     sync.RWMutex
	values map[string]interface{}
}

func NewScope() *Scope {
	return &Scope{ID: uuid.New().String(), values: make(map[string]interface{})}
}

func (s *Scope) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *Scope) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, exists := s.values[key]
	return value, exists
}
