// Package session holds the per-operator in-flight transaction. At most one
// session exists per operator identity; an unrelated command replaces it
// (last-write-wins, intentional).
package session

import (
	"sync"

	"go-jobdesk-bot/internal/models"
)

// Session is the pending transaction sum type. The three concrete types are
// the only implementations; a type switch over them is exhaustive.
type Session interface {
	sessionKind()
}

// Create awaits a yes/no on a fully drafted record.
type Create struct {
	Record models.JobRecord
}

// Delete awaits a yes/no on removing the record with this slug.
type Delete struct {
	Slug string
}

// Edit awaits the next freeform text, which is re-extracted and merged into
// the record with this slug.
type Edit struct {
	Slug string
}

func (Create) sessionKind() {}
func (Delete) sessionKind() {}
func (Edit) sessionKind()   {}

// Store is a keyed get/set/clear holder for sessions. The interface exists
// so the engine can be tested against a double and the backing swapped out.
type Store interface {
	Get(operatorID int64) (Session, bool)
	Set(operatorID int64, s Session)
	Clear(operatorID int64)
}

type memoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

// NewMemoryStore returns the in-process Store used in production.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]Session),
	}
}

func (m *memoryStore) Get(operatorID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[operatorID]
	return s, ok
}

// Set installs the session, replacing any pending one for the same operator.
func (m *memoryStore) Set(operatorID int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[operatorID] = s
}

func (m *memoryStore) Clear(operatorID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, operatorID)
}
