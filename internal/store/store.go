// Package store provides storage backends for conversation sessions,
// activity events, and patient records.
//
// Three implementations exist: an in-memory store for tests and ephemeral
// runs, a SQLite store for single-node deployments, and a PostgreSQL store.
package store

import (
	"sort"
	"sync"

	"github.com/clivihealth/careflow/internal/models"
)

// Store is the persistence surface used by the session manager and the API.
type Store interface {
	GetSession(key models.SessionKey) (*models.Session, error)
	SaveSession(sess models.Session) error
	DeleteSession(key models.SessionKey) error
	ListSessions() ([]models.Session, error)

	AddEvent(ev models.ActivityEvent) error
	GetEvents(key models.SessionKey, limit int) ([]models.ActivityEvent, error)

	SavePatient(p models.PatientRecord) error
	GetPatientByIdentity(channel models.Channel, externalUserID string) (*models.PatientRecord, error)
	ListPatients() ([]models.PatientRecord, error)

	Close() error
}

// InMemoryStore keeps everything in maps guarded by one mutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[models.SessionKey]models.Session
	events   []models.ActivityEvent
	patients map[models.SessionKey]models.PatientRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[models.SessionKey]models.Session),
		patients: make(map[models.SessionKey]models.PatientRecord),
	}
}

func (s *InMemoryStore) GetSession(key models.SessionKey) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *InMemoryStore) SaveSession(sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Key] = sess
	return nil
}

func (s *InMemoryStore) DeleteSession(key models.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

func (s *InMemoryStore) ListSessions() ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out, nil
}

func (s *InMemoryStore) AddEvent(ev models.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *InMemoryStore) GetEvents(key models.SessionKey, limit int) ([]models.ActivityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ActivityEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].SessionKey == key {
			out = append(out, s.events[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) SavePatient(p models.PatientRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[models.SessionKey{Channel: p.Channel, ExternalUserID: p.ExternalUserID}] = p
	return nil
}

func (s *InMemoryStore) GetPatientByIdentity(channel models.Channel, externalUserID string) (*models.PatientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[models.SessionKey{Channel: channel, ExternalUserID: externalUserID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *InMemoryStore) ListPatients() ([]models.PatientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PatientRecord, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
