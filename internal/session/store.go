package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxConfidences bounds the rolling confidence list per session.
const maxConfidences = 20

type state struct {
	id            string
	turn          int
	topic         string
	lastResponder string
	history       []Message
	confidences   []float64
	lastActive    time.Time
}

// Store holds all live sessions. History is append-only with a bounded
// retention policy; sessions are evicted after an idle timeout.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*state
	idleTimeout time.Duration
	maxHistory  int
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewStore creates a session store with the given retention policy.
func NewStore(idleTimeout time.Duration, maxHistory int) *Store {
	if maxHistory < 1 {
		maxHistory = 50
	}
	return &Store{
		sessions:    make(map[string]*state),
		idleTimeout: idleTimeout,
		maxHistory:  maxHistory,
		stop:        make(chan struct{}),
	}
}

// Create registers a new session and returns its id.
func (s *Store) Create() string {
	id := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &state{id: id, lastActive: time.Now()}
	return id
}

// get returns the live session, evicting it first if it has gone idle.
// Callers must hold s.mu.
func (s *Store) get(id string) (*state, error) {
	st, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionExpired
	}
	if s.idleTimeout > 0 && time.Since(st.lastActive) > s.idleTimeout {
		delete(s.sessions, id)
		return nil, ErrSessionExpired
	}
	return st, nil
}

// BeginTurn advances the session's turn sequence number and returns it.
// Turn numbers are strictly increasing for the lifetime of a session.
func (s *Store) BeginTurn(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.get(id)
	if err != nil {
		return 0, err
	}
	st.turn++
	st.lastActive = time.Now()
	return st.turn, nil
}

// Snapshot returns an immutable copy of the session's memory.
func (s *Store) Snapshot(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	history := make([]Message, len(st.history))
	copy(history, st.history)
	confidences := make([]float64, len(st.confidences))
	copy(confidences, st.confidences)
	return Snapshot{
		ID:            st.id,
		Turn:          st.turn,
		Topic:         st.topic,
		LastResponder: st.lastResponder,
		History:       history,
		Confidences:   confidences,
	}, nil
}

// AppendMessage records a message in the session history. Oldest messages
// are evicted once the history bound is reached. A positive confidence is
// folded into the rolling confidence list.
func (s *Store) AppendMessage(id string, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.get(id)
	if err != nil {
		return err
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	st.history = append(st.history, m)
	if len(st.history) > s.maxHistory {
		st.history = st.history[len(st.history)-s.maxHistory:]
	}
	if m.Confidence > 0 {
		st.confidences = append(st.confidences, m.Confidence)
		if len(st.confidences) > maxConfidences {
			st.confidences = st.confidences[len(st.confidences)-maxConfidences:]
		}
	}
	st.lastActive = time.Now()
	return nil
}

// RecordRouting notes which responder answered the turn and the topic it
// settled on, for use as routing hints on follow-ups.
func (s *Store) RecordRouting(id string, lastResponder, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.get(id)
	if err != nil {
		return err
	}
	if lastResponder != "" {
		st.lastResponder = lastResponder
	}
	if topic != "" {
		st.topic = topic
	}
	return nil
}

// End removes the session. Further operations return ErrSessionExpired.
func (s *Store) End(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Reap evicts all sessions idle longer than the idle timeout and returns
// how many were removed.
func (s *Store) Reap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimeout <= 0 {
		return 0
	}
	var removed int
	for id, st := range s.sessions {
		if time.Since(st.lastActive) > s.idleTimeout {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunReaper periodically evicts idle sessions until Close is called. A
// non-positive interval falls back to one minute; NewTicker panics on it.
func (s *Store) RunReaper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Reap()
		case <-s.stop:
			return
		}
	}
}

// Close stops the reaper.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}
