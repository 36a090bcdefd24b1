package session

import (
	"errors"
	"time"
)

// ErrSessionExpired is returned when operating on a session that was evicted
// after its idle timeout, ended explicitly, or never existed. Expired
// sessions are never silently recreated.
var ErrSessionExpired = errors.New("session expired")

// Message is one turn's worth of speech, from either party.
type Message struct {
	Content    string    `json:"content"`
	Speaker    string    `json:"speaker"` // "user" or "assistant"
	Confidence float64   `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Snapshot is an immutable copy of a session's conversational memory,
// handed to the classifier and responders. Only the state machine mutates
// the underlying session; everything else reads snapshots.
type Snapshot struct {
	ID            string
	Turn          int
	Topic         string
	LastResponder string
	History       []Message
	Confidences   []float64
}

// Recent returns up to n of the most recent messages.
func (s Snapshot) Recent(n int) []Message {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if n > len(s.History) {
		n = len(s.History)
	}
	return s.History[len(s.History)-n:]
}

// AverageConfidence returns the mean of the rolling confidence list.
func (s Snapshot) AverageConfidence() float64 {
	if len(s.Confidences) == 0 {
		return 0
	}
	var sum float64
	for _, c := range s.Confidences {
		sum += c
	}
	return sum / float64(len(s.Confidences))
}
