// Package interrupt implements barge-in detection: while a reply is being
// spoken, it watches the live transcription stream and cancels playback
// once the user has said enough meaningful words.
package interrupt

import (
	"context"
	"strings"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/voice"
)

// fillers are non-meaningful tokens; an utterance of at most two words made
// of these never counts as an interruption.
var fillers = map[string]bool{
	"um": true, "uh": true, "ah": true, "hmm": true, "er": true,
	"oh": true, "yeah": true, "yes": true, "no": true, "okay": true, "ok": true,
}

// minTranscriptChars guards against a burst of one-letter fragments
// clearing the word threshold.
const minTranscriptChars = 5

// Config tunes interruption sensitivity.
type Config struct {
	// WordThreshold is the number of meaningful words that triggers
	// cancellation.
	WordThreshold int
	// MinConfidence filters out low-confidence recognition fragments.
	MinConfidence float64
	// PollInterval bounds detection latency when the stream goes quiet.
	PollInterval time.Duration
}

// Monitor watches one speaking window at a time.
type Monitor struct {
	cfg Config
}

// NewMonitor creates an interruption monitor.
func NewMonitor(cfg Config) *Monitor {
	if cfg.WordThreshold <= 0 {
		cfg.WordThreshold = 3
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.7
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	return &Monitor{cfg: cfg}
}

// Watch consumes words for the duration of one speaking window. When enough
// meaningful words accumulate it calls cancel and returns true. It returns
// false when ctx ends first, meaning playback completed or was abandoned
// for another reason. Watch always returns promptly after ctx is done.
func (m *Monitor) Watch(ctx context.Context, words <-chan voice.Word, cancel context.CancelFunc) bool {
	var accepted []string

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case w, ok := <-words:
			if !ok {
				return false
			}
			if w.Confidence < m.cfg.MinConfidence {
				continue
			}
			text := strings.ToLower(strings.TrimSpace(w.Text))
			if text == "" {
				continue
			}
			accepted = append(accepted, text)
			if m.meaningful(accepted) {
				cancel()
				return true
			}
		case <-ticker.C:
			// Re-check ctx so a quiet stream cannot stall the window.
		}
	}
}

// meaningful reports whether the accumulated words constitute a real
// interruption rather than noise or acknowledgment filler.
func (m *Monitor) meaningful(words []string) bool {
	if len(words) < m.cfg.WordThreshold {
		return false
	}
	if len(strings.Join(words, "")) <= minTranscriptChars {
		return false
	}
	if len(words) <= 2 {
		for _, w := range words {
			if fillers[w] {
				return false
			}
		}
	}
	return true
}
