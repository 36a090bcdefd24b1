package voice

import (
	"context"
	"strings"
	"time"
)

// PacedSpeaker simulates spoken delivery by pausing per word, so playback
// takes realistic time and can be interrupted mid-utterance. Used by the
// demo and by tests; a production deployment swaps in a TTS-backed Speaker.
type PacedSpeaker struct {
	PerWord time.Duration
	// Emit receives each word as it is "spoken". Optional.
	Emit func(word string)
}

// NewPacedSpeaker creates a speaker pacing at perWord per word.
func NewPacedSpeaker(perWord time.Duration) *PacedSpeaker {
	if perWord <= 0 {
		perWord = 50 * time.Millisecond
	}
	return &PacedSpeaker{PerWord: perWord}
}

func (s *PacedSpeaker) Speak(ctx context.Context, text string) error {
	for _, word := range strings.Fields(text) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.PerWord):
		}
		if s.Emit != nil {
			s.Emit(word)
		}
	}
	return nil
}

// ScriptListener is a Listener fed programmatically, used by the demo and
// by the websocket handler to forward partial transcripts.
type ScriptListener struct {
	ch chan Word
}

// NewScriptListener creates a listener with a small buffer so pushers do
// not block when nobody is watching.
func NewScriptListener() *ScriptListener {
	return &ScriptListener{ch: make(chan Word, 64)}
}

func (l *ScriptListener) Words() <-chan Word { return l.ch }

// Push queues a word, dropping it if the buffer is full.
func (l *ScriptListener) Push(w Word) {
	select {
	case l.ch <- w:
	default:
	}
}

// Drain discards all buffered words. Consumers call it at the start of an
// output window so speech from before the window cannot count against it.
func (l *ScriptListener) Drain() {
	for {
		select {
		case _, ok := <-l.ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Close ends the stream.
func (l *ScriptListener) Close() { close(l.ch) }
