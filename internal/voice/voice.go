// Package voice defines the boundary types for speech input and output.
// Actual capture and synthesis live in external services; everything here
// works in terms of recognized words and cancellable playback.
package voice

import "context"

// Word is one recognized token from the transcription stream.
type Word struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Final      bool    `json:"final"`
}

// Speaker delivers a reply to the user. Speak blocks until the full text
// has been delivered or ctx is cancelled, returning ctx.Err() in the
// latter case.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Listener exposes the live word stream for one session.
type Listener interface {
	Words() <-chan Word
}
