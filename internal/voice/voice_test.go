package voice

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPacedSpeakerCompletes(t *testing.T) {
	s := NewPacedSpeaker(time.Millisecond)

	var spoken []string
	s.Emit = func(w string) { spoken = append(spoken, w) }

	if err := s.Speak(context.Background(), "three word reply"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if len(spoken) != 3 {
		t.Errorf("expected 3 words emitted, got %v", spoken)
	}
}

func TestPacedSpeakerCancelled(t *testing.T) {
	s := NewPacedSpeaker(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var spoken int
	s.Emit = func(string) {
		spoken++
		if spoken == 2 {
			cancel()
		}
	}

	err := s.Speak(ctx, "a long reply that keeps going and going")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if spoken > 3 {
		t.Errorf("playback continued after cancellation: %d words", spoken)
	}
}

func TestScriptListenerPushAndDrop(t *testing.T) {
	l := NewScriptListener()

	l.Push(Word{Text: "hello", Confidence: 0.9})

	select {
	case w := <-l.Words():
		if w.Text != "hello" {
			t.Errorf("unexpected word %q", w.Text)
		}
	default:
		t.Fatal("expected a buffered word")
	}

	// Overfilling must drop, not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			l.Push(Word{Text: "x"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push blocked on a full buffer")
	}

	l.Close()
	drained := 0
	for range l.Words() {
		drained++
	}
	if drained > 64 {
		t.Errorf("buffer larger than expected: %d", drained)
	}
}
