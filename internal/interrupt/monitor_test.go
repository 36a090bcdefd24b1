package interrupt

import (
	"context"
	"testing"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/voice"
)

func words(texts ...string) []voice.Word {
	out := make([]voice.Word, len(texts))
	for i, txt := range texts {
		out[i] = voice.Word{Text: txt, Confidence: 0.9, Final: true}
	}
	return out
}

func watch(t *testing.T, m *Monitor, ws []voice.Word) (fired bool, cancelled bool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	ch := make(chan voice.Word, len(ws))
	for _, w := range ws {
		ch <- w
	}

	cancelledCh := make(chan struct{})
	fired = m.Watch(ctx, ch, func() { close(cancelledCh) })

	select {
	case <-cancelledCh:
		cancelled = true
	default:
	}
	return fired, cancelled
}

func TestThreeMeaningfulWordsCancel(t *testing.T) {
	m := NewMonitor(Config{WordThreshold: 3, MinConfidence: 0.7})

	start := time.Now()
	fired, cancelled := watch(t, m, words("wait", "stop", "please"))
	elapsed := time.Since(start)

	if !fired {
		t.Fatal("expected interruption to fire")
	}
	if !cancelled {
		t.Fatal("expected cancel to be invoked")
	}
	// Words are already buffered; detection must be nearly immediate.
	if elapsed > 200*time.Millisecond {
		t.Errorf("detection took %v", elapsed)
	}
}

func TestBelowThresholdNeverCancels(t *testing.T) {
	m := NewMonitor(Config{WordThreshold: 3, MinConfidence: 0.7})

	fired, cancelled := watch(t, m, words("wait", "stop"))

	if fired || cancelled {
		t.Error("two words must not trigger an interruption")
	}
}

func TestLowConfidenceWordsIgnored(t *testing.T) {
	m := NewMonitor(Config{WordThreshold: 3, MinConfidence: 0.7})

	ws := []voice.Word{
		{Text: "wait", Confidence: 0.2},
		{Text: "stop", Confidence: 0.3},
		{Text: "please", Confidence: 0.1},
	}
	fired, _ := watch(t, m, ws)

	if fired {
		t.Error("low-confidence fragments must not trigger an interruption")
	}
}

func TestFillerNotMeaningful(t *testing.T) {
	m := NewMonitor(Config{WordThreshold: 2, MinConfidence: 0.7})

	fired, _ := watch(t, m, words("hmm", "okay"))

	if fired {
		t.Error("acknowledgment filler must not trigger an interruption")
	}
}

func TestShortTranscriptNotMeaningful(t *testing.T) {
	m := NewMonitor(Config{WordThreshold: 3, MinConfidence: 0.7})

	fired, _ := watch(t, m, words("a", "b", "c"))

	if fired {
		t.Error("a burst of fragments must not trigger an interruption")
	}
}

func TestReturnsWhenContextEnds(t *testing.T) {
	m := NewMonitor(Config{WordThreshold: 3, MinConfidence: 0.7, PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan voice.Word)

	done := make(chan bool, 1)
	go func() {
		done <- m.Watch(ctx, ch, func() {})
	}()

	cancel()

	select {
	case fired := <-done:
		if fired {
			t.Error("expected Watch to report no interruption")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Watch did not return after context cancellation")
	}
}

func TestClosedStreamEndsWatch(t *testing.T) {
	m := NewMonitor(Config{})

	ch := make(chan voice.Word)
	close(ch)

	if fired := m.Watch(context.Background(), ch, func() {}); fired {
		t.Error("closed stream must not report an interruption")
	}
}
