package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/escalation"
	"github.com/ziadkadry99/voicedesk/internal/intent"
	"github.com/ziadkadry99/voicedesk/internal/interrupt"
	"github.com/ziadkadry99/voicedesk/internal/responder"
	"github.com/ziadkadry99/voicedesk/internal/session"
	"github.com/ziadkadry99/voicedesk/internal/supervisor"
	"github.com/ziadkadry99/voicedesk/internal/voice"
)

// recorder captures machine events for assertions.
type recorder struct {
	mu          sync.Mutex
	states      []State
	messages    []session.Message
	routings    [][]string
	escalations []escalation.Event
	fillers     []string
}

func (r *recorder) VoiceState(_ string, state State, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder) NewMessage(_ string, msg session.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) AgentRouting(_ string, targets []string, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routings = append(r.routings, targets)
}

func (r *recorder) EscalationAlert(_ string, ev escalation.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.escalations = append(r.escalations, ev)
}

func (r *recorder) Filler(_ string, phrase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fillers = append(r.fillers, phrase)
}

func (r *recorder) lastState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return ""
	}
	return r.states[len(r.states)-1]
}

func (r *recorder) sawState(s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.states {
		if st == s {
			return true
		}
	}
	return false
}

// echoResponder answers immediately with a fixed confidence.
type echoResponder struct {
	text       string
	confidence float64
	delay      time.Duration
}

func (e *echoResponder) Name() string             { return "echo" }
func (e *echoResponder) Domain() responder.Domain { return responder.DomainConversation }
func (e *echoResponder) Handle(ctx context.Context, utt responder.Utterance, _ session.Snapshot) responder.Result {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
		}
	}
	return responder.Result{
		Responder:  "echo",
		Domain:     responder.DomainConversation,
		Text:       e.text,
		Confidence: e.confidence,
		Turn:       utt.Turn,
	}
}

type echoClassifier struct{}

func (echoClassifier) Classify(context.Context, string, session.Snapshot) intent.Decision {
	return intent.Decision{
		Intent:     intent.TypeUnknown,
		Targets:    []intent.Target{{Name: "echo", Priority: 1}},
		Confidence: 0.9,
	}
}

type machineOpts struct {
	responder   responder.Responder
	perWord     time.Duration
	fillerDelay time.Duration
}

func newTestMachine(t *testing.T, opts machineOpts, events Events) (*Machine, *session.Store) {
	t.Helper()

	if opts.responder == nil {
		opts.responder = &echoResponder{text: "hello back", confidence: 0.9}
	}
	if opts.perWord == 0 {
		opts.perWord = time.Millisecond
	}
	if opts.fillerDelay == 0 {
		opts.fillerDelay = time.Minute
	}

	registry := responder.NewRegistry()
	if err := registry.Register(opts.responder); err != nil {
		t.Fatalf("Register: %v", err)
	}

	sup := supervisor.New(registry, echoClassifier{}, supervisor.Config{
		TaskTimeout:         time.Second,
		EscalationThreshold: 0.6,
	})

	sessions := session.NewStore(time.Minute, 20)
	t.Cleanup(sessions.Close)

	monitor := interrupt.NewMonitor(interrupt.Config{
		WordThreshold: 3,
		MinConfidence: 0.7,
		PollInterval:  5 * time.Millisecond,
	})

	speaker := voice.NewPacedSpeaker(opts.perWord)
	machine := New(sessions, sup, speaker, monitor, nil, events, opts.fillerDelay)
	return machine, sessions
}

func TestTurnLifecycle(t *testing.T) {
	rec := &recorder{}
	machine, _ := newTestMachine(t, machineOpts{}, rec)

	id := machine.StartSession()
	resp, err := machine.ProcessUtterance(context.Background(), id, "hi")
	if err != nil {
		t.Fatalf("ProcessUtterance: %v", err)
	}
	if resp.Text != "hello back" {
		t.Errorf("unexpected response %q", resp.Text)
	}

	for _, want := range []State{StateListening, StateRouting, StateSpeaking} {
		if !rec.sawState(want) {
			t.Errorf("missing %s state transition: %v", want, rec.states)
		}
	}
	if last := rec.lastState(); last != StateListening {
		t.Errorf("expected to end in listening, got %s", last)
	}

	history, err := machine.History(id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(history))
	}
	if history[0].Speaker != "user" || history[1].Speaker != "assistant" {
		t.Errorf("unexpected speakers: %s, %s", history[0].Speaker, history[1].Speaker)
	}

	if len(rec.routings) != 1 || rec.routings[0][0] != "echo" {
		t.Errorf("expected routing event for echo, got %v", rec.routings)
	}
}

func TestAudioFeedbackIgnored(t *testing.T) {
	machine, _ := newTestMachine(t, machineOpts{}, &recorder{})

	id := machine.StartSession()
	resp, err := machine.ProcessUtterance(context.Background(), id, "Let me check on that for you")
	if err != nil {
		t.Fatalf("ProcessUtterance: %v", err)
	}
	if resp != nil {
		t.Errorf("expected feedback transcript to be dropped, got %q", resp.Text)
	}

	history, err := machine.History(id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d messages", len(history))
	}
}

func TestExpiredSessionSurfaced(t *testing.T) {
	machine, _ := newTestMachine(t, machineOpts{}, &recorder{})

	if _, err := machine.ProcessUtterance(context.Background(), "ghost", "hi"); !errors.Is(err, session.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}

	id := machine.StartSession()
	machine.CloseSession(id)
	if _, err := machine.ProcessUtterance(context.Background(), id, "hi"); !errors.Is(err, session.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired after close, got %v", err)
	}
}

func TestEvictedSessionRecordsSessionError(t *testing.T) {
	rec := &recorder{}
	machine, sessions := newTestMachine(t, machineOpts{}, rec)

	id := machine.StartSession()
	// Idle eviction removes the store entry while the machine still
	// tracks the session.
	sessions.End(id)

	if _, err := machine.ProcessUtterance(context.Background(), id, "hello?"); !errors.Is(err, session.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.escalations) != 1 {
		t.Fatalf("expected 1 escalation event, got %d", len(rec.escalations))
	}
	if rec.escalations[0].Reason != escalation.ReasonSessionError {
		t.Errorf("unexpected reason %s", rec.escalations[0].Reason)
	}
	if rec.escalations[0].Summary != "hello?" {
		t.Errorf("expected the lost query in the summary, got %q", rec.escalations[0].Summary)
	}
}

func TestBargeInInterruptsPlayback(t *testing.T) {
	rec := &recorder{}
	long := &echoResponder{
		text:       "this is a deliberately long reply with many words so playback takes a while to finish completely",
		confidence: 0.9,
	}
	machine, _ := newTestMachine(t, machineOpts{responder: long, perWord: 30 * time.Millisecond}, rec)

	id := machine.StartSession()

	done := make(chan error, 1)
	go func() {
		_, err := machine.ProcessUtterance(context.Background(), id, "hi")
		done <- err
	}()

	// Wait for playback to start, then barge in.
	deadline := time.After(2 * time.Second)
	for machine.State(id) != StateSpeaking {
		select {
		case <-deadline:
			t.Fatal("machine never reached speaking state")
		case <-time.After(5 * time.Millisecond):
		}
	}

	start := time.Now()
	machine.PushPartial(id, []voice.Word{
		{Text: "wait", Confidence: 0.9},
		{Text: "stop", Confidence: 0.9},
		{Text: "please", Confidence: 0.9},
	})

	if err := <-done; err != nil {
		t.Fatalf("ProcessUtterance: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("interruption took %v to cut playback", elapsed)
	}

	if !rec.sawState(StateInterrupted) {
		t.Errorf("expected interrupted state, got %v", rec.states)
	}
	if last := rec.lastState(); last != StateListening {
		t.Errorf("expected to return to listening, got %s", last)
	}

	// The partial answer stays in history.
	history, _ := machine.History(id)
	if len(history) != 2 {
		t.Errorf("expected history to keep the interrupted reply, got %d messages", len(history))
	}
}

func TestSpeechBeforePlaybackDoesNotInterrupt(t *testing.T) {
	rec := &recorder{}
	machine, _ := newTestMachine(t, machineOpts{perWord: 10 * time.Millisecond}, rec)

	id := machine.StartSession()

	// Partials streamed while still listening must not count against the
	// next output window.
	machine.PushPartial(id, []voice.Word{
		{Text: "wait", Confidence: 0.9},
		{Text: "stop", Confidence: 0.9},
		{Text: "please", Confidence: 0.9},
	})

	resp, err := machine.ProcessUtterance(context.Background(), id, "hi")
	if err != nil {
		t.Fatalf("ProcessUtterance: %v", err)
	}
	if resp == nil || resp.Text != "hello back" {
		t.Fatalf("expected full reply, got %+v", resp)
	}

	if rec.sawState(StateInterrupted) {
		t.Errorf("pre-window speech cancelled playback: %v", rec.states)
	}
	if last := rec.lastState(); last != StateListening {
		t.Errorf("expected to end in listening, got %s", last)
	}
}

func TestFillerEmittedDuringSlowRouting(t *testing.T) {
	rec := &recorder{}
	slow := &echoResponder{text: "done", confidence: 0.9, delay: 120 * time.Millisecond}
	machine, _ := newTestMachine(t, machineOpts{responder: slow, fillerDelay: 20 * time.Millisecond}, rec)

	id := machine.StartSession()
	if _, err := machine.ProcessUtterance(context.Background(), id, "hi"); err != nil {
		t.Fatalf("ProcessUtterance: %v", err)
	}

	rec.mu.Lock()
	fillers := len(rec.fillers)
	rec.mu.Unlock()
	if fillers == 0 {
		t.Error("expected a filler acknowledgment during slow routing")
	}
}

func TestNoFillerOnFastRouting(t *testing.T) {
	rec := &recorder{}
	machine, _ := newTestMachine(t, machineOpts{fillerDelay: 500 * time.Millisecond}, rec)

	id := machine.StartSession()
	if _, err := machine.ProcessUtterance(context.Background(), id, "hi"); err != nil {
		t.Fatalf("ProcessUtterance: %v", err)
	}

	rec.mu.Lock()
	fillers := len(rec.fillers)
	rec.mu.Unlock()
	if fillers != 0 {
		t.Errorf("fast routing must not emit filler, got %d", fillers)
	}
}

func TestLowConfidenceTriggersEscalationAlert(t *testing.T) {
	rec := &recorder{}
	hedgy := &echoResponder{text: "not sure", confidence: 0.2}
	machine, _ := newTestMachine(t, machineOpts{responder: hedgy}, rec)

	id := machine.StartSession()
	resp, err := machine.ProcessUtterance(context.Background(), id, "hard question")
	if err != nil {
		t.Fatalf("ProcessUtterance: %v", err)
	}
	if !resp.Escalate {
		t.Fatal("expected escalation flag")
	}

	if !rec.sawState(StateEscalating) {
		t.Errorf("expected escalating state, got %v", rec.states)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.escalations) != 1 {
		t.Fatalf("expected 1 escalation alert, got %d", len(rec.escalations))
	}
	if rec.escalations[0].Reason != escalation.ReasonLowConfidence {
		t.Errorf("unexpected reason %s", rec.escalations[0].Reason)
	}
	// The partial answer is still delivered.
	if resp.Text != "not sure" {
		t.Errorf("expected partial answer, got %q", resp.Text)
	}
}

func TestManualEscalate(t *testing.T) {
	rec := &recorder{}
	machine, _ := newTestMachine(t, machineOpts{}, rec)

	id := machine.StartSession()
	ev, err := machine.ManualEscalate(context.Background(), id, "operator requested")
	if err != nil {
		t.Fatalf("ManualEscalate: %v", err)
	}
	if ev.Reason != escalation.ReasonManualRequest {
		t.Errorf("expected manual_request reason, got %s", ev.Reason)
	}

	if _, err := machine.ManualEscalate(context.Background(), "ghost", ""); !errors.Is(err, session.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired for unknown session, got %v", err)
	}
}

func TestConcurrentSessionsIndependent(t *testing.T) {
	machine, _ := newTestMachine(t, machineOpts{}, &recorder{})

	a := machine.StartSession()
	b := machine.StartSession()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 4; i++ {
		for _, id := range []string{a, b} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := machine.ProcessUtterance(context.Background(), id, "hi"); err != nil {
					errs <- err
				}
			}(id)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("turn failed: %v", err)
	}

	ha, _ := machine.History(a)
	hb, _ := machine.History(b)
	if len(ha) != 8 || len(hb) != 8 {
		t.Errorf("expected 8 messages per session, got %d and %d", len(ha), len(hb))
	}
}
