// Package conversation implements the per-session state machine that owns
// all voice-state transitions and session mutation. It drives one turn at a
// time through routing, speaking, and escalation, and races playback
// against the interruption monitor.
package conversation

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/escalation"
	"github.com/ziadkadry99/voicedesk/internal/interrupt"
	"github.com/ziadkadry99/voicedesk/internal/responder"
	"github.com/ziadkadry99/voicedesk/internal/session"
	"github.com/ziadkadry99/voicedesk/internal/supervisor"
	"github.com/ziadkadry99/voicedesk/internal/voice"
)

// State is the voice state of one session.
type State string

const (
	StateIdle        State = "idle"
	StateListening   State = "listening"
	StateRouting     State = "routing"
	StateSpeaking    State = "speaking"
	StateInterrupted State = "interrupted"
	StateEscalating  State = "escalating"
	StateClosing     State = "closing"
)

// voiceState tracks a session's current state together with the turn that
// set it, so transitions from an older turn cannot clobber a newer one.
type voiceState struct {
	state State
	turn  int
}

// Machine coordinates turns for all sessions. Each session processes one
// turn at a time; concurrent sessions are fully independent.
type Machine struct {
	sessions    *session.Store
	sup         *supervisor.Supervisor
	speaker     voice.Speaker
	monitor     *interrupt.Monitor
	escalations *escalation.Store
	events      Events
	fillerDelay time.Duration

	mu      sync.Mutex
	states  map[string]*voiceState
	streams map[string]*voice.ScriptListener
	turnMu  map[string]*sync.Mutex
}

// New creates the state machine. escalations may be nil when no database is
// attached (demo mode); events may be nil for NopEvents behavior.
func New(sessions *session.Store, sup *supervisor.Supervisor, speaker voice.Speaker, monitor *interrupt.Monitor, escalations *escalation.Store, events Events, fillerDelay time.Duration) *Machine {
	if events == nil {
		events = NopEvents{}
	}
	if fillerDelay <= 0 {
		fillerDelay = 2 * time.Second
	}
	return &Machine{
		sessions:    sessions,
		sup:         sup,
		speaker:     speaker,
		monitor:     monitor,
		escalations: escalations,
		events:      events,
		fillerDelay: fillerDelay,
		states:      make(map[string]*voiceState),
		streams:     make(map[string]*voice.ScriptListener),
		turnMu:      make(map[string]*sync.Mutex),
	}
}

// StartSession creates a session and moves it to LISTENING.
func (m *Machine) StartSession() string {
	id := m.sessions.Create()

	m.mu.Lock()
	m.states[id] = &voiceState{state: StateListening}
	m.streams[id] = voice.NewScriptListener()
	m.turnMu[id] = &sync.Mutex{}
	m.mu.Unlock()

	m.events.VoiceState(id, StateListening, 0)
	return id
}

// CloseSession ends a session explicitly. Safe to call twice.
func (m *Machine) CloseSession(id string) {
	m.mu.Lock()
	vs, known := m.states[id]
	if known {
		m.events.VoiceState(id, StateClosing, vs.turn)
	}
	delete(m.states, id)
	delete(m.streams, id)
	delete(m.turnMu, id)
	m.mu.Unlock()

	m.sessions.End(id)
}

// State returns the session's current voice state.
func (m *Machine) State(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vs, ok := m.states[id]; ok {
		return vs.state
	}
	return StateIdle
}

// States returns a copy of every active session's voice state.
func (m *Machine) States() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]State, len(m.states))
	for id, vs := range m.states {
		out[id] = vs.state
	}
	return out
}

// PushPartial feeds live transcription words into the session's stream so
// the interruption monitor can see them while a reply is playing. Words
// arriving outside a speaking window are dropped; only speech during
// playback counts toward barge-in.
func (m *Machine) PushPartial(id string, words []voice.Word) {
	m.mu.Lock()
	stream := m.streams[id]
	speaking := false
	if vs := m.states[id]; vs != nil {
		speaking = vs.state == StateSpeaking
	}
	m.mu.Unlock()
	if stream == nil || !speaking {
		return
	}
	for _, w := range words {
		stream.Push(w)
	}
}

// ProcessUtterance runs one complete turn: route, aggregate, speak, and, if
// flagged, escalate. It returns the aggregated response for transport-level
// callers. Responder and classifier failures never surface as errors; only
// an expired session does.
func (m *Machine) ProcessUtterance(ctx context.Context, id string, text string) (*supervisor.Response, error) {
	m.mu.Lock()
	lock := m.turnMu[id]
	m.mu.Unlock()
	if lock == nil {
		return nil, session.ErrSessionExpired
	}

	// The microphone can pick up the assistant's own filler phrases during
	// playback; those transcripts never start a turn.
	if isAudioFeedback(text) {
		return nil, nil
	}

	// If a reply is playing, this utterance is barge-in material for the
	// monitor, not a new turn yet.
	if m.State(id) == StateSpeaking {
		m.pushAsWords(id, text)
	}

	lock.Lock()
	defer lock.Unlock()

	turn, err := m.sessions.BeginTurn(id)
	if err != nil {
		m.sessionError(ctx, id, text)
		return nil, err
	}

	m.transition(id, turn, StateRouting)

	userMsg := session.Message{Content: text, Speaker: "user", Timestamp: time.Now().UTC()}
	if err := m.sessions.AppendMessage(id, userMsg); err != nil {
		return nil, err
	}
	m.events.NewMessage(id, userMsg)

	// Filler acknowledgment if routing runs long. Does not alter state.
	fillerTimer := time.AfterFunc(m.fillerDelay, func() {
		m.events.Filler(id, FillerPhrase())
	})
	defer fillerTimer.Stop()

	snap, err := m.sessions.Snapshot(id)
	if err != nil {
		return nil, err
	}

	utt := responder.NewUtterance(text, turn)
	resp := m.sup.ProcessTurn(ctx, utt, snap)
	fillerTimer.Stop()

	m.events.AgentRouting(id, resp.Contributors, string(resp.Intent))

	assistantMsg := session.Message{
		Content:    resp.Text,
		Speaker:    "assistant",
		Confidence: resp.Confidence,
		Timestamp:  time.Now().UTC(),
	}
	if err := m.sessions.AppendMessage(id, assistantMsg); err != nil {
		return nil, err
	}
	m.events.NewMessage(id, assistantMsg)

	if len(resp.Contributors) > 0 {
		if err := m.sessions.RecordRouting(id, resp.Contributors[0], string(resp.Intent)); err != nil {
			log.Printf("conversation: record routing for %s: %v", id, err)
		}
	}

	interrupted := m.speak(ctx, id, turn, resp.Text)

	if resp.Escalate {
		m.escalate(ctx, id, turn, resp, text)
	}

	if interrupted {
		m.transition(id, turn, StateInterrupted)
	}
	m.transition(id, turn, StateListening)

	return resp, nil
}

// speak races playback against the interruption monitor and reports whether
// the user barged in.
func (m *Machine) speak(ctx context.Context, id string, turn int, text string) bool {
	if m.speaker == nil || text == "" {
		return false
	}

	m.mu.Lock()
	stream := m.streams[id]
	m.mu.Unlock()

	// Anything buffered before this window is stale; it must not be able
	// to cancel the playback that is only now starting.
	if stream != nil {
		stream.Drain()
	}

	m.transition(id, turn, StateSpeaking)

	speakCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupted := make(chan bool, 1)
	if m.monitor != nil && stream != nil {
		go func() {
			interrupted <- m.monitor.Watch(speakCtx, stream.Words(), cancel)
		}()
	} else {
		interrupted <- false
	}

	err := m.speaker.Speak(speakCtx, text)
	cancel()

	// The monitor may fire in the same instant playback completes; once
	// Speak has returned without error the turn finished normally and the
	// late signal is a no-op.
	fired := <-interrupted
	if err == nil {
		return false
	}
	if fired {
		log.Printf("conversation: session %s interrupted during turn %d", id, turn)
	}
	return fired
}

func (m *Machine) escalate(ctx context.Context, id string, turn int, resp *supervisor.Response, query string) {
	m.transition(id, turn, StateEscalating)

	ev := escalation.Event{
		SessionID:  id,
		Turn:       turn,
		Reason:     resp.EscalationReason,
		Summary:    query,
		Confidence: resp.Confidence,
	}

	if m.escalations != nil {
		recorded, err := m.escalations.Record(ctx, ev)
		if err != nil {
			log.Printf("conversation: record escalation for %s: %v", id, err)
		} else {
			ev = *recorded
		}
	}

	m.events.EscalationAlert(id, ev)
}

// sessionError records a turn that failed because the store evicted the
// session while the machine still tracked it. The audit trail keeps the
// query that was lost.
func (m *Machine) sessionError(ctx context.Context, id, query string) {
	ev := escalation.Event{
		SessionID: id,
		Reason:    escalation.ReasonSessionError,
		Summary:   query,
	}

	if m.escalations != nil {
		recorded, err := m.escalations.Record(ctx, ev)
		if err != nil {
			log.Printf("conversation: record session error for %s: %v", id, err)
		} else {
			ev = *recorded
		}
	}

	m.events.EscalationAlert(id, ev)
}

// ManualEscalate records an operator-triggered handoff outside the normal
// turn flow.
func (m *Machine) ManualEscalate(ctx context.Context, id string, summary string) (*escalation.Event, error) {
	snap, err := m.sessions.Snapshot(id)
	if err != nil {
		return nil, err
	}

	if summary == "" {
		summary = "manual escalation requested"
	}
	ev := escalation.Event{
		SessionID:  id,
		Turn:       snap.Turn,
		Reason:     escalation.ReasonManualRequest,
		Summary:    summary,
		Confidence: snap.AverageConfidence(),
	}

	if m.escalations != nil {
		recorded, err := m.escalations.Record(ctx, ev)
		if err != nil {
			return nil, err
		}
		ev = *recorded
	}

	m.events.EscalationAlert(id, ev)
	return &ev, nil
}

// transition applies a state change for the given turn. Changes from a turn
// older than the one that last moved the session are dropped, which closes
// the race between a cancelled turn and its successor.
func (m *Machine) transition(id string, turn int, next State) {
	m.mu.Lock()
	vs, ok := m.states[id]
	if !ok || turn < vs.turn {
		m.mu.Unlock()
		return
	}
	vs.state = next
	vs.turn = turn
	m.mu.Unlock()

	m.events.VoiceState(id, next, turn)
}

func (m *Machine) pushAsWords(id string, text string) {
	fields := strings.Fields(text)
	words := make([]voice.Word, len(fields))
	for i, f := range fields {
		words[i] = voice.Word{Text: f, Confidence: 1, Final: true}
	}
	m.PushPartial(id, words)
}

// History returns the session's conversation history.
func (m *Machine) History(id string) ([]session.Message, error) {
	snap, err := m.sessions.Snapshot(id)
	if err != nil {
		return nil, err
	}
	return snap.History, nil
}
