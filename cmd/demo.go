package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/voicedesk/internal/conversation"
	"github.com/ziadkadry99/voicedesk/internal/db"
	"github.com/ziadkadry99/voicedesk/internal/embeddings"
	"github.com/ziadkadry99/voicedesk/internal/escalation"
	"github.com/ziadkadry99/voicedesk/internal/intent"
	"github.com/ziadkadry99/voicedesk/internal/interrupt"
	"github.com/ziadkadry99/voicedesk/internal/knowledge"
	"github.com/ziadkadry99/voicedesk/internal/session"
	"github.com/ziadkadry99/voicedesk/internal/supervisor"
	"github.com/ziadkadry99/voicedesk/internal/tickets"
	"github.com/ziadkadry99/voicedesk/internal/voice"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted conversation in the terminal",
	Long: `Runs the full orchestration pipeline against an in-memory database with
sample data and a deterministic local embedder. No API keys or network
access required. The script includes a barge-in interruption partway
through a spoken reply.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.Context())
	},
}

// consoleEvents prints machine events to the terminal.
type consoleEvents struct{}

func (consoleEvents) VoiceState(_ string, state conversation.State, turn int) {
	fmt.Printf("  [state] %s (turn %d)\n", state, turn)
}

func (consoleEvents) NewMessage(_ string, msg session.Message) {
	if msg.Confidence > 0 {
		fmt.Printf("  [%s] %s (confidence %.2f)\n", msg.Speaker, msg.Content, msg.Confidence)
		return
	}
	fmt.Printf("  [%s] %s\n", msg.Speaker, msg.Content)
}

func (consoleEvents) AgentRouting(_ string, targets []string, intentType string) {
	fmt.Printf("  [routing] intent=%s targets=%v\n", intentType, targets)
}

func (consoleEvents) EscalationAlert(_ string, ev escalation.Event) {
	fmt.Printf("  [escalation] reason=%s summary=%q\n", ev.Reason, ev.Summary)
}

func (consoleEvents) Filler(_ string, phrase string) {
	fmt.Printf("  [filler] %s\n", phrase)
}

func runDemo(ctx context.Context) error {
	database, err := db.OpenMemory()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	ticketStore := tickets.NewStore(database)
	for _, t := range tickets.SampleTickets {
		if err := ticketStore.Insert(ctx, t); err != nil {
			return fmt.Errorf("inserting ticket %s: %w", t.ID, err)
		}
	}

	kbStore, err := knowledge.NewStore(embeddings.NewLocalEmbedder())
	if err != nil {
		return fmt.Errorf("creating knowledge store: %w", err)
	}
	if err := kbStore.AddArticles(ctx, knowledge.SampleArticles); err != nil {
		return fmt.Errorf("indexing articles: %w", err)
	}

	registry, err := buildRegistry(ticketStore, kbStore)
	if err != nil {
		return fmt.Errorf("registering responders: %w", err)
	}

	// Fast rules only; the demo must run without a reasoning model.
	classifier := intent.NewClassifier(nil, "", 2*time.Second)

	sup := supervisor.New(registry, classifier, supervisor.Config{
		TaskTimeout:         3 * time.Second,
		EscalationThreshold: 0.6,
		OverridePhrases:     []string{"human", "agent", "representative"},
	})

	sessions := session.NewStore(10*time.Minute, 50)
	defer sessions.Close()

	escalationStore := escalation.NewStore(database)
	monitor := interrupt.NewMonitor(interrupt.Config{})

	speaker := voice.NewPacedSpeaker(60 * time.Millisecond)
	speaker.Emit = func(word string) { fmt.Printf("%s ", word) }

	machine := conversation.New(sessions, sup, speaker, monitor, escalationStore, consoleEvents{}, 2*time.Second)

	id := machine.StartSession()
	fmt.Printf("Session %s started\n\n", id)

	script := []string{
		"hello there",
		"what is the status of ticket TKT-001",
		"how do I enable offline mode on the mobile app",
	}
	for _, line := range script {
		fmt.Printf("\nYou: %s\n", line)
		if _, err := machine.ProcessUtterance(ctx, id, line); err != nil {
			return err
		}
		fmt.Println()
	}

	// Barge-in: interrupt the next reply partway through playback.
	fmt.Printf("\nYou: tell me about ticket TKT-002\n")
	done := make(chan error, 1)
	go func() {
		_, err := machine.ProcessUtterance(ctx, id, "tell me about ticket TKT-002")
		done <- err
	}()

	// Words only count once playback has started.
	for machine.State(id) != conversation.StateSpeaking {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(300 * time.Millisecond)
	fmt.Printf("\nYou (interrupting): wait stop actually never mind\n")
	machine.PushPartial(id, []voice.Word{
		{Text: "wait", Confidence: 0.9, Final: true},
		{Text: "stop", Confidence: 0.9, Final: true},
		{Text: "actually", Confidence: 0.9, Final: true},
	})
	if err := <-done; err != nil {
		return err
	}

	machine.CloseSession(id)
	fmt.Println("\nSession closed")
	return nil
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
