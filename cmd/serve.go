package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/voicedesk/internal/config"
	"github.com/ziadkadry99/voicedesk/internal/conversation"
	"github.com/ziadkadry99/voicedesk/internal/db"
	"github.com/ziadkadry99/voicedesk/internal/escalation"
	"github.com/ziadkadry99/voicedesk/internal/intent"
	"github.com/ziadkadry99/voicedesk/internal/interrupt"
	"github.com/ziadkadry99/voicedesk/internal/knowledge"
	"github.com/ziadkadry99/voicedesk/internal/llm"
	"github.com/ziadkadry99/voicedesk/internal/server"
	"github.com/ziadkadry99/voicedesk/internal/session"
	"github.com/ziadkadry99/voicedesk/internal/supervisor"
	"github.com/ziadkadry99/voicedesk/internal/tickets"
	"github.com/ziadkadry99/voicedesk/internal/voice"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the voicedesk assistant server",
	Long:  `Starts the assistant with its REST API and websocket event feed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "voicedesk.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		ticketStore := tickets.NewStore(database)
		escalationStore := escalation.NewStore(database)

		// Knowledge search needs an embedder; without one the assistant
		// still runs on tickets and conversation alone.
		var kbStore *knowledge.Store
		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		if embedder == nil {
			fmt.Fprintf(os.Stderr, "Warning: %s not set, knowledge base search disabled\n", config.APIKeyEnvVar(cfg.EmbeddingProvider))
		} else {
			kbStore, err = knowledge.NewStore(embedder)
			if err != nil {
				return fmt.Errorf("creating knowledge store: %w", err)
			}
			if err := kbStore.Load(cfg.DataDir); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not load knowledge index from %s: %v (run voicedesk seed)\n", cfg.DataDir, err)
			}
		}

		// Same degradation for classification: with no reasoning model the
		// fast rules alone decide routing.
		var provider llm.Provider
		if cfg.Provider == config.ProviderOllama || os.Getenv(config.APIKeyEnvVar(cfg.Provider)) != "" {
			provider, err = llm.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("creating LLM provider: %w", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Warning: %s not set, intent classification uses fast rules only\n", config.APIKeyEnvVar(cfg.Provider))
		}
		classifier := intent.NewClassifier(provider, cfg.Model, cfg.Orchestrator.ClassifyTimeout)

		registry, err := buildRegistry(ticketStore, kbStore)
		if err != nil {
			return fmt.Errorf("registering responders: %w", err)
		}

		sup := supervisor.New(registry, classifier, supervisor.Config{
			TaskTimeout:         cfg.Orchestrator.TaskTimeout,
			EscalationThreshold: cfg.Orchestrator.EscalationThreshold,
			OverridePhrases:     cfg.Orchestrator.OverridePhrases,
		})

		sessions := session.NewStore(cfg.Session.IdleTimeout, cfg.Session.MaxHistory)
		defer sessions.Close()

		monitor := interrupt.NewMonitor(interrupt.Config{
			WordThreshold: cfg.Interruption.WordThreshold,
			MinConfidence: cfg.Interruption.MinConfidence,
			PollInterval:  cfg.Interruption.PollInterval,
		})

		hub := server.NewHub()
		speaker := voice.NewPacedSpeaker(0)
		machine := conversation.New(sessions, sup, speaker, monitor, escalationStore, hub, cfg.Orchestrator.FillerDelay)

		srv := server.New(server.Config{
			Port:     cfg.Server.Port,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, machine, escalationStore, hub)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			srv.RunStatusLoop(ctx)
			return nil
		})
		g.Go(func() error {
			sessions.RunReaper(cfg.Session.IdleTimeout / 2)
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			sessions.Close()
			return srv.Shutdown(context.Background())
		})

		fmt.Fprintf(os.Stderr, "voicedesk v%s starting on port %d\n", Version, cfg.Server.Port)
		if kbStore != nil {
			fmt.Fprintf(os.Stderr, "  Knowledge articles indexed: %d\n", kbStore.Count())
		}
		if n, err := ticketStore.Count(context.Background()); err == nil {
			fmt.Fprintf(os.Stderr, "  Tickets in database: %d\n", n)
		}

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
