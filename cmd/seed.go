package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/voicedesk/internal/config"
	"github.com/ziadkadry99/voicedesk/internal/db"
	"github.com/ziadkadry99/voicedesk/internal/knowledge"
	"github.com/ziadkadry99/voicedesk/internal/tickets"
)

var seedDocsDir string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample tickets and build the knowledge base index",
	Long: `Populates the ticket database with sample data and embeds knowledge base
articles into the vector index. Point --docs at a directory of markdown
files to index your own documentation; otherwise built-in sample articles
are used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "voicedesk.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		ctx := context.Background()

		ticketStore := tickets.NewStore(database)
		for _, t := range tickets.SampleTickets {
			if err := ticketStore.Insert(ctx, t); err != nil {
				return fmt.Errorf("inserting ticket %s: %w", t.ID, err)
			}
		}
		fmt.Printf("Loaded %d sample tickets\n", len(tickets.SampleTickets))

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		if embedder == nil {
			fmt.Fprintf(os.Stderr, "Warning: %s not set, skipping knowledge base indexing\n", config.APIKeyEnvVar(cfg.EmbeddingProvider))
			return nil
		}

		articles := knowledge.SampleArticles
		if seedDocsDir != "" {
			articles, err = knowledge.LoadMarkdownDir(seedDocsDir)
			if err != nil {
				return fmt.Errorf("loading docs from %s: %w", seedDocsDir, err)
			}
			if len(articles) == 0 {
				return fmt.Errorf("no markdown articles found under %s", seedDocsDir)
			}
		}

		kbStore, err := knowledge.NewStore(embedder)
		if err != nil {
			return fmt.Errorf("creating knowledge store: %w", err)
		}

		bar := progressbar.NewOptions(len(articles),
			progressbar.OptionSetDescription("Embedding articles"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
		)
		for _, a := range articles {
			if err := kbStore.AddArticles(ctx, []knowledge.Article{a}); err != nil {
				return fmt.Errorf("indexing article %s: %w", a.ID, err)
			}
			bar.Add(1)
		}
		fmt.Println()

		if err := kbStore.Persist(cfg.DataDir); err != nil {
			return fmt.Errorf("persisting knowledge index: %w", err)
		}
		fmt.Printf("Indexed %d knowledge articles into %s\n", len(articles), cfg.DataDir)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedDocsDir, "docs", "", "directory of markdown files to index")
	rootCmd.AddCommand(seedCmd)
}
