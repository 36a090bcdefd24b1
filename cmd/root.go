package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "voicedesk",
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "Voice-driven IT support assistant",
	Long: `Voicedesk is the orchestration core of a voice support assistant. It
routes recognized utterances to specialized responders (tickets, knowledge
base, conversation), aggregates their answers under bounded deadlines,
escalates low-confidence turns to a human, and supports barge-in
interruption while a reply is playing.`,
}

func Execute() {
	exitOnError(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".voicedesk.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
