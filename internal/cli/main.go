package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "reelgen",
		Short:        "Turn a topic into a short narrated video",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Flags override the matching environment variables.
	root.Flags().String("out", defaultOutDir, "Output directory (OUTPUT_DIR)")
	root.Flags().Int("scenes", defaultScenes, "Number of scenes (SCENES_COUNT)")
	root.Flags().Int("duration", defaultTotalSec, "Total video duration in seconds (TOTAL_DURATION_SEC)")
	root.Flags().String("topic-id", "", "Topic id to pick from the topic list (TOPIC_ID)")
	root.Flags().String("topics", defaultTopicsFile, "Topic list file, JSON or YAML (TOPICS_FILE)")
	root.Flags().String("title", "", "Use this topic title instead of the topic list")
	root.Flags().String("description", "", "Description for --title")
	root.Flags().Bool("cleanup", false, "Remove intermediate files after success (CLEANUP)")
	root.Flags().String("log-level", "info", "Log level (LOG_LEVEL)")

	return root
}
