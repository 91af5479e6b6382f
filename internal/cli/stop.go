package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Create the termination marker so future generations halt",
		Long: `Stop drops the termination marker in the run directory. The currently
queued generation still runs to completion; every controller after it
observes the marker and halts without submitting anything. Remove the
marker (or use restart) to resume.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			f, err := os.OpenFile(cfg.MarkerPath(), os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("create marker %s: %w", cfg.MarkerPath(), err)
			}
			f.Close()

			fmt.Printf("Termination marker created: %s\n", cfg.MarkerPath())
			return nil
		},
	}
}
