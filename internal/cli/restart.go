package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRestartCmd() *cobra.Command {
	var generation int
	var workers bool

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Clear a stale termination marker and resubmit part of a chain",
		Long: `Restart resumes a stopped run: it removes the termination marker, then
resubmits either the controller for a generation (default) or that
generation's worker array (--workers). Use it after fixing whatever made
the chain stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if err := os.Remove(cfg.MarkerPath()); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("clear marker %s: %w", cfg.MarkerPath(), err)
				}
			} else {
				logger.Info("termination marker cleared", "marker", cfg.MarkerPath())
			}

			chainID := flagChain
			if chainID == "" {
				chainID = uuid.New().String()
			}

			ctrl, cleanup, err := buildController(ctx, cfg, chainID)
			if err != nil {
				return err
			}
			defer cleanup()

			if workers {
				jobID, err := ctrl.SubmitWorkers(ctx, generation)
				if err != nil {
					return err
				}
				fmt.Printf("Resubmitted worker array for generation %d: job %s (chain %s)\n", generation, jobID, chainID)
				return nil
			}

			jobID, err := ctrl.SubmitController(ctx, generation, "")
			if err != nil {
				return err
			}
			fmt.Printf("Resubmitted controller for generation %d: job %s (chain %s)\n", generation, jobID, chainID)
			return nil
		},
	}

	cmd.Flags().IntVarP(&generation, "generation", "g", 1, "Generation to resubmit")
	cmd.Flags().BoolVar(&workers, "workers", false, "Resubmit the worker array instead of the controller")

	return cmd
}
