package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/me/genchain/internal/chain"
	"github.com/me/genchain/internal/config"
	"github.com/me/genchain/internal/payload"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <role> [id]",
		Short: "Role entry point for controller and worker invocations",
		Long: `Run is the single entry point the chain re-invokes itself through.

Role 's' inside a scheduler job runs the controller for generation <id>;
invoked directly by an operator it bootstraps the chain by submitting the
first controller job (generation <id>, default 1). Role 'w' inside a
scheduler job runs one worker, taking its index from the array element
environment; with an explicit <id> it runs that worker directly.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := payload.Role(args[0])
			if !role.Valid() {
				return fmt.Errorf("unrecognized role %q (want %q or %q)",
					args[0], payload.RoleSupervisor, payload.RoleWorker)
			}

			id, haveID := 0, false
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid identifier %q: want a positive integer", args[1])
				}
				id, haveID = n, true
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			// The two roles are disjoint terminal behaviors: no controller
			// logic runs in a worker invocation and vice versa.
			if role == payload.RoleWorker {
				return runWorker(ctx, cfg, id, haveID)
			}
			if insideScheduler() {
				if !haveID {
					return fmt.Errorf("controller invocations need a generation number")
				}
				return runController(ctx, cfg, id)
			}
			g := 1
			if haveID {
				g = id
			}
			return bootstrap(ctx, cfg, g)
		},
	}
}

// runWorker runs exactly one worker: resolve this invocation's index,
// hand it to the payload, done.
func runWorker(ctx context.Context, cfg config.Config, id int, haveID bool) error {
	if !haveID {
		idx, err := arrayIndex()
		if err != nil {
			return err
		}
		id = idx
	}
	runner := payload.NewRunner(cfg.Executable, cfg.ExtraArgs, cfg.RunDir, logger)
	return runner.Run(ctx, payload.RoleWorker, id)
}

// runController runs generation g's orchestration logic.
func runController(ctx context.Context, cfg config.Config, g int) error {
	ctrl, cleanup, err := buildController(ctx, cfg, flagChain)
	if err != nil {
		return err
	}
	defer cleanup()

	outcome, err := ctrl.Run(ctx, g)
	if err != nil {
		return err
	}
	if outcome == chain.OutcomeHalted {
		logger.Info("chain ended normally", "generation", g)
	}
	return nil
}

// bootstrap submits generation g's controller job, starting a new chain.
func bootstrap(ctx context.Context, cfg config.Config, g int) error {
	chainID := flagChain
	if chainID == "" {
		chainID = uuid.New().String()
	}

	marker := chain.FileMarker{Path: cfg.MarkerPath()}
	if stop, err := marker.Signaled(); err != nil {
		return err
	} else if stop {
		logger.Warn("termination marker present, the submitted chain will halt immediately",
			"marker", cfg.MarkerPath(), "hint", "use 'genchain restart' to clear it")
	}

	ctrl, cleanup, err := buildController(ctx, cfg, chainID)
	if err != nil {
		return err
	}
	defer cleanup()

	jobID, err := ctrl.SubmitController(ctx, g, "")
	if err != nil {
		return err
	}
	fmt.Printf("Submitted controller for generation %d: job %s (chain %s)\n", g, jobID, chainID)
	return nil
}
