package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/me/genchain/internal/chain"
	"github.com/me/genchain/internal/config"
	"github.com/me/genchain/internal/ledger"
	"github.com/me/genchain/internal/payload"
	"github.com/me/genchain/internal/slurm"
)

// loadConfig loads the run config from the --config flag and reapplies
// logging settings from it.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	applyConfigLogging(cfg)
	return cfg, nil
}

// selfArgs builds the argv prefix that re-invokes this program against
// the same run config from inside a scheduler job, where the working
// directory is not ours.
func selfArgs() ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	cfgPath, err := filepath.Abs(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	return []string{exe, "run", "--config", cfgPath}, nil
}

// buildController assembles a chain.Controller with its collaborators.
// The ledger is best-effort: if it cannot be opened the controller runs
// without recording, since the ledger is observational only. The
// returned cleanup closes whatever was opened.
func buildController(ctx context.Context, cfg config.Config, chainID string) (*chain.Controller, func(), error) {
	self, err := selfArgs()
	if err != nil {
		return nil, nil, err
	}

	client := slurm.NewCommandClient(cfg.Sbatch, logger)
	term := chain.FileMarker{Path: cfg.MarkerPath()}
	pay := payload.NewRunner(cfg.Executable, cfg.ExtraArgs, cfg.RunDir, logger)

	opts := []chain.Option{}
	if chainID != "" {
		opts = append(opts, chain.WithChainID(chainID))
	}

	cleanup := func() {}
	if st, err := openLedger(ctx, cfg); err != nil {
		logger.Warn("ledger unavailable, submissions will not be recorded", "error", err)
	} else {
		opts = append(opts, chain.WithRecorder(st))
		cleanup = func() { st.Close() }
	}

	return chain.New(cfg, client, term, pay, self, logger, opts...), cleanup, nil
}

// openLedger opens and migrates the run's submission ledger.
func openLedger(ctx context.Context, cfg config.Config) (*ledger.Store, error) {
	st, err := ledger.NewStore(cfg.LedgerPath(), logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
