package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/genchain/internal/config"
	"github.com/me/genchain/internal/logging"
)

var (
	flagConfig    string
	flagChain     string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger

	// rootFlags is kept so subcommands can tell flag-set values apart
	// from config-file defaults.
	rootFlags interface{ Changed(string) bool }
)

// defaultConfig returns the default config file path, checking the
// GENCHAIN_CONFIG env var first.
func defaultConfig() string {
	if s := os.Getenv("GENCHAIN_CONFIG"); s != "" {
		return s
	}
	return "genchain.yaml"
}

// NewRootCmd creates the root cobra command for the genchain CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "genchain",
		Short: "genchain — self-propagating generation chains on SLURM",
		Long: "genchain runs a generational optimization as a chain of SLURM jobs:\n" +
			"each generation's supervisor job fans out a worker array and submits\n" +
			"the next supervisor gated on the array's completion. No process\n" +
			"outlives its generation.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", defaultConfig(), "Run config file (or GENCHAIN_CONFIG env)")
	root.PersistentFlags().StringVar(&flagChain, "chain", "", "Chain identifier (set automatically on submitted jobs)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	rootFlags = root.PersistentFlags()

	root.AddCommand(
		newRunCmd(),
		newRestartCmd(),
		newStopCmd(),
		newStatusCmd(),
		newServeCmd(),
	)

	return root
}

// applyConfigLogging rebuilds the logger from config values unless the
// operator overrode them on the command line.
func applyConfigLogging(cfg config.Config) {
	level, format := flagLogLevel, flagLogFormat
	if !rootFlags.Changed("log-level") && !flagDebug {
		level = cfg.LogLevel
	}
	if !rootFlags.Changed("log-format") {
		format = cfg.LogFormat
	}
	logger = logging.NewLogger(logging.ParseLevel(level), format)
}
