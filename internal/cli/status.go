package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/genchain/internal/chain"
)

func newStatusCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status [chain_id]",
		Short: "Show the recorded state of a chain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			st, err := openLedger(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer st.Close()

			marker := chain.FileMarker{Path: cfg.MarkerPath()}
			signaled, err := marker.Signaled()
			if err != nil {
				return err
			}
			if signaled {
				fmt.Printf("Termination marker: PRESENT (%s)\n", cfg.MarkerPath())
			} else {
				fmt.Println("Termination marker: absent")
			}

			if all {
				chains, err := st.Chains(ctx)
				if err != nil {
					return fmt.Errorf("list chains: %w", err)
				}
				if len(chains) == 0 {
					fmt.Println("No chains recorded.")
					return nil
				}
				fmt.Println("Chains:")
				for _, c := range chains {
					fmt.Printf("  %s  submissions=%d  last_generation=%d  last_job=%s  last_recorded=%s\n",
						c.ChainID, c.Submissions, c.LastGeneration, c.LastJobID,
						c.LastRecorded.Format("2006-01-02 15:04:05"))
				}
				return nil
			}

			chainID := ""
			if len(args) == 1 {
				chainID = args[0]
			} else {
				chainID, err = st.LatestChain(ctx)
				if err != nil {
					return fmt.Errorf("find latest chain: %w", err)
				}
				if chainID == "" {
					fmt.Println("No chains recorded.")
					return nil
				}
			}

			subs, err := st.ListChain(ctx, chainID)
			if err != nil {
				return fmt.Errorf("list chain %s: %w", chainID, err)
			}
			if len(subs) == 0 {
				return fmt.Errorf("no submissions recorded for chain %s", chainID)
			}

			fmt.Printf("Chain: %s\n", chainID)
			for _, sub := range subs {
				line := fmt.Sprintf("  gen %-4d %-10s job %s", sub.Generation, sub.Kind, sub.JobID)
				if sub.Dependency != "" {
					line += "  after " + sub.Dependency
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Summarize every recorded chain")

	return cmd
}
