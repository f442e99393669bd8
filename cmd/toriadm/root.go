package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tori/consolidation/internal/bootstrap"
	"github.com/tori/consolidation/internal/config"
	"github.com/tori/consolidation/internal/identity"
)

// rootOptions carries the flags every subcommand reads to reach the
// pipeline's RPC surface.
type rootOptions struct {
	configPath string
	timeout    time.Duration

	cfg      *config.Config
	verifier *identity.Verifier
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "toriadm",
		Short:         "Operator CLI for the TORI memory consolidation pipeline",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			verifier, _ := bootstrap.Identity(cfg.Server)
			opts.verifier = verifier
			return nil
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "config.yaml", "Path to the pipeline config.yaml.")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Per-RPC deadline.")

	cmd.AddCommand(
		newHealthCheckCmd(opts),
		newStatusCmd(opts),
		newStartCmd(opts),
		newTriggerConsolidationCmd(opts),
		newTriggerPruneCmd(opts),
		newKCLStatusCmd(opts),
		newRevertPruneCmd(opts),
	)
	return cmd
}
