package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"os"

	"github.com/spf13/cobra"

	"github.com/tori/consolidation/internal/apierr"
)

// newStatusCmd prints a one-line-per-service health snapshot of the whole
// pipeline, defaulting to all four so an operator can see the shape of a
// degradation at a glance rather than checking one service at a time.
func newStatusCmd(opts *rootOptions) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a pipeline-wide health snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := []serviceTarget{targetVault, targetScheduler, targetPruner, targetKoopman}
			if service != "" && service != string(targetAll) {
				targets = []serviceTarget{serviceTarget(service)}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tSTATUS\tMESSAGE")
			anyUnavailable := false
			for _, t := range targets {
				status, err := checkOne(ctx, opts, t)
				if err != nil {
					anyUnavailable = true
					fmt.Fprintf(w, "%s\tUNREACHABLE\t%v\n", t, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", t, status.Status, status.Message)
			}
			w.Flush()

			if anyUnavailable {
				return apierr.Unavailable("toriadm: one or more services unreachable")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", "all", "Service to show: vault, scheduler, pruner, koopman, all.")
	return cmd
}
