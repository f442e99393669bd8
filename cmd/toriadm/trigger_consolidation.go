package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tori/consolidation/pb"
)

func newTriggerConsolidationCmd(opts *rootOptions) *cobra.Command {
	var maxEpisodes uint32
	var once, wait bool

	cmd := &cobra.Command{
		Use:   "trigger-consolidation",
		Short: "Start a SleepScheduler consolidation cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			conn, err := opts.dial(ctx, targetScheduler)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := pb.NewSchedulerClient(conn).StartConsolidation(ctx, &pb.StartConsolidationRequest{
				MaxEpisodes:       maxEpisodes,
				Once:              once,
				WaitForCompletion: wait,
			})
			if err != nil {
				return err
			}

			fmt.Printf("consolidation %s: %s (episodes=%d, energy_delta=%.6f)\n",
				resp.ConsolidationID, resp.Status, resp.EpisodesProcessed, resp.EnergyDelta)
			return nil
		},
	}

	f := cmd.Flags()
	f.Uint32Var(&maxEpisodes, "max-episodes", 0, "Cap episodes pulled this cycle (0 means scheduler default window).")
	f.BoolVar(&once, "once", false, "Run a single cycle instead of the recurring schedule.")
	f.BoolVar(&wait, "wait", false, "Block until the cycle completes before returning.")
	return cmd
}
