package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tori/consolidation/internal/apierr"
	"github.com/tori/consolidation/pb"
)

func newRevertPruneCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revert-prune <id>",
		Short: "Roll back a prior pruning pass by ID",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return apierr.InvalidArgument("toriadm: revert-prune takes exactly one pruning ID")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			conn, err := opts.dial(ctx, targetPruner)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := pb.NewPrunerClient(conn).Revert(ctx, &pb.RevertRequest{PruningID: args[0]})
			if err != nil {
				return err
			}
			if !resp.OK {
				return apierr.FailedPrecondition("toriadm: revert failed: %s", resp.Message)
			}
			fmt.Printf("reverted %s: %s\n", args[0], resp.Message)
			return nil
		},
	}
	return cmd
}
