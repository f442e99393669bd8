package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tori/consolidation/internal/apierr"
	"github.com/tori/consolidation/pb"
)

func newTriggerPruneCmd(opts *rootOptions) *cobra.Command {
	var preview, apply, dryRun, createBackup bool
	var threshold, targetSparsity float64

	cmd := &cobra.Command{
		Use:   "trigger-prune",
		Short: "Run or preview a SparsePruner pruning pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			if preview && apply {
				return apierr.InvalidArgument("toriadm: --preview and --apply are mutually exclusive")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			conn, err := opts.dial(ctx, targetPruner)
			if err != nil {
				return err
			}
			defer conn.Close()
			client := pb.NewPrunerClient(conn)

			if preview {
				resp, err := client.PreviewPruning(ctx, &pb.PreviewPruningRequest{
					Threshold:      threshold,
					TargetSparsity: targetSparsity,
				})
				if err != nil {
					return err
				}
				fmt.Printf("preview: %d/%d edges prunable (%.2f%%), estimated quality impact %.6f\n",
					resp.PrunableEdges, resp.TotalEdges, resp.PrunablePercentage*100, resp.EstimatedQualityImpact)
				return nil
			}

			resp, err := client.TriggerPruning(ctx, &pb.TriggerPruningRequest{
				Threshold:      threshold,
				TargetSparsity: targetSparsity,
				DryRun:         dryRun,
				CreateBackup:   createBackup,
			})
			if err != nil {
				return err
			}
			fmt.Printf("pruning %s: %d edges pruned, quality impact %.6f (%s)\n",
				resp.PruningID, resp.EdgesPruned, resp.QualityImpact, resp.Message)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&preview, "preview", false, "Estimate the pruning pass without applying it.")
	f.BoolVar(&apply, "apply", false, "Apply the pruning pass (default when neither flag is given).")
	f.BoolVar(&dryRun, "dry-run", false, "Compute the edge diff but don't commit it to W.")
	f.BoolVar(&createBackup, "create-backup", true, "Snapshot W before applying, enabling revert-prune.")
	f.Float64Var(&threshold, "threshold", 0, "Edge weight magnitude below which an edge is prunable (0 uses the configured default).")
	f.Float64Var(&targetSparsity, "target-sparsity", 0, "Target fraction of edges to prune (0 uses the configured default).")
	return cmd
}
