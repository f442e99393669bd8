package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tori/consolidation/pb"
)

func newKCLStatusCmd(opts *rootOptions) *cobra.Command {
	var maxModes uint32

	cmd := &cobra.Command{
		Use:   "kcl-status",
		Short: "List the KoopmanLearner's current spectral modes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			conn, err := opts.dial(ctx, targetKoopman)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := pb.NewKoopmanClient(conn).GetSpectralModes(ctx, &pb.GetSpectralModesRequest{MaxModes: maxModes})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODE\tEIGENVALUE\tSTABILITY\tLAST SEEN")
			for _, m := range resp.Modes {
				fmt.Fprintf(w, "%s\t%.4f%+.4fi\t%.4f\t%d\n", m.ModeID, m.EigenvalueRe, m.EigenvalueIm, m.Stability, m.LastSeenAt)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().Uint32Var(&maxModes, "max-modes", 0, "Cap the number of modes returned (0 returns all).")
	return cmd
}
