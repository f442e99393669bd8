package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tori/consolidation/internal/apierr"
	"github.com/tori/consolidation/pb"
)

// newHealthCheckCmd checks a single service's HealthCheck RPC, formatted for
// scripting: one line, nonzero exit whenever the service can't be reached.
func newHealthCheckCmd(opts *rootOptions) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "health-check",
		Short: "Check one service's HealthCheck RPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			if service == "" {
				return apierr.InvalidArgument("toriadm: --service is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			status, err := checkOne(ctx, opts, serviceTarget(service))
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s %s\n", service, status.Status, status.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "Service to check: vault, scheduler, pruner, koopman.")
	return cmd
}

func checkOne(ctx context.Context, opts *rootOptions, t serviceTarget) (*pb.HealthStatus, error) {
	conn, err := opts.dial(ctx, t)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	status, err := pb.NewHealthClient(conn).HealthCheck(ctx, &pb.HealthRequest{})
	if err != nil {
		return nil, apierr.Unavailable("toriadm: %s health check failed: %v", t, err)
	}
	return status, nil
}
