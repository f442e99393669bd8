package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tori/consolidation/internal/apierr"
)

// newStartCmd launches the supervisor binary in the foreground, forwarding
// its stdio and exit code, so operators have one entrypoint for both
// bringing the pipeline up and administering it afterward.
func newStartCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the pipeline's four services via the supervisor",
		RunE: func(cmd *cobra.Command, args []string) error {
			bin := supervisorPath()
			child := exec.CommandContext(cmd.Context(), bin)
			child.Env = append(os.Environ(), "CONFIG_PATH="+opts.configPath)
			child.Stdin = os.Stdin
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr
			if err := child.Run(); err != nil {
				return apierr.Internal(err, "toriadm: supervisor exited with an error")
			}
			return nil
		},
	}
	return cmd
}

func supervisorPath() string {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "supervisor")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "supervisor"
}
