// Command toriadm is the operator CLI for the TORI consolidation pipeline:
// trigger consolidation and pruning cycles, inspect spectral modes, revert a
// pruning pass, and check service health, against any of V/S/P/K over RPC.
package main

import (
	"fmt"
	"os"

	"github.com/tori/consolidation/internal/apierr"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "toriadm:", err)
		os.Exit(apierr.ExitCode(err))
	}
}
