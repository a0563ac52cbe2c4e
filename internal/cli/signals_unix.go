//go:build !windows

package cli

import (
	"os"
	"syscall"
)

// shutdownSignals interrupt the wait for the operator. SIGHUP covers a
// closed terminal.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
