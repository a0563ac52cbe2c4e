//go:build windows

package launcher

import (
	"os"
	"os/exec"
)

// setProcGroup is a no-op on Windows, which has no Unix-style process groups.
func setProcGroup(cmd *exec.Cmd) {}

func killProcGroup(p *os.Process) error {
	return p.Kill()
}
