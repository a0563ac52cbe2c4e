//go:build !windows

package launcher

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcGroup runs cmd in its own process group so that anything the
// instance forks can be killed with it.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcGroup sends SIGKILL to the process group led by p (negative PID).
func killProcGroup(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if err == syscall.ESRCH {
		return os.ErrProcessDone
	}
	return err
}
