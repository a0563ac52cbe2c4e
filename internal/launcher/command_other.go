//go:build !((linux || darwin) && (amd64 || arm64))

package launcher

import "os/exec"

// newCommand starts name directly. No supervisor binary exists for this
// platform, so instances outlive a launcher that dies before its kill phase.
func newCommand(name string, arg ...string) (*exec.Cmd, error) {
	return exec.Command(name, arg...), nil
}

func lookPath(file string) (string, error) {
	return exec.LookPath(file)
}
