//go:build (linux || darwin) && (amd64 || arm64)

package launcher

import (
	"fmt"
	"os/exec"

	superexec "github.com/alecthomas/exec"
)

// newCommand starts name under a small supervisor that terminates it when
// the launcher dies, even if the launcher is killed before it can run its
// own kill phase. The returned Cmd's process is the supervisor.
func newCommand(name string, arg ...string) (cmd *exec.Cmd, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("preparing instance supervisor: %v", r)
		}
	}()
	return superexec.Command(name, arg...), nil
}

func lookPath(file string) (string, error) {
	return superexec.LookPath(file)
}
