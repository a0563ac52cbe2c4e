package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// reapTimeout bounds how long Kill waits for an instance's output pipes to
// close after the process is gone.
const reapTimeout = 2 * time.Second

// ExecSpawner starts instances as OS processes.
//
// Each instance runs in its own process group, and Kill terminates the
// whole group. On Linux and macOS the instance is additionally supervised
// so that it dies with the launcher.
//
// Instances inherit the launcher's stdout and stderr unless overridden.
// Stdin is never shared: the operator gate owns the terminal.
type ExecSpawner struct {
	// Dir is the working directory of every instance. Empty means the
	// launcher's own directory.
	Dir string

	// Stdout and Stderr default to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Spawn starts argv and returns without waiting for the instance to become
// ready. The context is not bound to the process lifetime; instances live
// until Kill is called.
func (s *ExecSpawner) Spawn(_ context.Context, argv []string) (Handle, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command line")
	}
	if err := s.checkExecutable(argv[0]); err != nil {
		return nil, err
	}

	cmd, err := newCommand(argv[0], argv[1:]...)
	if err != nil {
		return nil, err
	}
	cmd.Dir = s.Dir
	cmd.Stdout = s.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.WaitDelay = reapTimeout
	setProcGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &process{cmd: cmd, kill: killProcGroup}, nil
}

// checkExecutable resolves name the way the instance will, so a missing
// binary fails the spawn instead of the supervised child.
func (s *ExecSpawner) checkExecutable(name string) error {
	if strings.ContainsRune(name, filepath.Separator) && !filepath.IsAbs(name) && s.Dir != "" {
		name = filepath.Join(s.Dir, name)
	}
	if _, err := lookPath(name); err != nil {
		return fmt.Errorf("instance command: %w", err)
	}
	return nil
}

// process is a Handle backed by an exec.Cmd.
type process struct {
	cmd  *exec.Cmd
	kill func(*os.Process) error
}

// Pid returns the pid of the process group leader. Under a supervisor that
// is the supervisor, not the instance itself.
func (p *process) Pid() int {
	return p.cmd.Process.Pid
}

// Kill sends SIGKILL (or the platform equivalent) to the instance's process
// group and reaps it. An instance that already exited is not an error.
func (p *process) Kill() error {
	err := p.kill(p.cmd.Process)
	if errors.Is(err, os.ErrProcessDone) {
		err = nil
	}
	if err != nil {
		// The instance may still be running; waiting would block the
		// remaining kills.
		return err
	}

	// The exit status is of no interest; Wait only releases the process.
	_ = p.cmd.Wait()
	return nil
}
