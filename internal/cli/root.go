package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/swarm/internal/launcher"
)

var version = "0.1.0"

// env holds the process-level collaborators of a launch so tests can
// substitute them.
type env struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	spawner  func(dir string) launcher.Spawner
	sleep    func(time.Duration)
	newRunID func() string
	signals  []os.Signal
}

func defaultEnv() env {
	return env{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		spawner: func(dir string) launcher.Spawner {
			return &launcher.ExecSpawner{Dir: dir}
		},
		sleep:    time.Sleep,
		newRunID: func() string { return uuid.NewString() },
		signals:  shutdownSignals,
	}
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = newRootCmd(defaultEnv())

func newRootCmd(e env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "swarm <props-path> <instance-count> <delay-seconds>",
		Short:   "Launch a swarm of load-generator instances and stop them on demand",
		Version: version,
		Long: `swarm starts <instance-count> copies of a load generator (by default the
JGroups UPerf benchmark) with "-props <props-path> -nohup", waits
<delay-seconds>, then stops every instance when Enter is pressed.

  swarm conf/netty.xml 4 10

Instances join the cluster in the order they start; when a node comes up
before the others it may form its own cluster view. Use --stagger to space
the spawns out.

A launch profile changes the command used for each instance:

  swarm --config swarm.yaml --profile netty conf/netty.xml 4 10`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := ParseArgs(args)
			if err != nil {
				return err
			}
			return runLaunch(cmd, e, inv)
		},
	}

	cmd.SetIn(e.stdin)
	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)

	cmd.Flags().StringP("config", "c", "", "Launch profile file (YAML or JSON)")
	cmd.Flags().StringP("profile", "p", "", "Profile name inside the config file")
	cmd.Flags().Duration("stagger", 0, "Pause between consecutive spawns (e.g. 500ms)")
	cmd.Flags().Bool("keep-going", false, "Keep spawning after an instance fails to start")
	cmd.Flags().StringP("output", "o", "", "Write a JSON launch report to this file")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while instances run")
	cmd.Flags().BoolP("quiet", "q", false, "Only print the prompt, failures and the summary")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().BoolP("verbose", "v", false, "Print the instance command line")

	return cmd
}

// Execute runs the root command and reports any error on stderr.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(RootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
