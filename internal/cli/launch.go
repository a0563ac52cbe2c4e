package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/swarm/internal/config"
	"github.com/wesleyorama2/swarm/internal/launcher"
	"github.com/wesleyorama2/swarm/internal/metrics"
	"github.com/wesleyorama2/swarm/internal/output"
	"github.com/wesleyorama2/swarm/internal/report"
)

// launchOptions are the flag values of the root command.
type launchOptions struct {
	configFile  string
	profile     string
	stagger     time.Duration
	staggerSet  bool
	keepGoing   bool
	outputPath  string
	metricsAddr string
	quiet       bool
	noColor     bool
	verbose     bool
}

func readOptions(cmd *cobra.Command) launchOptions {
	f := cmd.Flags()
	var o launchOptions
	o.configFile, _ = f.GetString("config")
	o.profile, _ = f.GetString("profile")
	o.stagger, _ = f.GetDuration("stagger")
	o.staggerSet = f.Changed("stagger")
	o.keepGoing, _ = f.GetBool("keep-going")
	o.outputPath, _ = f.GetString("output")
	o.metricsAddr, _ = f.GetString("metrics-addr")
	o.quiet, _ = f.GetBool("quiet")
	o.noColor, _ = f.GetBool("no-color")
	o.verbose, _ = f.GetBool("verbose")
	return o
}

// loadProfile returns the profile named by the options, with flag
// overrides applied.
func loadProfile(o launchOptions) (*config.Profile, error) {
	var (
		p   *config.Profile
		err error
	)
	if o.configFile != "" {
		p, err = config.LoadProfile(o.configFile, o.profile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		if o.profile != "" {
			return nil, fmt.Errorf("--profile %q requires --config", o.profile)
		}
		p = config.DefaultProfile()
	}

	if o.staggerSet {
		p.Stagger = config.Duration(o.stagger)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// runLaunch wires a Launcher to the console, metrics and report, runs it
// and prints the summary.
func runLaunch(cmd *cobra.Command, e env, inv Invocation) error {
	opts := readOptions(cmd)

	profile, err := loadProfile(opts)
	if err != nil {
		return err
	}
	argv := profile.Argv(inv.Props)

	console := output.NewConsole(output.ConsoleConfig{
		Writer:    e.stdout,
		ErrWriter: e.stderr,
		Quiet:     opts.quiet,
		NoColor:   opts.noColor,
	})

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	l, err := launcher.New(launcher.Config{
		Argv:      argv,
		Instances: inv.Instances,
		Delay:     inv.Delay,
		Stagger:   time.Duration(profile.Stagger),
		KeepGoing: opts.keepGoing,
	},
		e.spawner(profile.WorkDir),
		promptGate{Gate: launcher.NewLineGate(e.stdin), w: e.stdout},
		launcher.WithHooks(launcher.MultiHooks{recorder, console}),
		launcher.WithSleep(e.sleep),
	)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if len(e.signals) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, e.signals...)
		defer stop()
	}

	if opts.metricsAddr != "" {
		srv, err := metrics.Listen(opts.metricsAddr, reg)
		if err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		serveCtx, cancelServe := context.WithCancel(context.Background())
		served := make(chan struct{})
		go func() {
			defer close(served)
			if err := srv.Serve(serveCtx); err != nil {
				fmt.Fprintf(e.stderr, "metrics server: %v\n", err)
			}
		}()
		defer func() {
			cancelServe()
			<-served
		}()
		console.PrintMetricsAddr(srv.Addr())
	}

	var shownArgv []string
	if opts.verbose {
		shownArgv = argv
	}
	console.PrintBanner(inv.Props, inv.Instances, shownArgv)

	res, runErr := l.Run(ctx)

	snap := recorder.Snapshot()
	console.PrintSummary(res, snap)

	if opts.outputPath != "" {
		rep := report.Build(report.Meta{
			RunID:     e.newRunID(),
			Profile:   profile.Name,
			Props:     inv.Props,
			Argv:      argv,
			Requested: inv.Instances,
			Delay:     inv.Delay,
		}, res, snap)
		if err := report.Write(rep, opts.outputPath); err != nil {
			fmt.Fprintf(e.stderr, "Error writing report: %v\n", err)
		} else {
			console.PrintReportPath(opts.outputPath)
		}
	}

	return runErr
}

// promptGate ends the prompt line when the wait fails or is interrupted,
// since no newline was echoed by the terminal.
type promptGate struct {
	launcher.Gate
	w io.Writer
}

func (g promptGate) Wait(ctx context.Context) error {
	err := g.Gate.Wait(ctx)
	if err != nil {
		fmt.Fprintln(g.w)
	}
	return err
}
