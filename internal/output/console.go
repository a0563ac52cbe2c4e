package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/wesleyorama2/swarm/internal/launcher"
	"github.com/wesleyorama2/swarm/internal/metrics"
)

const (
	ruleWidth = 56
	rule      = "━"
)

// Prompt is shown before waiting for the operator.
const Prompt = "Press Enter to stop all instances..."

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	// Writer receives progress lines. Defaults to os.Stdout.
	Writer io.Writer

	// ErrWriter receives failures. Defaults to os.Stderr.
	ErrWriter io.Writer

	// Quiet suppresses per-instance lines. The prompt and failures are
	// always printed.
	Quiet bool

	// NoColor disables colors; ForceColors enables them on non-terminals.
	NoColor     bool
	ForceColors bool
}

// Console prints launch progress for the operator. It implements
// launcher.Hooks.
type Console struct {
	w       io.Writer
	errW    io.Writer
	scheme  *ColorScheme
	noColor bool
	quiet   bool

	mu sync.Mutex
}

var _ launcher.Hooks = (*Console)(nil)

// NewConsole creates a new console output handler.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.ErrWriter == nil {
		cfg.ErrWriter = os.Stderr
	}

	useColors := cfg.ForceColors || (!cfg.NoColor && isTerminal(cfg.Writer) && supportsColors())

	scheme := NoColorScheme()
	if useColors {
		scheme = ForcedColorScheme()
	}

	return &Console{
		w:       cfg.Writer,
		errW:    cfg.ErrWriter,
		scheme:  scheme,
		noColor: !useColors,
		quiet:   cfg.Quiet,
	}
}

// PrintBanner announces the launch. argv is shown when non-nil.
func (c *Console) PrintBanner(props string, instances int, argv []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := strings.Repeat(rule, ruleWidth)
	c.writeln(c.w, c.scheme.Header.Sprint(line))
	c.writeln(c.w, fmt.Sprintf("Launching %s instance(s) with %s",
		c.scheme.Highlight.Sprint(instances), c.scheme.Value.Sprint(props)))
	c.writeln(c.w, c.scheme.Header.Sprint(line))
	if argv != nil {
		c.writeln(c.w, c.scheme.Label.Sprint("Command: ")+c.scheme.Dim.Sprint(strings.Join(argv, " ")))
	}
}

// OnSpawn reports a started instance.
func (c *Console) OnSpawn(index int, h launcher.Handle, took time.Duration) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(c.w, fmt.Sprintf("  %s instance %d started (pid %s, %s)",
		SuccessIcon(c.noColor), index+1, c.scheme.Value.Sprint(h.Pid()), formatDurationShort(took)))
}

// OnSpawnError reports an instance that failed to start.
func (c *Console) OnSpawnError(index int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(c.errW, fmt.Sprintf("  %s instance %d failed to start: %s",
		ErrorIcon(c.noColor), index+1, c.scheme.Error.Sprint(err)))
}

// OnSleep reports the settle delay.
func (c *Console) OnSleep(d time.Duration) {
	if c.quiet || d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(c.w, fmt.Sprintf("Waiting %s before accepting input", c.scheme.Value.Sprint(formatDuration(d))))
}

// OnWait prints the prompt without a trailing newline.
func (c *Console) OnWait() {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.w, c.scheme.Highlight.Sprint(Prompt)+" ")
}

// OnKill reports a killed instance. Failures are warnings: the launcher
// does not retry.
func (c *Console) OnKill(index int, h launcher.Handle, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.writeln(c.errW, fmt.Sprintf("  %s instance %d (pid %d) could not be killed: %s",
			WarningIcon(c.noColor), index+1, h.Pid(), c.scheme.Warning.Sprint(err)))
		return
	}
	if c.quiet {
		return
	}
	c.writeln(c.w, fmt.Sprintf("  %s instance %d killed (pid %d)", SuccessIcon(c.noColor), index+1, h.Pid()))
}

// PrintSummary prints the end-of-run totals.
func (c *Console) PrintSummary(res *launcher.Result, snap metrics.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.scheme.Success.Sprint("Stopped " + SuccessIcon(true))
	if res.Interrupted {
		status = c.scheme.Warning.Sprint("Interrupted")
	}
	if snap.SpawnFailures > 0 || snap.KillFailures > 0 {
		status = c.scheme.Error.Sprint("Completed with failures " + ErrorIcon(true))
	}

	line := strings.Repeat(rule, ruleWidth)
	c.writeln(c.w, "")
	c.writeln(c.w, c.scheme.Header.Sprint(line))
	c.writeln(c.w, "swarm - "+status)
	c.writeln(c.w, c.scheme.Header.Sprint(line))

	c.writeln(c.w, fmt.Sprintf("Duration:       %s", c.scheme.Value.Sprint(formatDuration(res.FinishedAt.Sub(res.StartedAt)))))
	c.writeln(c.w, fmt.Sprintf("Started:        %s", c.scheme.Value.Sprint(res.Started())))
	if snap.SpawnFailures > 0 {
		c.writeln(c.w, fmt.Sprintf("Failed:         %s", c.scheme.Error.Sprint(snap.SpawnFailures)))
	}
	c.writeln(c.w, fmt.Sprintf("Killed:         %s", c.scheme.Value.Sprint(snap.Killed)))
	if snap.KillFailures > 0 {
		c.writeln(c.w, fmt.Sprintf("Kill failures:  %s", c.scheme.Warning.Sprint(snap.KillFailures)))
	}

	if snap.SpawnLatency.Count > 0 {
		c.writeln(c.w, "")
		c.writeln(c.w, c.scheme.Label.Sprint("Spawn latency:"))
		c.writeln(c.w, fmt.Sprintf("  Min:  %s", formatDurationShort(snap.SpawnLatency.Min)))
		c.writeln(c.w, fmt.Sprintf("  P50:  %s", formatDurationShort(snap.SpawnLatency.P50)))
		c.writeln(c.w, fmt.Sprintf("  P99:  %s", formatDurationShort(snap.SpawnLatency.P99)))
		c.writeln(c.w, fmt.Sprintf("  Max:  %s", formatDurationShort(snap.SpawnLatency.Max)))
	}
}

// PrintReportPath tells the operator where the report was written.
func (c *Console) PrintReportPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeln(c.w, fmt.Sprintf("Report: %s", path))
}

// PrintMetricsAddr tells the operator where metrics are served.
func (c *Console) PrintMetricsAddr(addr string) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeln(c.w, fmt.Sprintf("Metrics: http://%s/metrics", addr))
}

func (c *Console) writeln(w io.Writer, s string) {
	fmt.Fprintln(w, s)
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}

// formatDurationShort formats a duration in a short format.
func formatDurationShort(d time.Duration) string {
	if d < time.Microsecond {
		return "0ms"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}
