// Package metrics accounts for spawned and killed instances.
//
// A Recorder keeps an HDR histogram of spawn latency for the end-of-run
// summary and mirrors every event into Prometheus collectors so a long
// running launch can be scraped.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wesleyorama2/swarm/internal/launcher"
)

// Histogram range in microseconds: 1µs to 10 minutes, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 600_000_000
	histogramSigFigs = 3
)

// LatencyStats summarizes spawn latency.
type LatencyStats struct {
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P90   time.Duration `json:"p90"`
	P99   time.Duration `json:"p99"`
	Count int64         `json:"count"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Spawned       int64
	SpawnFailures int64
	Killed        int64
	KillFailures  int64
	Running       int64
	SpawnLatency  LatencyStats
}

// Recorder implements launcher.Hooks.
//
// Recorder is safe for concurrent use.
type Recorder struct {
	hist   *hdrhistogram.Histogram
	histMu sync.Mutex

	spawned       atomic.Int64
	spawnFailures atomic.Int64
	killed        atomic.Int64
	killFailures  atomic.Int64

	prom *collectors
}

var _ launcher.Hooks = (*Recorder)(nil)

type collectors struct {
	spawned       prometheus.Counter
	spawnFailures prometheus.Counter
	killed        prometheus.Counter
	killFailures  prometheus.Counter
	running       prometheus.Gauge
	spawnSeconds  prometheus.Histogram
}

// NewRecorder creates a Recorder and registers its collectors with reg.
// A nil reg keeps the collectors unregistered.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	c := &collectors{
		spawned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarm_instances_spawned_total",
			Help: "Instances started successfully",
		}),
		spawnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarm_instance_spawn_failures_total",
			Help: "Instances that failed to start",
		}),
		killed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarm_instances_killed_total",
			Help: "Kill signals delivered to instances",
		}),
		killFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarm_instance_kill_failures_total",
			Help: "Kill signals that could not be delivered",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarm_instances_running",
			Help: "Instances started and not yet killed",
		}),
		spawnSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "swarm_instance_spawn_seconds",
			Help:    "Time taken to start one instance",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{
			c.spawned, c.spawnFailures, c.killed, c.killFailures, c.running, c.spawnSeconds,
		} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}

	return &Recorder{
		hist: hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
		prom: c,
	}, nil
}

// OnSpawn records a successful spawn.
func (r *Recorder) OnSpawn(_ int, _ launcher.Handle, took time.Duration) {
	r.recordLatency(took)
	r.spawned.Add(1)
	r.prom.spawned.Inc()
	r.prom.running.Inc()
	r.prom.spawnSeconds.Observe(took.Seconds())
}

// OnSpawnError records a failed spawn.
func (r *Recorder) OnSpawnError(int, error) {
	r.spawnFailures.Add(1)
	r.prom.spawnFailures.Inc()
}

func (r *Recorder) OnSleep(time.Duration) {}

func (r *Recorder) OnWait() {}

// OnKill records a kill. A failed kill still leaves the running count,
// since the launcher never retries.
func (r *Recorder) OnKill(_ int, _ launcher.Handle, err error) {
	r.prom.running.Dec()
	if err != nil {
		r.killFailures.Add(1)
		r.prom.killFailures.Inc()
		return
	}
	r.killed.Add(1)
	r.prom.killed.Inc()
}

func (r *Recorder) recordLatency(d time.Duration) {
	micros := d.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}

	// RecordValue is not thread-safe.
	r.histMu.Lock()
	_ = r.hist.RecordValue(micros)
	r.histMu.Unlock()
}

// Snapshot returns the current counters and latency summary.
func (r *Recorder) Snapshot() Snapshot {
	r.histMu.Lock()
	lat := LatencyStats{Count: r.hist.TotalCount()}
	if lat.Count > 0 {
		lat.Min = time.Duration(r.hist.Min()) * time.Microsecond
		lat.Max = time.Duration(r.hist.Max()) * time.Microsecond
		lat.Mean = time.Duration(r.hist.Mean()) * time.Microsecond
		lat.P50 = time.Duration(r.hist.ValueAtQuantile(50)) * time.Microsecond
		lat.P90 = time.Duration(r.hist.ValueAtQuantile(90)) * time.Microsecond
		lat.P99 = time.Duration(r.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	r.histMu.Unlock()

	spawned := r.spawned.Load()
	killed := r.killed.Load()
	killFailures := r.killFailures.Load()

	return Snapshot{
		Spawned:       spawned,
		SpawnFailures: r.spawnFailures.Load(),
		Killed:        killed,
		KillFailures:  killFailures,
		Running:       spawned - killed - killFailures,
		SpawnLatency:  lat,
	}
}
