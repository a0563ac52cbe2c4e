// Package report writes a JSON record of a launch.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wesleyorama2/swarm/internal/launcher"
	"github.com/wesleyorama2/swarm/internal/metrics"
)

// Report is the JSON document written after a launch.
type Report struct {
	RunID       string        `json:"runId"`
	Profile     string        `json:"profile"`
	Props       string        `json:"props"`
	Argv        []string      `json:"argv"`
	Requested   int           `json:"requested"`
	DelayMs     int64         `json:"delayMs"`
	StartedAt   time.Time     `json:"startedAt"`
	FinishedAt  time.Time     `json:"finishedAt"`
	Interrupted bool          `json:"interrupted"`
	Totals      Totals        `json:"totals"`
	Latency     LatencyMillis `json:"spawnLatencyMs"`
	Instances   []Instance    `json:"instances"`
}

// Totals counts instances by outcome.
type Totals struct {
	Spawned       int64 `json:"spawned"`
	SpawnFailures int64 `json:"spawnFailures"`
	Killed        int64 `json:"killed"`
	KillFailures  int64 `json:"killFailures"`
}

// LatencyMillis is a spawn latency summary in milliseconds.
type LatencyMillis struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
}

// Instance is one entry of the report.
type Instance struct {
	Index          int     `json:"index"`
	Pid            int     `json:"pid,omitempty"`
	SpawnLatencyMs float64 `json:"spawnLatencyMs"`
	SpawnError     string  `json:"spawnError,omitempty"`
	Killed         bool    `json:"killed"`
	KillError      string  `json:"killError,omitempty"`
}

// Meta describes the launch request.
type Meta struct {
	RunID     string
	Profile   string
	Props     string
	Argv      []string
	Requested int
	Delay     time.Duration
}

// Build assembles a report from a launch result and the metrics snapshot.
func Build(meta Meta, res *launcher.Result, snap metrics.Snapshot) *Report {
	r := &Report{
		RunID:       meta.RunID,
		Profile:     meta.Profile,
		Props:       meta.Props,
		Argv:        meta.Argv,
		Requested:   meta.Requested,
		DelayMs:     meta.Delay.Milliseconds(),
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
		Interrupted: res.Interrupted,
		Totals: Totals{
			Spawned:       int64(res.Started()),
			SpawnFailures: snap.SpawnFailures,
			Killed:        snap.Killed,
			KillFailures:  snap.KillFailures,
		},
		Latency: LatencyMillis{
			Min:  millis(snap.SpawnLatency.Min),
			Mean: millis(snap.SpawnLatency.Mean),
			P50:  millis(snap.SpawnLatency.P50),
			P90:  millis(snap.SpawnLatency.P90),
			P99:  millis(snap.SpawnLatency.P99),
			Max:  millis(snap.SpawnLatency.Max),
		},
		Instances: make([]Instance, 0, len(res.Instances)),
	}

	for _, inst := range res.Instances {
		entry := Instance{
			Index:          inst.Index,
			Pid:            inst.Pid,
			SpawnLatencyMs: millis(inst.SpawnLatency),
			Killed:         inst.Killed,
		}
		if inst.SpawnErr != nil {
			entry.SpawnError = inst.SpawnErr.Error()
		}
		if inst.KillErr != nil {
			entry.KillError = inst.KillErr.Error()
		}
		r.Instances = append(r.Instances, entry)
	}
	return r
}

// Write saves the report as indented JSON, creating parent directories.
func Write(r *Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
