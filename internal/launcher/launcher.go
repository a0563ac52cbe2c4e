// Package launcher starts a fixed number of load-generator instances, waits
// for an operator signal and then kills every instance it started.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Handle is a started instance that can be terminated.
type Handle interface {
	// Pid returns the OS process id of the instance.
	Pid() int

	// Kill terminates the instance. It is called at most once per handle.
	Kill() error
}

// Spawner starts one instance for the given command line.
type Spawner interface {
	Spawn(ctx context.Context, argv []string) (Handle, error)
}

// Gate blocks until the operator asks to stop the instances.
//
// Wait returns nil when the operator released the gate, or the context
// error when the wait was interrupted.
type Gate interface {
	Wait(ctx context.Context) error
}

// Hooks receives notifications as a run progresses. Implementations must
// not block.
type Hooks interface {
	OnSpawn(index int, h Handle, took time.Duration)
	OnSpawnError(index int, err error)
	OnSleep(d time.Duration)
	OnWait()
	OnKill(index int, h Handle, err error)
}

// Config describes a single launch.
type Config struct {
	// Argv is the full command line of every instance.
	Argv []string

	// Instances is the number of instances to start.
	Instances int

	// Delay is how long to sleep after spawning, before opening the gate.
	Delay time.Duration

	// Stagger is an optional pause between consecutive spawns.
	Stagger time.Duration

	// KeepGoing continues the spawn loop after a spawn failure.
	KeepGoing bool
}

// Instance records what happened to one instance during a run.
type Instance struct {
	Index        int
	Pid          int
	SpawnLatency time.Duration
	SpawnErr     error
	KillErr      error
	Killed       bool
}

// Result is the outcome of a run.
type Result struct {
	StartedAt   time.Time
	FinishedAt  time.Time
	Instances   []Instance
	Interrupted bool
}

// Started returns the number of instances that were spawned successfully.
func (r *Result) Started() int {
	n := 0
	for _, inst := range r.Instances {
		if inst.SpawnErr == nil {
			n++
		}
	}
	return n
}

// Launcher drives one launch from spawn to kill.
//
// A Launcher is single-use and not safe for concurrent use.
type Launcher struct {
	cfg     Config
	spawner Spawner
	gate    Gate
	hooks   Hooks
	sleep   func(time.Duration)
	now     func() time.Time

	handles []tracked
}

// tracked pairs a live handle with its slot in the result.
type tracked struct {
	handle Handle
	slot   int
}

// Option customizes a Launcher.
type Option func(*Launcher)

// WithHooks sets the hooks notified during the run.
func WithHooks(h Hooks) Option {
	return func(l *Launcher) { l.hooks = h }
}

// WithSleep replaces time.Sleep for the post-spawn delay and the stagger.
func WithSleep(sleep func(time.Duration)) Option {
	return func(l *Launcher) { l.sleep = sleep }
}

// WithClock replaces time.Now for latency and timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Launcher) { l.now = now }
}

// New creates a Launcher.
func New(cfg Config, spawner Spawner, gate Gate, opts ...Option) (*Launcher, error) {
	if cfg.Instances < 0 {
		return nil, fmt.Errorf("instance count must be non-negative, got %d", cfg.Instances)
	}
	if cfg.Delay < 0 {
		return nil, fmt.Errorf("delay must be non-negative, got %s", cfg.Delay)
	}
	if cfg.Stagger < 0 {
		return nil, fmt.Errorf("stagger must be non-negative, got %s", cfg.Stagger)
	}
	if len(cfg.Argv) == 0 {
		return nil, errors.New("instance command line is empty")
	}
	if spawner == nil || gate == nil {
		return nil, errors.New("spawner and gate are required")
	}

	l := &Launcher{
		cfg:     cfg,
		spawner: spawner,
		gate:    gate,
		hooks:   NopHooks{},
		sleep:   time.Sleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run spawns the instances, sleeps for the configured delay, waits on the
// gate and kills every spawned instance in spawn order.
//
// The kill phase runs whether the gate was released or interrupted. When a
// spawn fails and KeepGoing is off, the instances started so far are killed
// and the spawn error is returned.
func (l *Launcher) Run(ctx context.Context) (*Result, error) {
	res := &Result{StartedAt: l.now()}
	defer func() { res.FinishedAt = l.now() }()

	if err := l.spawnAll(ctx, res); err != nil {
		l.killAll(res)
		return res, err
	}

	l.hooks.OnSleep(l.cfg.Delay)
	l.sleep(l.cfg.Delay)

	l.hooks.OnWait()
	waitErr := l.gate.Wait(ctx)
	l.killAll(res)

	switch {
	case waitErr == nil:
	case errors.Is(waitErr, context.Canceled), errors.Is(waitErr, context.DeadlineExceeded):
		res.Interrupted = true
	default:
		return res, fmt.Errorf("waiting for operator: %w", waitErr)
	}
	return res, nil
}

func (l *Launcher) spawnAll(ctx context.Context, res *Result) error {
	for i := 0; i < l.cfg.Instances; i++ {
		if i > 0 && l.cfg.Stagger > 0 {
			l.sleep(l.cfg.Stagger)
		}

		start := l.now()
		h, err := l.spawner.Spawn(ctx, l.cfg.Argv)
		took := l.now().Sub(start)

		inst := Instance{Index: i, SpawnLatency: took}
		if err != nil {
			inst.SpawnErr = err
			res.Instances = append(res.Instances, inst)
			l.hooks.OnSpawnError(i, err)
			if !l.cfg.KeepGoing {
				return fmt.Errorf("spawning instance %d: %w", i, err)
			}
			continue
		}

		inst.Pid = h.Pid()
		res.Instances = append(res.Instances, inst)
		l.handles = append(l.handles, tracked{handle: h, slot: len(res.Instances) - 1})
		l.hooks.OnSpawn(i, h, took)
	}
	return nil
}

// killAll kills every live handle once, in spawn order. A failing kill is
// recorded and never stops the loop.
func (l *Launcher) killAll(res *Result) {
	handles := l.handles
	l.handles = nil

	for _, t := range handles {
		err := t.handle.Kill()
		inst := &res.Instances[t.slot]
		inst.Killed = true
		inst.KillErr = err
		l.hooks.OnKill(inst.Index, t.handle, err)
	}
}

// NopHooks ignores every notification.
type NopHooks struct{}

func (NopHooks) OnSpawn(int, Handle, time.Duration) {}
func (NopHooks) OnSpawnError(int, error)            {}
func (NopHooks) OnSleep(time.Duration)              {}
func (NopHooks) OnWait()                            {}
func (NopHooks) OnKill(int, Handle, error)          {}

// MultiHooks fans notifications out to several Hooks in order.
type MultiHooks []Hooks

func (m MultiHooks) OnSpawn(index int, h Handle, took time.Duration) {
	for _, hk := range m {
		hk.OnSpawn(index, h, took)
	}
}

func (m MultiHooks) OnSpawnError(index int, err error) {
	for _, hk := range m {
		hk.OnSpawnError(index, err)
	}
}

func (m MultiHooks) OnSleep(d time.Duration) {
	for _, hk := range m {
		hk.OnSleep(d)
	}
}

func (m MultiHooks) OnWait() {
	for _, hk := range m {
		hk.OnWait()
	}
}

func (m MultiHooks) OnKill(index int, h Handle, err error) {
	for _, hk := range m {
		hk.OnKill(index, h, err)
	}
}
