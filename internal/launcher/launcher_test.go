package launcher

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journal records the order of everything the launcher does.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type fakeHandle struct {
	pid     int
	j       *journal
	killErr error
	kills   int
}

func (h *fakeHandle) Pid() int { return h.pid }

func (h *fakeHandle) Kill() error {
	h.kills++
	h.j.add("kill:" + strconv.Itoa(h.pid))
	return h.killErr
}

type fakeSpawner struct {
	j        *journal
	argv     [][]string
	handles  []*fakeHandle
	failAt   map[int]error
	killErrs map[int]error
	calls    int
}

func (s *fakeSpawner) Spawn(_ context.Context, argv []string) (Handle, error) {
	idx := s.calls
	s.calls++
	s.argv = append(s.argv, argv)
	if err, ok := s.failAt[idx]; ok {
		s.j.add("spawn-fail:" + strconv.Itoa(idx))
		return nil, err
	}
	h := &fakeHandle{pid: 1000 + idx, j: s.j, killErr: s.killErrs[idx]}
	s.handles = append(s.handles, h)
	s.j.add("spawn:" + strconv.Itoa(h.pid))
	return h, nil
}

type fakeGate struct {
	j   *journal
	err error
}

func (g *fakeGate) Wait(context.Context) error {
	g.j.add("wait")
	return g.err
}

func newTestLauncher(t *testing.T, cfg Config, sp *fakeSpawner, gate Gate, j *journal) *Launcher {
	t.Helper()
	l, err := New(cfg, sp, gate, WithSleep(func(d time.Duration) {
		j.add("sleep:" + d.String())
	}))
	require.NoError(t, err)
	return l
}

func TestRun_SpawnSleepWaitKillOrder(t *testing.T) {
	j := &journal{}
	sp := &fakeSpawner{j: j}
	argv := []string{"java", "-props", "props.xml", "-nohup"}
	l := newTestLauncher(t, Config{Argv: argv, Instances: 3, Delay: 5 * time.Second}, sp, &fakeGate{j: j}, j)

	res, err := l.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"spawn:1000", "spawn:1001", "spawn:1002",
		"sleep:5s",
		"wait",
		"kill:1000", "kill:1001", "kill:1002",
	}, j.list())

	require.Len(t, sp.argv, 3)
	for _, a := range sp.argv {
		assert.Equal(t, argv, a)
	}
	assert.Equal(t, 3, res.Started())
	assert.False(t, res.Interrupted)
	for i, inst := range res.Instances {
		assert.Equal(t, i, inst.Index)
		assert.Equal(t, 1000+i, inst.Pid)
		assert.True(t, inst.Killed)
	}
}

func TestRun_ZeroInstances(t *testing.T) {
	j := &journal{}
	sp := &fakeSpawner{j: j}
	l := newTestLauncher(t, Config{Argv: []string{"java"}, Instances: 0, Delay: 2 * time.Second}, sp, &fakeGate{j: j}, j)

	res, err := l.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"sleep:2s", "wait"}, j.list())
	assert.Zero(t, sp.calls)
	assert.Empty(t, res.Instances)
}

func TestRun_KillsEvenWhenInterrupted(t *testing.T) {
	j := &journal{}
	sp := &fakeSpawner{j: j}
	gate := &fakeGate{j: j, err: context.Canceled}
	l := newTestLauncher(t, Config{Argv: []string{"java"}, Instances: 2}, sp, gate, j)

	res, err := l.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Interrupted)
	for _, h := range sp.handles {
		assert.Equal(t, 1, h.kills)
	}
}

func TestRun_GateErrorStillKills(t *testing.T) {
	j := &journal{}
	sp := &fakeSpawner{j: j}
	gate := &fakeGate{j: j, err: errors.New("read /dev/stdin: bad file descriptor")}
	l := newTestLauncher(t, Config{Argv: []string{"java"}, Instances: 2}, sp, gate, j)

	_, err := l.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waiting for operator")
	for _, h := range sp.handles {
		assert.Equal(t, 1, h.kills)
	}
}

func TestRun_KillFailureDoesNotSkipOthers(t *testing.T) {
	j := &journal{}
	sp := &fakeSpawner{j: j, killErrs: map[int]error{0: errors.New("no such process")}}
	l := newTestLauncher(t, Config{Argv: []string{"java"}, Instances: 3}, sp, &fakeGate{j: j}, j)

	res, err := l.Run(context.Background())
	require.NoError(t, err)

	for _, h := range sp.handles {
		assert.Equal(t, 1, h.kills)
	}
	assert.EqualError(t, res.Instances[0].KillErr, "no such process")
	assert.NoError(t, res.Instances[1].KillErr)
	assert.NoError(t, res.Instances[2].KillErr)
}

func TestRun_SpawnFailureAbortsAndCleansUp(t *testing.T) {
	j := &journal{}
	spawnErr := errors.New(`exec: "java": executable file not found in $PATH`)
	sp := &fakeSpawner{j: j, failAt: map[int]error{2: spawnErr}}
	l := newTestLauncher(t, Config{Argv: []string{"java"}, Instances: 4, Delay: time.Second}, sp, &fakeGate{j: j}, j)

	res, err := l.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, spawnErr)

	assert.Equal(t, []string{
		"spawn:1000", "spawn:1001", "spawn-fail:2",
		"kill:1000", "kill:1001",
	}, j.list())
	assert.Equal(t, 3, sp.calls)
	assert.Equal(t, 2, res.Started())
}

func TestRun_KeepGoingRecordsFailures(t *testing.T) {
	j := &journal{}
	sp := &fakeSpawner{j: j, failAt: map[int]error{1: errors.New("fork/exec: resource temporarily unavailable")}}
	cfg := Config{Argv: []string{"java"}, Instances: 3, KeepGoing: true}
	l := newTestLauncher(t, cfg, sp, &fakeGate{j: j}, j)

	res, err := l.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, sp.calls)
	assert.Equal(t, 2, res.Started())
	require.Len(t, res.Instances, 3)
	assert.Error(t, res.Instances[1].SpawnErr)
	assert.False(t, res.Instances[1].Killed)
	assert.Equal(t, []string{"kill:1000", "kill:1002"}, filterPrefix(j.list(), "kill:"))
}

func TestRun_StaggerBetweenSpawns(t *testing.T) {
	j := &journal{}
	sp := &fakeSpawner{j: j}
	cfg := Config{Argv: []string{"java"}, Instances: 3, Delay: 4 * time.Second, Stagger: 500 * time.Millisecond}
	l := newTestLauncher(t, cfg, sp, &fakeGate{j: j}, j)

	_, err := l.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"spawn:1000", "sleep:500ms", "spawn:1001", "sleep:500ms", "spawn:1002",
		"sleep:4s", "wait",
		"kill:1000", "kill:1001", "kill:1002",
	}, j.list())
}

func TestRun_HooksAndLatency(t *testing.T) {
	j := &journal{}
	sp := &fakeSpawner{j: j}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}
	rec := &recordingHooks{}

	l, err := New(Config{Argv: []string{"java"}, Instances: 2}, sp, &fakeGate{j: j},
		WithSleep(func(time.Duration) {}), WithClock(clock), WithHooks(MultiHooks{rec, NopHooks{}}))
	require.NoError(t, err)

	res, err := l.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"spawn:0", "spawn:1", "sleep", "wait", "kill:0", "kill:1"}, rec.calls)
	for _, inst := range res.Instances {
		assert.Equal(t, time.Millisecond, inst.SpawnLatency)
	}
	assert.True(t, res.FinishedAt.After(res.StartedAt))
}

func TestNew_Validation(t *testing.T) {
	sp := &fakeSpawner{j: &journal{}}
	gate := &fakeGate{j: &journal{}}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative instances", Config{Argv: []string{"java"}, Instances: -1}},
		{"negative delay", Config{Argv: []string{"java"}, Delay: -time.Second}},
		{"negative stagger", Config{Argv: []string{"java"}, Stagger: -time.Second}},
		{"empty argv", Config{Instances: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, sp, gate)
			assert.Error(t, err)
		})
	}

	_, err := New(Config{Argv: []string{"java"}}, nil, gate)
	assert.Error(t, err)
}

type recordingHooks struct {
	calls []string
}

func (r *recordingHooks) OnSpawn(i int, _ Handle, _ time.Duration) {
	r.calls = append(r.calls, "spawn:"+strconv.Itoa(i))
}
func (r *recordingHooks) OnSpawnError(i int, _ error) {
	r.calls = append(r.calls, "spawn-error:"+strconv.Itoa(i))
}
func (r *recordingHooks) OnSleep(time.Duration) { r.calls = append(r.calls, "sleep") }
func (r *recordingHooks) OnWait()               { r.calls = append(r.calls, "wait") }
func (r *recordingHooks) OnKill(i int, _ Handle, _ error) {
	r.calls = append(r.calls, "kill:"+strconv.Itoa(i))
}

func filterPrefix(events []string, prefix string) []string {
	var out []string
	for _, e := range events {
		if strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}
	return out
}
