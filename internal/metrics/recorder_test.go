package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_CountsAndLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.OnSpawn(0, nil, 2*time.Millisecond)
	r.OnSpawn(1, nil, 4*time.Millisecond)
	r.OnSpawn(2, nil, 6*time.Millisecond)
	r.OnSpawnError(3, errors.New("exec format error"))
	r.OnSleep(time.Second)
	r.OnWait()
	r.OnKill(0, nil, nil)
	r.OnKill(1, nil, errors.New("operation not permitted"))

	snap := r.Snapshot()
	assert.Equal(t, int64(3), snap.Spawned)
	assert.Equal(t, int64(1), snap.SpawnFailures)
	assert.Equal(t, int64(1), snap.Killed)
	assert.Equal(t, int64(1), snap.KillFailures)
	assert.Equal(t, int64(1), snap.Running)

	assert.Equal(t, int64(3), snap.SpawnLatency.Count)
	assert.InDelta(t, 2*time.Millisecond, snap.SpawnLatency.Min, float64(10*time.Microsecond))
	assert.InDelta(t, 6*time.Millisecond, snap.SpawnLatency.Max, float64(10*time.Microsecond))
	assert.InDelta(t, 4*time.Millisecond, snap.SpawnLatency.P50, float64(10*time.Microsecond))

	assert.Equal(t, 3.0, testutil.ToFloat64(r.prom.spawned))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.prom.spawnFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.prom.killed))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.prom.killFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.prom.running))
	assert.Equal(t, 1, testutil.CollectAndCount(r.prom.spawnSeconds))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)
}

func TestRecorder_EmptySnapshot(t *testing.T) {
	r, err := NewRecorder(nil)
	require.NoError(t, err)

	snap := r.Snapshot()
	assert.Zero(t, snap.Spawned)
	assert.Zero(t, snap.SpawnLatency.Count)
	assert.Zero(t, snap.SpawnLatency.Max)
}

func TestRecorder_ClampsLatency(t *testing.T) {
	r, err := NewRecorder(nil)
	require.NoError(t, err)

	r.OnSpawn(0, nil, 0)
	r.OnSpawn(1, nil, time.Hour)

	snap := r.Snapshot()
	assert.Equal(t, time.Microsecond, snap.SpawnLatency.Min)
	assert.InDelta(t, 10*time.Minute, snap.SpawnLatency.Max, float64(time.Second))
}

func TestNewRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)

	_, err = NewRecorder(reg)
	assert.Error(t, err)
}
