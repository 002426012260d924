package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sim "github.com/inference-sim/dispatch-sim/sim"
	"github.com/inference-sim/dispatch-sim/sim/trace"
)

func noneChanged(string) bool { return false }

func TestLoadRunConfig_AppliesFileValues(t *testing.T) {
	// GIVEN a run config overriding most settings
	path := writeFile(t, "run.yaml", `
servers: 4
policy: least-work
realtime: true
seed: 9
time_unit: 10ms
tick_floor: 2ms
tick_ceiling: 20ms
repaint_rate: 5
trace_level: decisions
`)

	// WHEN it is loaded and applied over the defaults
	rc, err := loadRunConfig(path)
	require.NoError(t, err)
	cfg := sim.DefaultConfig()
	require.NoError(t, rc.apply(&cfg, noneChanged))

	// THEN every field is taken from the file and the result is valid
	assert.Equal(t, 4, cfg.NumServers)
	assert.Equal(t, sim.PolicyLeastWork, cfg.Policy)
	assert.True(t, cfg.RealTime)
	assert.False(t, cfg.Visualize)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, 10*time.Millisecond, cfg.TimeUnit)
	assert.Equal(t, 2*time.Millisecond, cfg.Tick.Floor)
	assert.Equal(t, 20*time.Millisecond, cfg.Tick.Ceiling)
	assert.Equal(t, 5.0, cfg.RepaintRate)
	assert.Equal(t, trace.TraceLevelDecisions, cfg.TraceLevel)
	assert.NoError(t, cfg.Validate())
}

func TestRunConfig_ChangedFlagsWin(t *testing.T) {
	// GIVEN a file setting servers and policy
	path := writeFile(t, "run.yaml", "servers: 4\npolicy: least-work\ntime_unit: 5ms\n")
	rc, err := loadRunConfig(path)
	require.NoError(t, err)

	// AND the user passed --servers and --time-unit explicitly
	cfg := sim.DefaultConfig()
	cfg.NumServers = 2
	cfg.TimeUnit = time.Second
	changed := func(flag string) bool { return flag == "servers" || flag == "time-unit" }

	// WHEN applied
	require.NoError(t, rc.apply(&cfg, changed))

	// THEN the explicit flags are kept and the rest comes from the file
	assert.Equal(t, 2, cfg.NumServers)
	assert.Equal(t, time.Second, cfg.TimeUnit)
	assert.Equal(t, sim.PolicyLeastWork, cfg.Policy)
}

func TestLoadRunConfig_UnknownField_Rejected(t *testing.T) {
	path := writeFile(t, "run.yaml", "servers: 2\nserver_count: 3\n")
	_, err := loadRunConfig(path)
	assert.Error(t, err)
}

func TestRunConfig_BadDuration_ReturnsError(t *testing.T) {
	path := writeFile(t, "run.yaml", "time_unit: fast\n")
	rc, err := loadRunConfig(path)
	require.NoError(t, err)

	cfg := sim.DefaultConfig()
	err = rc.apply(&cfg, noneChanged)
	assert.ErrorContains(t, err, "time-unit")
}

func TestLoadRunConfig_MissingFile_ReturnsError(t *testing.T) {
	_, err := loadRunConfig("does-not-exist.yaml")
	assert.Error(t, err)
}
