package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sim "github.com/inference-sim/dispatch-sim/sim"
	"github.com/inference-sim/dispatch-sim/sim/trace"
	"github.com/inference-sim/dispatch-sim/sim/workload"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const syntheticSpec = `
version: "1"
seed: 7
num_jobs: 30
arrival:
  process: poisson
  rate: 1.5
service:
  type: exponential
  mean: 1.0
`

func TestLoadJobs_JobFile(t *testing.T) {
	// GIVEN a job file with a comment and three jobs
	path := writeFile(t, "jobs.txt", "# arrival processing\n0 5\n1 5\n2 5\n")

	// WHEN it is loaded
	jobs, err := loadJobs(jobSource{jobsFile: path}, 42, false)

	// THEN the jobs come back in file order
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, 2.0, jobs[2].ArrivalTime)
	assert.Equal(t, 5.0, jobs[2].ProcessingTime)
}

func TestLoadJobs_WorkloadSpec_SeedOverride(t *testing.T) {
	path := writeFile(t, "workload.yaml", syntheticSpec)
	src := jobSource{specFile: path}

	base, err := loadJobs(src, 42, false)
	require.NoError(t, err)
	same, err := loadJobs(src, 100, false)
	require.NoError(t, err)
	other, err := loadJobs(src, 100, true)
	require.NoError(t, err)

	require.Len(t, base, 30)
	require.Len(t, other, 30)
	assert.Equal(t, base[5].ArrivalTime, same[5].ArrivalTime, "unset seed keeps the workload seed")

	differs := false
	for i := range base {
		if base[i].ArrivalTime != other[i].ArrivalTime {
			differs = true
			break
		}
	}
	assert.True(t, differs, "explicit seed must change the synthetic workload")
}

func TestLoadJobs_Scenario(t *testing.T) {
	jobs, err := loadJobs(jobSource{scenario: "periodic", numJobs: 4, rate: 2}, 1, false)
	require.NoError(t, err)
	require.Len(t, jobs, 4)
	assert.Equal(t, 1.5, jobs[3].ArrivalTime)

	_, err = loadJobs(jobSource{scenario: "nope", numJobs: 4, rate: 2}, 1, false)
	assert.ErrorContains(t, err, "unknown scenario")
}

func TestLoadJobs_Replay_ReproducesRun(t *testing.T) {
	// GIVEN results exported from a two-server run
	cfg := sim.DefaultConfig()
	cfg.NumServers = 2
	jobs, err := loadJobs(jobSource{scenario: "steady", numJobs: 25, rate: 1.5}, 3, false)
	require.NoError(t, err)
	m := runSimulation(cfg, jobs, io.Discard)
	prefix := filepath.Join(t.TempDir(), "run")
	require.NoError(t, exportResults(prefix, cfg, m, jobs))

	// WHEN the CSV is replayed under the same configuration
	replayed, err := loadJobs(jobSource{replayFile: prefix + ".csv"}, 0, false)
	require.NoError(t, err)
	again := runSimulation(cfg, replayed, io.Discard)

	// THEN the outcome is identical
	assert.Equal(t, m.MeanWait, again.MeanWait)
	assert.Equal(t, m.Makespan, again.Makespan)

	results, err := workload.LoadResults(prefix+".yaml", prefix+".csv")
	require.NoError(t, err)
	assert.Equal(t, "fast-forward", results.Header.Mode)
	assert.Equal(t, 2, results.Header.NumServers)
	assert.Equal(t, m.MeanWait, results.Header.MeanWait)
}

func TestLoadJobs_SourceErrors(t *testing.T) {
	_, err := loadJobs(jobSource{}, 42, false)
	assert.ErrorContains(t, err, "no job source")

	_, err = loadJobs(jobSource{jobsFile: "a.txt", specFile: "b.yaml"}, 42, false)
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = loadJobs(jobSource{jobsFile: filepath.Join(t.TempDir(), "missing.txt")}, 42, false)
	assert.Error(t, err)
}

func TestBuildConfig_FromFlagDefaults(t *testing.T) {
	// GIVEN the registered flag defaults
	cfg := buildConfig()

	// THEN they form a valid fast-forward configuration
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, sim.PolicyRoundRobin, cfg.Policy)
	assert.False(t, cfg.RealTime)
	assert.Equal(t, trace.TraceLevelNone, cfg.TraceLevel)
}

func TestRunSimulation_PrintsMetrics(t *testing.T) {
	// GIVEN the single-server scenario
	cfg := sim.DefaultConfig()
	jobs := []*sim.Job{sim.NewJob(0, 0, 5), sim.NewJob(1, 1, 5), sim.NewJob(2, 2, 5)}
	var out bytes.Buffer

	// WHEN the run completes
	m := runSimulation(cfg, jobs, &out)

	// THEN the report shows the average wait
	assert.Equal(t, 4.0, m.MeanWait)
	assert.Contains(t, out.String(), "=== Simulation Metrics ===")
	assert.Contains(t, out.String(), "Average Wait         : 4.000")
	assert.NotContains(t, out.String(), "=== Dispatch Trace ===")
}

func TestRunSimulation_TraceSummary(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.NumServers = 2
	cfg.TraceLevel = trace.TraceLevelDecisions
	jobs := []*sim.Job{sim.NewJob(0, 0, 1), sim.NewJob(1, 1, 1), sim.NewJob(2, 2, 1)}
	var out bytes.Buffer

	runSimulation(cfg, jobs, &out)

	assert.Contains(t, out.String(), "=== Dispatch Trace ===")
	assert.Contains(t, out.String(), "Decisions            : 3")
	assert.Contains(t, out.String(), "server 0   dispatched=2")
	assert.Contains(t, out.String(), "server 1   dispatched=1")
}

func TestRunSimulation_Visualize_OneLinePerRepaint(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.NumServers = 2
	cfg.Visualize = true
	jobs := []*sim.Job{sim.NewJob(0, 0, 1), sim.NewJob(1, 1, 1)}
	var out bytes.Buffer

	runSimulation(cfg, jobs, &out)

	var status []string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "[t=") {
			status = append(status, line)
		}
	}
	require.Len(t, status, 3)
	assert.Contains(t, status[0], "s0:1q/1.00w")
	assert.Contains(t, status[2], "drained")
}

func TestRunSimulation_NoJobs_ReportsNA(t *testing.T) {
	var out bytes.Buffer
	m := runSimulation(sim.DefaultConfig(), nil, &out)
	assert.Equal(t, 0, m.JobsHandled)
	assert.Contains(t, out.String(), "n/a")
}
