package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/inference-sim/dispatch-sim/sim"
	"github.com/inference-sim/dispatch-sim/sim/trace"
	"github.com/inference-sim/dispatch-sim/sim/workload"
)

var (
	// CLI flags for the server pool and dispatch
	numServers  int     // Number of servers in the pool
	policy      string  // Dispatch policy name
	realTime    bool    // Run against the wall clock instead of fast-forward
	visualize   bool    // Print a status line on every repaint
	seed        int64   // Seed for the random policy and synthetic workloads
	logLevel    string  // Log verbosity level
	repaintRate float64 // Max repaints per second, 0 = unlimited
	configPath  string  // YAML run config, overridden by explicit flags

	// CLI flags for job input (exactly one source)
	jobsPath     string  // Plain-text job file, one "arrival processing" pair per line
	workloadPath string  // YAML workload spec
	replayPath   string  // Results CSV from an earlier run
	scenario     string  // Built-in scenario preset
	numJobs      int     // Jobs generated by --scenario
	arrivalRate  float64 // Jobs per time unit for --scenario

	// CLI flags for real-time runs
	timeUnit    time.Duration // Wall time of one simulated unit
	tickFloor   time.Duration // Smallest alert-loop interval
	tickCeiling time.Duration // Largest alert-loop interval

	traceLevel    string // Decision trace level
	resultsPrefix string // Write <prefix>.yaml and <prefix>.csv after the run
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "dispatch-sim",
	Short: "Discrete-event simulator for multi-server job dispatch",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Dispatch a job sequence across a server pool and report waiting times",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := buildConfig()
		var rc *RunConfig
		if configPath != "" {
			rc, err = loadRunConfig(configPath)
			if err != nil {
				logrus.Fatalf("Unable to load run config: %v", err)
			}
			if err := rc.apply(&cfg, cmd.Flags().Changed); err != nil {
				logrus.Fatalf("Invalid run config: %v", err)
			}
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		src := jobSource{
			jobsFile:   jobsPath,
			specFile:   workloadPath,
			replayFile: replayPath,
			scenario:   scenario,
			numJobs:    numJobs,
			rate:       arrivalRate,
		}
		// the workload seed follows the run seed only when one was given explicitly
		seedSet := cmd.Flags().Changed("seed") || (rc != nil && rc.Seed != nil)
		jobs, err := loadJobs(src, cfg.Seed, seedSet)
		if err != nil {
			logrus.Fatalf("Unable to load jobs: %v", err)
		}

		startTime := time.Now()
		m := runSimulation(cfg, jobs, os.Stdout)
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))

		if resultsPrefix != "" {
			if err := exportResults(resultsPrefix, cfg, m, jobs); err != nil {
				logrus.Fatalf("Unable to write results: %v", err)
			}
			logrus.Infof("Results written to %s.yaml and %s.csv", resultsPrefix, resultsPrefix)
		}
	},
}

// jobSource names where the run's jobs come from. Exactly one of jobsFile,
// specFile, replayFile and scenario must be set.
type jobSource struct {
	jobsFile   string
	specFile   string
	replayFile string
	scenario   string
	numJobs    int
	rate       float64
}

// buildConfig assembles a sim.Config from the CLI flags.
func buildConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.NumServers = numServers
	cfg.Policy = policy
	cfg.RealTime = realTime
	cfg.Visualize = visualize
	cfg.Seed = seed
	cfg.TimeUnit = timeUnit
	cfg.Tick.Floor = tickFloor
	cfg.Tick.Ceiling = tickCeiling
	cfg.RepaintRate = repaintRate
	cfg.TraceLevel = trace.TraceLevel(traceLevel)
	return cfg
}

// loadJobs reads or generates the job sequence. Synthetic workloads use their
// own seed unless seedSet, in which case seed replaces it. Scenarios always use seed.
func loadJobs(src jobSource, seed int64, seedSet bool) ([]*sim.Job, error) {
	set := 0
	for _, s := range []string{src.jobsFile, src.specFile, src.replayFile, src.scenario} {
		if s != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return nil, errors.New("no job source: set one of --jobs, --workload, --replay or --scenario")
	case set > 1:
		return nil, errors.New("--jobs, --workload, --replay and --scenario are mutually exclusive")
	}

	switch {
	case src.jobsFile != "":
		return workload.LoadJobFile(src.jobsFile)
	case src.replayFile != "":
		rows, err := workload.LoadResultRows(src.replayFile)
		if err != nil {
			return nil, err
		}
		return workload.ReplayJobs(rows), nil
	case src.scenario != "":
		spec, err := workload.NewScenario(src.scenario, seed, src.rate, src.numJobs)
		if err != nil {
			return nil, err
		}
		return workload.GenerateJobs(spec)
	default:
		spec, err := workload.LoadWorkloadSpec(src.specFile)
		if err != nil {
			return nil, err
		}
		if seedSet {
			logrus.Infof("CLI seed %d overrides workload seed %d", seed, spec.Seed)
			spec.Seed = seed
		}
		return workload.GenerateJobs(spec)
	}
}

// runSimulation builds a Dispatcher, runs it over jobs and writes the report to out.
func runSimulation(cfg sim.Config, jobs []*sim.Job, out io.Writer) *sim.Metrics {
	d := sim.NewDispatcher(cfg, nil)
	if cfg.Visualize {
		d.SetRenderer(newTextRenderer(out))
	}

	logrus.Infof("Dispatching %d jobs over %d servers (policy=%s, realtime=%v)",
		len(jobs), cfg.NumServers, d.PolicyName(), cfg.RealTime)
	d.HandleJobs(jobs)

	m := sim.CollectMetrics(d)
	m.Print(out)
	if d.Trace().Enabled() {
		printTraceSummary(out, trace.Summarize(d.Trace()))
	}
	return m
}

// exportResults writes <prefix>.yaml (run header) and <prefix>.csv (one row per job).
func exportResults(prefix string, cfg sim.Config, m *sim.Metrics, jobs []*sim.Job) error {
	header := &workload.ResultsHeader{
		Version:    1,
		Mode:       "fast-forward",
		Policy:     m.Policy,
		NumServers: cfg.NumServers,
		Seed:       cfg.Seed,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Makespan:   m.Makespan,
	}
	if cfg.RealTime {
		header.Mode = "real-time"
		header.TimeUnit = cfg.TimeUnit.String()
	}
	if m.JobsHandled > 0 {
		header.MeanWait = m.MeanWait
	}
	return workload.ExportResults(header, workload.NewJobResults(jobs), prefix+".yaml", prefix+".csv")
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Dispatch Trace ===")
	fmt.Fprintf(w, "Decisions            : %d\n", s.TotalDecisions)
	fmt.Fprintf(w, "Servers Used         : %d\n", s.UniqueServers)
	fmt.Fprintf(w, "Mean Queue At Pick   : %.3f\n", s.MeanQueueAtPick)
	ids := make([]int, 0, len(s.ServerDistribution))
	for id := range s.ServerDistribution {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "server %-3d dispatched=%d\n", id, s.ServerDistribution[id])
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	def := sim.DefaultConfig()

	runCmd.Flags().IntVar(&numServers, "servers", def.NumServers, "Number of servers in the pool")
	runCmd.Flags().StringVar(&policy, "policy", def.Policy, fmt.Sprintf("Dispatch policy %v", sim.ValidDispatchPolicyNames()))
	runCmd.Flags().BoolVar(&realTime, "realtime", false, "Run against the wall clock instead of fast-forward")
	runCmd.Flags().BoolVar(&visualize, "visualize", false, "Print server state after each assignment")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the random policy and synthetic workloads")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().Float64Var(&repaintRate, "repaint-rate", 0, "Max repaints per second with --visualize (0 = unlimited)")
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run config; explicit flags take precedence")

	// Job input
	runCmd.Flags().StringVar(&jobsPath, "jobs", "", "Job file: one \"arrival processing\" pair per line")
	runCmd.Flags().StringVar(&workloadPath, "workload", "", "YAML workload spec (explicit jobs or synthetic generator)")
	runCmd.Flags().StringVar(&replayPath, "replay", "", "Results CSV of an earlier run to replay")
	runCmd.Flags().StringVar(&scenario, "scenario", "", fmt.Sprintf("Built-in scenario %v", workload.ScenarioNames()))
	runCmd.Flags().IntVar(&numJobs, "num-jobs", 100, "Number of jobs generated by --scenario")
	runCmd.Flags().Float64Var(&arrivalRate, "rate", 1.0, "Jobs per time unit for --scenario")

	// Real-time timing
	runCmd.Flags().DurationVar(&timeUnit, "time-unit", def.TimeUnit, "Wall time of one simulated time unit (--realtime)")
	runCmd.Flags().DurationVar(&tickFloor, "tick-floor", def.Tick.Floor, "Smallest alert-loop interval (--realtime)")
	runCmd.Flags().DurationVar(&tickCeiling, "tick-ceiling", def.Tick.Ceiling, "Largest alert-loop interval (--realtime)")

	runCmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Dispatch trace level (none, decisions)")
	runCmd.Flags().StringVar(&resultsPrefix, "results", "", "Write <prefix>.yaml and <prefix>.csv with per-job results")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
