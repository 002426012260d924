// Implements the Dispatcher, which owns the server pool and assigns every job
// to a server through an injected DispatchPolicy.
//
// Fast-forward: jobs are drained in arrival order on the caller's goroutine; the
// logical clock (and with it every server) jumps to each arrival before dispatch.
// Real-time: every arrival is registered as a TimeCheck alert; servers run on
// their own goroutines and the alert loop dispatches jobs as they come due.

package sim

import (
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/inference-sim/dispatch-sim/sim/trace"
)

// DispatcherState represents the lifecycle state of a Dispatcher.
type DispatcherState string

const (
	StateIdle     DispatcherState = "idle"
	StateDraining DispatcherState = "draining"
	StateDrained  DispatcherState = "drained"
)

// Dispatcher assigns jobs to a fixed pool of servers.
// A Dispatcher serves exactly one run; build a fresh one per simulation.
type Dispatcher struct {
	cfg        Config
	policy     DispatchPolicy
	policyName string
	servers    []*Server
	clock      Clock
	logical    *LogicalClock // fast-forward only
	timeCheck  *TimeCheck    // real-time only
	trace      *trace.SimulationTrace
	limiter    *rate.Limiter

	dispatchMu sync.Mutex // serializes policy selection and enqueue

	mu          sync.Mutex // guards the fields below
	state       DispatcherState
	systemTime  float64
	jobsHandled int
	pending     []*Job
	alertsLeft  int
	alertsDone  chan struct{}
	renderer    Renderer
}

// NewDispatcher creates cfg.NumServers idle servers and the clock matching cfg.RealTime.
// A nil policy is built from cfg.Policy and cfg.Seed.
// Panics if cfg is invalid.
func NewDispatcher(cfg Config, policy DispatchPolicy) *Dispatcher {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("NewDispatcher: %v", err))
	}
	if policy == nil {
		policy = NewDispatchPolicy(cfg.Policy, NewPartitionedRNG(NewSimulationKey(cfg.Seed)))
	}

	d := &Dispatcher{
		cfg:        cfg,
		policy:     policy,
		policyName: policyName(policy),
		state:      StateIdle,
		trace:      trace.NewSimulationTrace(cfg.TraceLevel),
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	if cfg.RepaintRate > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RepaintRate), 1)
	}

	if cfg.RealTime {
		d.timeCheck = NewTimeCheck(cfg.TimeUnit, cfg.Tick)
		d.clock = d.timeCheck
	} else {
		d.logical = NewLogicalClock()
		d.clock = d.logical
	}

	d.servers = make([]*Server, cfg.NumServers)
	for i := range d.servers {
		d.servers[i] = NewServer(i, d.clock)
		if d.logical != nil {
			d.logical.Subscribe(d.servers[i])
		}
	}
	return d
}

// SetRenderer installs the repaint hook. It is only invoked when cfg.Visualize is set.
func (d *Dispatcher) SetRenderer(r Renderer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renderer = r
}

// HandleJob dispatches a single job. In fast-forward mode every server is first
// advanced to the job's arrival; in real-time mode the clock already reflects
// wall time. The policy then picks a server and the job is enqueued there.
func (d *Dispatcher) HandleJob(job *Job) {
	d.dispatchMu.Lock()

	d.mu.Lock()
	if d.logical != nil {
		if job.ArrivalTime > d.systemTime {
			d.systemTime = job.ArrivalTime
		}
	} else if now := d.timeCheck.Now(); now > d.systemTime {
		d.systemTime = now
	}
	now := d.systemTime
	d.mu.Unlock()

	if d.logical != nil {
		d.logical.AdvanceTo(now)
	}

	var record trace.DispatchRecord
	if d.trace.Enabled() {
		record = d.decisionRecord(job, now)
	}

	idx := d.policy.PickServer(d.servers, job)
	if idx < 0 || idx >= len(d.servers) {
		logrus.Panicf("Dispatcher: policy %s picked server %d of %d", d.policyName, idx, len(d.servers))
	}
	d.servers[idx].Enqueue(job)

	d.mu.Lock()
	d.jobsHandled++
	d.mu.Unlock()

	if d.trace.Enabled() {
		record.ChosenServer = idx
		d.trace.RecordDispatch(record)
	}
	logrus.Debugf("<< Dispatch: job %d (arrival %.3f, processing %.3f) -> server %d at %.3f",
		job.ID, job.ArrivalTime, job.ProcessingTime, idx, now)

	d.dispatchMu.Unlock()
	d.repaint(false)
}

// HandleJobs runs the whole simulation over jobs and blocks until it is drained.
// Jobs may be supplied in any order; they are dispatched by arrival time, ties in
// input order. Panics if called more than once.
func (d *Dispatcher) HandleJobs(jobs []*Job) {
	d.mu.Lock()
	if d.state != StateIdle {
		d.mu.Unlock()
		panic(fmt.Sprintf("HandleJobs: dispatcher is %s; build a new Dispatcher per run", d.state))
	}
	d.state = StateDraining
	d.pending = make([]*Job, len(jobs))
	copy(d.pending, jobs)
	SortByArrival(d.pending)
	d.mu.Unlock()

	if d.cfg.RealTime {
		d.runRealTime()
	} else {
		d.runFastForward()
	}
}

func (d *Dispatcher) runFastForward() {
	logrus.Infof("Starting fast-forward run: %d jobs, %d servers, policy=%s",
		d.pendingLen(), len(d.servers), d.policyName)
	for {
		job := d.popPending()
		if job == nil {
			break
		}
		d.HandleJob(job)
	}
	d.finishUp()
}

// finishUp drains every server and aligns all of them on the latest completion.
func (d *Dispatcher) finishUp() {
	d.mu.Lock()
	base := d.systemTime
	d.mu.Unlock()

	end := base
	for _, s := range d.servers {
		if t := base + s.RemainingWork(); t > end {
			end = t
		}
	}
	for _, s := range d.servers {
		s.Drain()
		// float accumulation can put the last completion a hair past end
		if t := s.CurrentTime(); t > end {
			end = t
		}
	}
	d.logical.AdvanceTo(end)

	d.mu.Lock()
	d.systemTime = end
	d.state = StateDrained
	d.mu.Unlock()

	logrus.Infof("Fast-forward run drained at %.3f: %d jobs handled", end, d.NumJobsHandled())
	d.repaint(true)
}

func (d *Dispatcher) runRealTime() {
	for _, s := range d.servers {
		s.Start()
	}

	d.mu.Lock()
	jobs := make([]*Job, len(d.pending))
	copy(jobs, d.pending)
	d.alertsLeft = len(jobs)
	d.alertsDone = make(chan struct{})
	if d.alertsLeft == 0 {
		close(d.alertsDone)
	}
	done := d.alertsDone
	d.mu.Unlock()

	logrus.Infof("Starting real-time run: %d jobs, %d servers, policy=%s, unit=%v",
		len(jobs), len(d.servers), d.policyName, d.timeCheck.unit)
	for _, j := range jobs {
		d.timeCheck.RegisterAlert(j.ArrivalTime, d)
	}
	d.timeCheck.Start()

	<-done
	for _, s := range d.servers {
		s.WaitIdle()
	}
	d.timeCheck.Stop()
	for _, s := range d.servers {
		s.Stop()
	}

	d.mu.Lock()
	for _, s := range d.servers {
		if t := s.CurrentTime(); t > d.systemTime {
			d.systemTime = t
		}
	}
	d.state = StateDrained
	end := d.systemTime
	d.mu.Unlock()

	logrus.Infof("Real-time run drained at %.3f: %d jobs handled", end, d.NumJobsHandled())
	d.repaint(true)
}

// Alert implements Alertable. It pops the next pending job and dispatches it.
// Called by the TimeCheck alert loop when an arrival comes due.
func (d *Dispatcher) Alert(due float64) {
	job := d.popPending()
	if job == nil {
		logrus.Warnf("Dispatcher: alert at %.3f with no pending job", due)
		return
	}
	d.HandleJob(job)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.alertsLeft--
	if d.alertsLeft == 0 {
		close(d.alertsDone)
	}
}

func (d *Dispatcher) popPending() *Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return nil
	}
	job := d.pending[0]
	d.pending[0] = nil
	d.pending = d.pending[1:]
	return job
}

func (d *Dispatcher) pendingLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Dispatcher) decisionRecord(job *Job, now float64) trace.DispatchRecord {
	record := trace.DispatchRecord{
		JobID:         job.ID,
		Clock:         now,
		Arrival:       job.ArrivalTime,
		Policy:        d.policyName,
		QueueLengths:  make([]int, len(d.servers)),
		RemainingWork: make([]float64, len(d.servers)),
	}
	for i, s := range d.servers {
		snap := s.Snapshot()
		record.QueueLengths[i] = snap.QueueLength
		record.RemainingWork[i] = snap.RemainingWork
	}
	return record
}

func (d *Dispatcher) repaint(force bool) {
	if !d.cfg.Visualize {
		return
	}
	d.mu.Lock()
	r := d.renderer
	d.mu.Unlock()
	if r == nil {
		return
	}
	if !force && !d.limiter.Allow() {
		return
	}
	r.Repaint(d)
}

// AverageWaitingTime returns the mean wait across all dispatched jobs: the sum of
// every server's accumulated wait divided by the number of jobs handled.
// Returns NaN if no job has been handled; callers must check with math.IsNaN.
func (d *Dispatcher) AverageWaitingTime() float64 {
	handled := d.NumJobsHandled()
	if handled == 0 {
		return math.NaN()
	}
	total := 0.0
	for _, s := range d.servers {
		total += s.TotalWait()
	}
	return total / float64(handled)
}

// NumJobsHandled returns the number of jobs dispatched so far.
func (d *Dispatcher) NumJobsHandled() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.jobsHandled
}

// SystemTime returns the dispatcher's notion of simulated time.
// Non-decreasing over a run.
func (d *Dispatcher) SystemTime() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.systemTime
}

// State returns the lifecycle state.
func (d *Dispatcher) State() DispatcherState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Servers returns the server pool in index order.
func (d *Dispatcher) Servers() []*Server {
	out := make([]*Server, len(d.servers))
	copy(out, d.servers)
	return out
}

// Server returns the server at index i.
func (d *Dispatcher) Server(i int) *Server {
	return d.servers[i]
}

// Clock returns the time source shared by the dispatcher and its servers.
func (d *Dispatcher) Clock() Clock {
	return d.clock
}

// PolicyName returns the name of the dispatch policy in use.
func (d *Dispatcher) PolicyName() string {
	return d.policyName
}

// Trace returns the decision trace. Records are only kept at TraceLevelDecisions.
func (d *Dispatcher) Trace() *trace.SimulationTrace {
	return d.trace
}

// Snapshots returns a view of every server in index order.
func (d *Dispatcher) Snapshots() []ServerSnapshot {
	out := make([]ServerSnapshot, len(d.servers))
	for i, s := range d.servers {
		out[i] = s.Snapshot()
	}
	return out
}
