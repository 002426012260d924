// Defines the Job struct that models a single unit of work in the simulation.
// Tracks arrival time, processing requirement, remaining work and the server it was dispatched to.

package sim

import (
	"fmt"
	"sort"

	"github.com/markphelps/optional"
	"github.com/pkg/errors"
)

// ErrInvalidWorkAmount is returned by ApplyWork when the amount is negative or
// exceeds the job's remaining time. Servers treat it as fatal.
var ErrInvalidWorkAmount = errors.New("invalid work amount")

// Job models a single job's lifecycle in the simulation.
// ArrivalTime and ProcessingTime are fixed at construction; only the owning
// Server mutates the remaining time and service timestamps.
type Job struct {
	ID             int     // Position of the job in the input sequence
	ArrivalTime    float64 // Simulated instant the job enters the system
	ProcessingTime float64 // Total service requirement

	StartTime      float64 // Instant service began (valid once Started)
	CompletionTime float64 // Instant the job finished (valid once IsComplete)

	remaining float64
	started   bool
	server    optional.Int // Index of the server the job was dispatched to; set once
}

// NewJob creates a Job whose remaining time equals its processing time.
func NewJob(id int, arrival, processing float64) *Job {
	return &Job{
		ID:             id,
		ArrivalTime:    arrival,
		ProcessingTime: processing,
		remaining:      processing,
	}
}

// Remaining returns the unfinished processing time.
func (j *Job) Remaining() float64 {
	return j.remaining
}

// IsComplete reports whether all processing time has been applied.
func (j *Job) IsComplete() bool {
	return j.remaining == 0
}

// Started reports whether a server has begun serving the job.
func (j *Job) Started() bool {
	return j.started
}

// ApplyWork decrements the remaining time by amount.
// Returns an error wrapping ErrInvalidWorkAmount if amount < 0 or amount > Remaining().
func (j *Job) ApplyWork(amount float64) error {
	if amount < 0 || amount > j.remaining {
		return errors.Wrapf(ErrInvalidWorkAmount, "job %d: amount %v, remaining %v", j.ID, amount, j.remaining)
	}
	j.remaining -= amount
	if j.remaining < 0 {
		j.remaining = 0
	}
	return nil
}

// AssignedServer returns the index of the server the job was dispatched to.
func (j *Job) AssignedServer() (int, bool) {
	idx, err := j.server.Get()
	if err != nil {
		return 0, false
	}
	return idx, true
}

// WaitTime returns the time the job spent queued before service started.
// Zero for jobs that have not started.
func (j *Job) WaitTime() float64 {
	if !j.started {
		return 0
	}
	return j.StartTime - j.ArrivalTime
}

// SojournTime returns the time from arrival to completion.
// Zero for jobs that have not completed.
func (j *Job) SojournTime() float64 {
	if !j.IsComplete() || !j.started {
		return 0
	}
	return j.CompletionTime - j.ArrivalTime
}

// assign records the dispatch target. A job is dispatched exactly once.
func (j *Job) assign(server int) {
	if j.server.Present() {
		prev, _ := j.server.Get()
		panic(fmt.Sprintf("Job.assign: job %d already assigned to server %d", j.ID, prev))
	}
	j.server = optional.NewInt(server)
}

// start stamps the service start instant.
func (j *Job) start(at float64) {
	j.started = true
	j.StartTime = at
}

func (j Job) String() string {
	return fmt.Sprintf("Job: (ID: %d, Arrival: %v, Processing: %v, Remaining: %v)", j.ID, j.ArrivalTime, j.ProcessingTime, j.remaining)
}

// SortByArrival orders jobs by arrival time. Ties keep input order.
func SortByArrival(jobs []*Job) {
	sort.SliceStable(jobs, func(a, b int) bool {
		return jobs[a].ArrivalTime < jobs[b].ArrivalTime
	})
}
