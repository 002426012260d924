// Tracks simulation-wide and per-server statistics such as:
// waiting-time distribution, sojourn time, processed work and utilization.

package sim

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ServerMetrics aggregates one server's completed work.
type ServerMetrics struct {
	ID            int
	JobsHandled   int
	JobsCompleted int
	ProcessedWork float64
	TotalWait     float64
	Utilization   float64 // ProcessedWork / Makespan
}

// Metrics aggregates statistics about a simulation for final reporting.
// Values are well-defined mid-run (partial) and final once the run is drained.
type Metrics struct {
	Policy        string
	JobsHandled   int
	JobsCompleted int
	Makespan      float64 // system time at collection

	MeanWait    float64 // NaN when no job has been handled
	StdDevWait  float64
	P50Wait     float64
	P95Wait     float64
	MaxWait     float64
	MeanSojourn float64

	Servers []ServerMetrics
}

// CollectMetrics builds a Metrics snapshot from the dispatcher's current state.
func CollectMetrics(d *Dispatcher) *Metrics {
	m := &Metrics{
		Policy:      d.PolicyName(),
		JobsHandled: d.NumJobsHandled(),
		Makespan:    d.SystemTime(),
		MeanWait:    d.AverageWaitingTime(),
	}

	var waits, sojourns []float64
	for _, s := range d.Servers() {
		processed := s.Processed()
		sm := ServerMetrics{
			ID:            s.ID,
			JobsHandled:   s.JobsHandled(),
			JobsCompleted: len(processed),
			ProcessedWork: s.ProcessedWork(),
			TotalWait:     s.TotalWait(),
		}
		if m.Makespan > 0 {
			sm.Utilization = sm.ProcessedWork / m.Makespan
		}
		for _, j := range processed {
			waits = append(waits, j.WaitTime())
			sojourns = append(sojourns, j.SojournTime())
		}
		m.JobsCompleted += sm.JobsCompleted
		m.Servers = append(m.Servers, sm)
	}

	if len(waits) > 0 {
		sort.Float64s(waits)
		if len(waits) > 1 {
			m.StdDevWait = stat.StdDev(waits, nil)
		}
		m.P50Wait = stat.Quantile(0.5, stat.Empirical, waits, nil)
		m.P95Wait = stat.Quantile(0.95, stat.Empirical, waits, nil)
		m.MaxWait = waits[len(waits)-1]
		m.MeanSojourn = stat.Mean(sojourns, nil)
	}
	return m
}

// TotalProcessedWork sums processed work across servers.
// Once drained it equals the total processing time of all dispatched jobs.
func (m *Metrics) TotalProcessedWork() float64 {
	total := 0.0
	for _, s := range m.Servers {
		total += s.ProcessedWork
	}
	return total
}

// Print writes a fixed-width report of the metrics to w.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Policy               : %s\n", m.Policy)
	fmt.Fprintf(w, "Jobs Handled         : %d\n", m.JobsHandled)
	fmt.Fprintf(w, "Jobs Completed       : %d\n", m.JobsCompleted)
	fmt.Fprintf(w, "Makespan             : %.3f\n", m.Makespan)
	if m.JobsHandled == 0 || math.IsNaN(m.MeanWait) {
		fmt.Fprintln(w, "Average Wait         : n/a")
		return
	}
	fmt.Fprintf(w, "Average Wait         : %.3f\n", m.MeanWait)
	fmt.Fprintf(w, "Wait StdDev          : %.3f\n", m.StdDevWait)
	fmt.Fprintf(w, "Wait p50 / p95 / max : %.3f / %.3f / %.3f\n", m.P50Wait, m.P95Wait, m.MaxWait)
	fmt.Fprintf(w, "Average Sojourn      : %.3f\n", m.MeanSojourn)
	fmt.Fprintln(w, "--- Servers ---")
	for _, s := range m.Servers {
		fmt.Fprintf(w, "server %-3d handled=%-5d completed=%-5d work=%-10.3f wait=%-10.3f util=%.2f\n",
			s.ID, s.JobsHandled, s.JobsCompleted, s.ProcessedWork, s.TotalWait, s.Utilization)
	}
}
