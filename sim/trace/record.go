// Package trace provides dispatch decision recording for policy analysis.
// It has no dependencies on sim/ and stores plain data types.
package trace

// DispatchRecord captures a single dispatch policy decision.
// QueueLengths and RemainingWork describe every server immediately before the
// job was enqueued, indexed by server.
type DispatchRecord struct {
	JobID         int
	Clock         float64 // system time when the decision was made
	Arrival       float64
	ChosenServer  int
	Policy        string
	QueueLengths  []int
	RemainingWork []float64
}
