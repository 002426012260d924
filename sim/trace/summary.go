package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions     int
	UniqueServers      int
	ServerDistribution map[int]int // server index → count of jobs dispatched
	MeanQueueAtPick    float64     // mean queue length of the chosen server before enqueue
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ServerDistribution: make(map[int]int),
	}
	records := st.Dispatches()
	if len(records) == 0 {
		return summary
	}

	summary.TotalDecisions = len(records)
	totalQueue := 0
	for _, r := range records {
		summary.ServerDistribution[r.ChosenServer]++
		if r.ChosenServer >= 0 && r.ChosenServer < len(r.QueueLengths) {
			totalQueue += r.QueueLengths[r.ChosenServer]
		}
	}
	summary.MeanQueueAtPick = float64(totalQueue) / float64(len(records))
	summary.UniqueServers = len(summary.ServerDistribution)

	return summary
}
