package sim

import "container/heap"

// Alertable is notified by a TimeCheck when a registered alert comes due.
type Alertable interface {
	Alert(due float64)
}

// alert is a pending callback registered with a TimeCheck.
type alert struct {
	due    float64
	seq    uint64 // insertion order, breaks ties between equal due times
	target Alertable
}

// AlertHeap implements a priority queue with deterministic ordering.
// Ordering: due time → insertion sequence
type AlertHeap struct {
	alerts  []alert
	nextSeq uint64
}

// NewAlertHeap creates a new alert heap
func NewAlertHeap() *AlertHeap {
	h := &AlertHeap{
		alerts: make([]alert, 0),
	}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *AlertHeap) Len() int {
	return len(h.alerts)
}

// Less implements heap.Interface with deterministic ordering
func (h *AlertHeap) Less(i, j int) bool {
	ai, aj := h.alerts[i], h.alerts[j]
	if ai.due != aj.due {
		return ai.due < aj.due
	}
	return ai.seq < aj.seq
}

// Swap implements heap.Interface
func (h *AlertHeap) Swap(i, j int) {
	h.alerts[i], h.alerts[j] = h.alerts[j], h.alerts[i]
}

// Push implements heap.Interface
func (h *AlertHeap) Push(x interface{}) {
	h.alerts = append(h.alerts, x.(alert))
}

// Pop implements heap.Interface
func (h *AlertHeap) Pop() interface{} {
	old := h.alerts
	n := len(old)
	item := old[n-1]
	old[n-1] = alert{}
	h.alerts = old[0 : n-1]
	return item
}

// Schedule adds an alert to the heap, stamping it with the next insertion sequence.
func (h *AlertHeap) Schedule(due float64, target Alertable) {
	heap.Push(h, alert{due: due, seq: h.nextSeq, target: target})
	h.nextSeq++
}

// PopNext removes and returns the earliest alert.
func (h *AlertHeap) PopNext() (float64, Alertable, bool) {
	if h.Len() == 0 {
		return 0, nil, false
	}
	a := heap.Pop(h).(alert)
	return a.due, a.target, true
}

// PeekDue returns the due time of the earliest alert without removing it.
func (h *AlertHeap) PeekDue() (float64, bool) {
	if h.Len() == 0 {
		return 0, false
	}
	return h.alerts[0].due, true
}
