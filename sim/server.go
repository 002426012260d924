// Implements the Server, a single FIFO work processor with its own queue and statistics.
// A Server advances either synchronously (fast-forward, via AdvanceTo) or on its own
// goroutine driven by elapsed-time updates from a Clock (real-time, via Start).

package sim

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"
)

// ServerSnapshot is a point-in-time view of a Server for policies, renderers and traces.
type ServerSnapshot struct {
	ID            int
	QueueLength   int
	RemainingWork float64
	CurrentTime   float64
	Processed     int
	ProcessedWork float64
	TotalWait     float64
	Running       bool
}

// Server owns one job queue and serves it strictly in enqueue order.
//
// Invariant: remainingWork equals the sum of Remaining() over queued jobs.
// It is maintained incrementally on Enqueue and on every work application.
//
// Thread-safety: every method is safe for concurrent use. One mutex per server
// guards its queue and statistics, so independent servers never contend.
type Server struct {
	ID    int
	clock Clock

	mu            sync.Mutex
	work          *sync.Cond // signalled on enqueue and stop
	idle          *sync.Cond // broadcast when the queue empties
	queue         JobQueue
	currentTime   float64
	remainingWork float64
	totalWait     float64
	processed     []*Job
	processedWork float64
	jobsHandled   int

	running     bool // goroutine is serving a non-empty queue
	initialized bool // goroutine mode launched
	stopped     bool
	updates     chan float64
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewServer creates an idle server reading time from clock.
func NewServer(id int, clock Clock) *Server {
	if clock == nil {
		panic("NewServer: clock must not be nil")
	}
	s := &Server{
		ID:    id,
		clock: clock,
	}
	s.work = sync.NewCond(&s.mu)
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Enqueue appends j to the queue, records this server on the job and wakes the
// serving goroutine if it is parked. The queue is unbounded.
func (s *Server) Enqueue(j *Job) {
	if j == nil {
		panic("Server.Enqueue: job must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	j.assign(s.ID)
	s.queue.Enqueue(j)
	s.remainingWork += j.ProcessingTime
	s.jobsHandled++
	s.work.Signal()
}

// AdvanceTo serves queued jobs up to time t, then sets the server's time to t.
// A t earlier than the current time is a no-op.
func (s *Server) AdvanceTo(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked(t)
}

// Drain serves every queued job to completion. The server's time ends at the
// last completion instant.
func (s *Server) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serveLocked(math.Inf(1))
}

// Observe implements Subscriber. In real-time mode the update is handed to the
// serving goroutine, replacing any unconsumed one; otherwise the server advances
// synchronously.
func (s *Server) Observe(now float64) {
	s.mu.Lock()
	ch := s.updates
	s.mu.Unlock()

	if ch == nil {
		s.AdvanceTo(now)
		return
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- now:
	default:
	}
}

// Start subscribes the server to its clock and launches its serving goroutine.
// The goroutine parks while the queue is empty and serves the head job against
// the clock's elapsed-time updates otherwise. No-op if already started.
func (s *Server) Start() {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.updates = make(chan float64, 1)
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.clock.Subscribe(s)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runContinuously()
	}()
}

// Stop ends the serving goroutine and unsubscribes from the clock.
// Queued work is left in place.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.initialized || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.work.Broadcast()
	s.mu.Unlock()

	s.wg.Wait()
	s.clock.Unsubscribe(s)
}

// WaitIdle blocks until the queue is empty.
func (s *Server) WaitIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.queue.Len() > 0 {
		s.idle.Wait()
	}
}

func (s *Server) runContinuously() {
	for {
		s.mu.Lock()
		for s.queue.Len() == 0 && !s.stopped {
			s.running = false
			s.work.Wait()
		}
		if s.stopped {
			s.running = false
			s.mu.Unlock()
			return
		}
		s.running = true
		s.mu.Unlock()

		select {
		case <-s.stopCh:
		case now := <-s.updates:
			s.mu.Lock()
			s.advanceLocked(now)
			s.mu.Unlock()
		}
	}
}

// advanceLocked serves up to t and fills any remaining idle span.
// Must be called with s.mu held.
func (s *Server) advanceLocked(t float64) {
	if t < s.currentTime {
		return
	}
	s.serveLocked(t)
	if s.currentTime < t {
		s.currentTime = t
	}
}

// serveLocked applies work to head jobs in FIFO order until t is reached or the
// queue empties. A job starts at max(currentTime, arrival); its wait is recorded
// at that instant. Must be called with s.mu held.
func (s *Server) serveLocked(t float64) {
	for s.queue.Len() > 0 {
		head := s.queue.Peek()
		if head.ArrivalTime > s.currentTime {
			if head.ArrivalTime > t {
				break
			}
			s.currentTime = head.ArrivalTime
		}
		if !head.Started() {
			head.start(s.currentTime)
			s.totalWait += s.currentTime - head.ArrivalTime
		}

		work := math.Min(head.Remaining(), t-s.currentTime)
		if work > 0 {
			if err := head.ApplyWork(work); err != nil {
				logrus.Panicf("Server %d: %v", s.ID, err)
			}
			s.remainingWork -= work
			s.currentTime += work
		}
		if !head.IsComplete() {
			break
		}

		s.queue.Dequeue()
		head.CompletionTime = s.currentTime
		s.processed = append(s.processed, head)
		s.processedWork += head.ProcessingTime
		logrus.Debugf("<< Server %d completed job %d at %.3f", s.ID, head.ID, s.currentTime)
	}

	if s.queue.Len() == 0 {
		s.remainingWork = 0
		s.idle.Broadcast()
	}
}

// RemainingWork returns the unfinished work across queued jobs in O(1).
func (s *Server) RemainingWork() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingWork
}

// QueueLength returns the number of queued jobs, including the one in service.
func (s *Server) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Processed returns a copy of the completed jobs in completion order.
func (s *Server) Processed() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, len(s.processed))
	copy(out, s.processed)
	return out
}

// ProcessedWork returns the processing time of all completed jobs.
func (s *Server) ProcessedWork() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processedWork
}

// TotalWait returns the accumulated waiting time of jobs that have started service.
func (s *Server) TotalWait() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalWait
}

// CurrentTime returns the server's time cursor.
func (s *Server) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTime
}

// JobsHandled returns the number of jobs ever enqueued on this server.
func (s *Server) JobsHandled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobsHandled
}

// Running reports whether the serving goroutine is working a non-empty queue.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Elapsed returns the clock time since this server subscribed.
func (s *Server) Elapsed() float64 {
	return s.clock.Elapsed(s)
}

// Snapshot returns a consistent view of the server's state.
func (s *Server) Snapshot() ServerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ServerSnapshot{
		ID:            s.ID,
		QueueLength:   s.queue.Len(),
		RemainingWork: s.remainingWork,
		CurrentTime:   s.currentTime,
		Processed:     len(s.processed),
		ProcessedWork: s.processedWork,
		TotalWait:     s.totalWait,
		Running:       s.running,
	}
}
