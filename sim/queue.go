// Implements the JobQueue, which holds the jobs assigned to one server.
// Jobs are enqueued on dispatch and leave from the front on completion.

package sim

import (
	"fmt"
	"strings"
)

// JobQueue represents a FIFO queue of jobs owned by a single Server.
// The queue is not synchronized; the owning Server's mutex guards it.
type JobQueue struct {
	queue []*Job
}

// Enqueue adds a job to the back of the queue.
func (q *JobQueue) Enqueue(j *Job) {
	if j == nil {
		panic("Enqueue: job must not be nil")
	}
	q.queue = append(q.queue, j)
}

func (q *JobQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range q.queue {
		sb.WriteString(fmt.Sprint(val))
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of jobs in the queue.
func (q *JobQueue) Len() int {
	return len(q.queue)
}

// Peek returns the job at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (q *JobQueue) Peek() *Job {
	if len(q.queue) == 0 {
		return nil
	}
	return q.queue[0]
}

// Items returns the queue contents for iteration.
// Callers MUST NOT append to or reslice the returned slice.
func (q *JobQueue) Items() []*Job {
	return q.queue
}

// Dequeue removes and returns the job at the front of the queue.
// Returns nil if the queue is empty.
func (q *JobQueue) Dequeue() *Job {
	if len(q.queue) == 0 {
		return nil
	}
	head := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	return head
}
