package sim

import (
	"fmt"
	"math/rand"
	"sort"
)

// DispatchPolicy decides which server receives a job.
// PickServer is called once per job, before the job is enqueued, and returns an
// index into servers. Implementations may keep bookkeeping local to themselves
// (e.g. a cursor) but must not mutate the servers. Every policy runs in O(k).
type DispatchPolicy interface {
	PickServer(servers []*Server, job *Job) int
}

// Random selects a server uniformly, independent of job and server state.
type Random struct {
	rand *rand.Rand
}

// NewRandom creates a Random policy drawing from rng.
func NewRandom(rng *rand.Rand) *Random {
	if rng == nil {
		panic("NewRandom: rng must not be nil")
	}
	return &Random{rand: rng}
}

// PickServer implements DispatchPolicy for Random.
func (r *Random) PickServer(servers []*Server, _ *Job) int {
	if len(servers) == 0 {
		panic("Random.PickServer: empty server list")
	}
	return r.rand.Intn(len(servers))
}

// RoundRobin dispatches in cyclic order. The cursor advances on every call.
type RoundRobin struct {
	counter int
}

// PickServer implements DispatchPolicy for RoundRobin.
func (rr *RoundRobin) PickServer(servers []*Server, _ *Job) int {
	if len(servers) == 0 {
		panic("RoundRobin.PickServer: empty server list")
	}
	target := rr.counter % len(servers)
	rr.counter++
	return target
}

// ShortestQueue dispatches to the server with the fewest queued jobs.
// Ties are broken by first occurrence in server order (lowest index).
type ShortestQueue struct{}

// PickServer implements DispatchPolicy for ShortestQueue.
func (sq *ShortestQueue) PickServer(servers []*Server, _ *Job) int {
	if len(servers) == 0 {
		panic("ShortestQueue.PickServer: empty server list")
	}
	best := 0
	minLen := servers[0].QueueLength()
	for i := 1; i < len(servers); i++ {
		if l := servers[i].QueueLength(); l < minLen {
			minLen = l
			best = i
		}
	}
	return best
}

// LeastWork dispatches to the server with the smallest remaining work.
// Ties are broken by first occurrence in server order (lowest index).
type LeastWork struct{}

// PickServer implements DispatchPolicy for LeastWork.
func (lw *LeastWork) PickServer(servers []*Server, _ *Job) int {
	if len(servers) == 0 {
		panic("LeastWork.PickServer: empty server list")
	}
	best := 0
	minWork := servers[0].RemainingWork()
	for i := 1; i < len(servers); i++ {
		if w := servers[i].RemainingWork(); w < minWork {
			minWork = w
			best = i
		}
	}
	return best
}

// Policy names accepted by NewDispatchPolicy.
const (
	PolicyRandom        = "random"
	PolicyRoundRobin    = "round-robin"
	PolicyShortestQueue = "shortest-queue"
	PolicyLeastWork     = "least-work"
)

var validDispatchPolicies = map[string]bool{
	"":                  true,
	PolicyRandom:        true,
	PolicyRoundRobin:    true,
	PolicyShortestQueue: true,
	PolicyLeastWork:     true,
}

// IsValidDispatchPolicy returns true if name is a recognized dispatch policy.
// Empty string is valid and defaults to round-robin.
func IsValidDispatchPolicy(name string) bool {
	return validDispatchPolicies[name]
}

// ValidDispatchPolicyNames returns the sorted non-empty policy names.
func ValidDispatchPolicyNames() []string {
	names := make([]string, 0, len(validDispatchPolicies))
	for name := range validDispatchPolicies {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// NewDispatchPolicy creates a dispatch policy by name.
// Empty string defaults to round-robin. Random draws from rng's dispatch subsystem.
// Panics on unrecognized names.
func NewDispatchPolicy(name string, rng *PartitionedRNG) DispatchPolicy {
	if !IsValidDispatchPolicy(name) {
		panic(fmt.Sprintf("unknown dispatch policy %q", name))
	}
	switch name {
	case "", PolicyRoundRobin:
		return &RoundRobin{}
	case PolicyRandom:
		if rng == nil {
			rng = NewPartitionedRNG(NewSimulationKey(0))
		}
		return NewRandom(rng.ForSubsystem(SubsystemDispatch))
	case PolicyShortestQueue:
		return &ShortestQueue{}
	case PolicyLeastWork:
		return &LeastWork{}
	default:
		panic(fmt.Sprintf("unhandled dispatch policy %q", name))
	}
}

// policyName returns the registered name of a built-in policy, or its Go type.
func policyName(p DispatchPolicy) string {
	switch p.(type) {
	case *Random:
		return PolicyRandom
	case *RoundRobin:
		return PolicyRoundRobin
	case *ShortestQueue:
		return PolicyShortestQueue
	case *LeastWork:
		return PolicyLeastWork
	default:
		return fmt.Sprintf("%T", p)
	}
}
