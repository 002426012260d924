package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLoadedServers builds len(work) idle servers; server i holds one queued job
// per entry of work[i], each with that processing time.
func newLoadedServers(work ...[]float64) []*Server {
	clock := NewLogicalClock()
	servers := make([]*Server, len(work))
	id := 0
	for i, jobs := range work {
		servers[i] = NewServer(i, clock)
		for _, p := range jobs {
			servers[i].Enqueue(NewJob(id, 0, p))
			id++
		}
	}
	return servers
}

func TestRoundRobin_CyclesThroughServers(t *testing.T) {
	// GIVEN two servers and a fresh round-robin policy
	servers := newLoadedServers(nil, nil)
	rr := &RoundRobin{}

	// WHEN four jobs are picked
	var picks []int
	for i := 0; i < 4; i++ {
		picks = append(picks, rr.PickServer(servers, NewJob(i, float64(i), 1)))
	}

	// THEN assignment cycles 0,1,0,1
	assert.Equal(t, []int{0, 1, 0, 1}, picks)
}

func TestRoundRobin_IgnoresLoad(t *testing.T) {
	servers := newLoadedServers([]float64{100, 100}, nil, nil)
	rr := &RoundRobin{}
	assert.Equal(t, 0, rr.PickServer(servers, nil))
	assert.Equal(t, 1, rr.PickServer(servers, nil))
	assert.Equal(t, 2, rr.PickServer(servers, nil))
	assert.Equal(t, 0, rr.PickServer(servers, nil))
}

func TestShortestQueue_PicksFewestQueuedJobs(t *testing.T) {
	// GIVEN server 0 with 2 queued jobs and server 1 with 1
	servers := newLoadedServers([]float64{1, 1}, []float64{50})

	// WHEN a job is dispatched
	idx := (&ShortestQueue{}).PickServer(servers, NewJob(9, 0, 1))

	// THEN it goes to server 1, regardless of remaining work
	assert.Equal(t, 1, idx)
}

func TestShortestQueue_TieBreaksToLowestIndex(t *testing.T) {
	servers := newLoadedServers([]float64{3}, []float64{1}, []float64{2})
	assert.Equal(t, 0, (&ShortestQueue{}).PickServer(servers, nil))

	servers = newLoadedServers([]float64{3, 1}, []float64{1}, []float64{2})
	assert.Equal(t, 1, (&ShortestQueue{}).PickServer(servers, nil))
}

func TestLeastWork_PicksSmallestRemainingWork(t *testing.T) {
	// GIVEN remaining work 5 and 3
	servers := newLoadedServers([]float64{5}, []float64{1, 2})

	// WHEN a job of 4 units is dispatched
	job := NewJob(9, 0, 4)
	idx := (&LeastWork{}).PickServer(servers, job)
	servers[idx].Enqueue(job)

	// THEN server 1 is picked and its remaining work grows from 3 to 7
	assert.Equal(t, 1, idx)
	assert.Equal(t, 7.0, servers[1].RemainingWork())
	assert.Equal(t, 5.0, servers[0].RemainingWork())
}

func TestLeastWork_TieBreaksToLowestIndex(t *testing.T) {
	servers := newLoadedServers([]float64{2}, []float64{1, 1}, []float64{5})
	assert.Equal(t, 0, (&LeastWork{}).PickServer(servers, nil))
}

func TestLeastWork_IdleServersTie(t *testing.T) {
	servers := newLoadedServers(nil, nil, nil)
	assert.Equal(t, 0, (&LeastWork{}).PickServer(servers, nil))
	assert.Equal(t, 0, (&ShortestQueue{}).PickServer(servers, nil))
}

func TestRandom_SameSeed_SameSequence(t *testing.T) {
	servers := newLoadedServers(nil, nil, nil, nil, nil)
	a := NewRandom(rand.New(rand.NewSource(42)))
	b := NewRandom(rand.New(rand.NewSource(42)))

	for i := 0; i < 100; i++ {
		ia := a.PickServer(servers, nil)
		ib := b.PickServer(servers, nil)
		require.Equal(t, ia, ib, "pick %d", i)
		require.GreaterOrEqual(t, ia, 0)
		require.Less(t, ia, len(servers))
	}
}

func TestRandom_CoversAllServers(t *testing.T) {
	servers := newLoadedServers(nil, nil, nil)
	r := NewRandom(rand.New(rand.NewSource(7)))
	seen := map[int]int{}
	for i := 0; i < 300; i++ {
		seen[r.PickServer(servers, nil)]++
	}
	assert.Len(t, seen, 3)
}

func TestPolicies_EmptyServerList_Panics(t *testing.T) {
	policies := map[string]DispatchPolicy{
		"random":         NewRandom(rand.New(rand.NewSource(1))),
		"round-robin":    &RoundRobin{},
		"shortest-queue": &ShortestQueue{},
		"least-work":     &LeastWork{},
	}
	for name, p := range policies {
		t.Run(name, func(t *testing.T) {
			assert.Panics(t, func() { p.PickServer(nil, NewJob(0, 0, 1)) })
		})
	}
}

func TestNewRandom_NilRNG_Panics(t *testing.T) {
	assert.Panics(t, func() { NewRandom(nil) })
}

func TestNewDispatchPolicy_ByName(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	tests := []struct {
		name string
		want DispatchPolicy
	}{
		{"", &RoundRobin{}},
		{PolicyRoundRobin, &RoundRobin{}},
		{PolicyShortestQueue, &ShortestQueue{}},
		{PolicyLeastWork, &LeastWork{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewDispatchPolicy(tt.name, rng)
			assert.IsType(t, tt.want, p)
		})
	}

	p := NewDispatchPolicy(PolicyRandom, rng)
	assert.IsType(t, &Random{}, p)
	assert.Equal(t, PolicyRandom, policyName(p))
}

func TestNewDispatchPolicy_Random_DeterministicPerSeed(t *testing.T) {
	servers := newLoadedServers(nil, nil, nil, nil)
	a := NewDispatchPolicy(PolicyRandom, NewPartitionedRNG(NewSimulationKey(3)))
	b := NewDispatchPolicy(PolicyRandom, NewPartitionedRNG(NewSimulationKey(3)))
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.PickServer(servers, nil), b.PickServer(servers, nil))
	}
}

func TestNewDispatchPolicy_Unknown_Panics(t *testing.T) {
	assert.Panics(t, func() { NewDispatchPolicy("fastest", nil) })
}

func TestIsValidDispatchPolicy(t *testing.T) {
	assert.True(t, IsValidDispatchPolicy(""))
	assert.True(t, IsValidDispatchPolicy("least-work"))
	assert.False(t, IsValidDispatchPolicy("least_work"))
	assert.Equal(t, []string{"least-work", "random", "round-robin", "shortest-queue"}, ValidDispatchPolicyNames())
}

type customPolicy struct{}

func (customPolicy) PickServer(servers []*Server, _ *Job) int { return len(servers) - 1 }

func TestPolicyName_CustomPolicy_UsesType(t *testing.T) {
	assert.Equal(t, "sim.customPolicy", policyName(customPolicy{}))
}
