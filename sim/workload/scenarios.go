package workload

import (
	"fmt"
	"sort"
)

// Built-in scenario presets for common load patterns.
// Each returns a valid synthetic WorkloadSpec ready for use with GenerateJobs.
// rate is in jobs per simulated time unit; service means are one time unit,
// so rate/numServers is the offered load per server.

// ScenarioSteady creates a spec with Poisson arrivals and exponential service (M/M/k).
func ScenarioSteady(seed int64, rate float64, numJobs int) *WorkloadSpec {
	return &WorkloadSpec{
		Version: "1", Seed: seed, NumJobs: numJobs,
		Arrival: ArrivalSpec{Process: "poisson", Rate: rate},
		Service: ServiceSpec{Type: "exponential", Mean: 1},
	}
}

// ScenarioBursty creates a spec with Gamma-distributed bursty arrivals.
func ScenarioBursty(seed int64, rate float64, numJobs int) *WorkloadSpec {
	cv := 3.5
	return &WorkloadSpec{
		Version: "1", Seed: seed, NumJobs: numJobs,
		Arrival: ArrivalSpec{Process: "gamma", Rate: rate, CV: &cv},
		Service: ServiceSpec{Type: "exponential", Mean: 1},
	}
}

// ScenarioPeriodic creates a fully deterministic spec: evenly spaced arrivals
// with identical service times (D/D/k).
func ScenarioPeriodic(seed int64, rate float64, numJobs int) *WorkloadSpec {
	return &WorkloadSpec{
		Version: "1", Seed: seed, NumJobs: numJobs,
		Arrival: ArrivalSpec{Process: "constant", Rate: rate},
		Service: ServiceSpec{Type: "constant", Mean: 1},
	}
}

// ScenarioMixedSizes creates a spec with Poisson arrivals and widely spread
// uniform service times, where work-aware dispatch differs most from
// queue-length dispatch.
func ScenarioMixedSizes(seed int64, rate float64, numJobs int) *WorkloadSpec {
	return &WorkloadSpec{
		Version: "1", Seed: seed, NumJobs: numJobs,
		Arrival: ArrivalSpec{Process: "poisson", Rate: rate},
		Service: ServiceSpec{Type: "uniform", Min: 0.1, Max: 1.9},
	}
}

var scenarios = map[string]func(seed int64, rate float64, numJobs int) *WorkloadSpec{
	"steady":      ScenarioSteady,
	"bursty":      ScenarioBursty,
	"periodic":    ScenarioPeriodic,
	"mixed-sizes": ScenarioMixedSizes,
}

// ScenarioNames returns the sorted names accepted by NewScenario.
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewScenario builds a named preset. Returns an error for unknown names.
func NewScenario(name string, seed int64, rate float64, numJobs int) (*WorkloadSpec, error) {
	build, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q; valid: %v", name, ScenarioNames())
	}
	return build(seed, rate, numJobs), nil
}
