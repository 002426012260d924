package workload

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// ServiceSampler generates processing-time samples.
type ServiceSampler interface {
	// Sample returns a non-negative processing time.
	Sample(rng *rand.Rand) float64
}

// ExponentialSampler produces exponentially-distributed processing times.
type ExponentialSampler struct {
	mean float64
}

func (s *ExponentialSampler) Sample(rng *rand.Rand) float64 {
	return rng.ExpFloat64() * s.mean
}

// ConstantServiceSampler always returns the same processing time.
type ConstantServiceSampler struct {
	value float64
}

func (s *ConstantServiceSampler) Sample(_ *rand.Rand) float64 {
	return s.value
}

// UniformSampler draws processing times uniformly from [min, max].
type UniformSampler struct {
	min, max float64
}

func (s *UniformSampler) Sample(rng *rand.Rand) float64 {
	if s.min == s.max {
		return s.min
	}
	return s.min + rng.Float64()*(s.max-s.min)
}

// NewServiceSampler creates a ServiceSampler from a validated spec.
func NewServiceSampler(spec ServiceSpec) ServiceSampler {
	switch spec.Type {
	case "exponential":
		return &ExponentialSampler{mean: spec.Mean}
	case "constant":
		return &ConstantServiceSampler{value: spec.Mean}
	case "uniform":
		return &UniformSampler{min: spec.Min, max: spec.Max}
	default:
		logrus.Panicf("unknown service type %q", spec.Type)
		return nil
	}
}
