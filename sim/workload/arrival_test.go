package workload

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleMean(s ArrivalSampler, n int) float64 {
	rng := rand.New(rand.NewSource(42))
	total := 0.0
	for i := 0; i < n; i++ {
		total += s.SampleIAT(rng)
	}
	return total / float64(n)
}

func TestPoissonSampler_MeanMatchesRate(t *testing.T) {
	// GIVEN a Poisson sampler at rate 4
	s := NewArrivalSampler(ArrivalSpec{Process: "poisson", Rate: 4})

	// WHEN many inter-arrival times are drawn
	mean := sampleMean(s, 20000)

	// THEN the mean is close to 1/rate
	assert.InDelta(t, 0.25, mean, 0.01)
}

func TestGammaSampler_MeanMatchesRate(t *testing.T) {
	cv := 2.0
	s := NewArrivalSampler(ArrivalSpec{Process: "gamma", Rate: 1, CV: &cv})
	_, ok := s.(*GammaSampler)
	assert.True(t, ok)

	mean := sampleMean(s, 50000)
	assert.InDelta(t, 1.0, mean, 0.1)
}

func TestGammaSampler_TinyShape_FallsBackToPoisson(t *testing.T) {
	cv := 20.0
	s := NewArrivalSampler(ArrivalSpec{Process: "gamma", Rate: 1, CV: &cv})
	_, ok := s.(*PoissonSampler)
	assert.True(t, ok)
}

func TestConstantSampler_ReturnsInterval(t *testing.T) {
	s := NewArrivalSampler(ArrivalSpec{Process: "constant", Rate: 0.5})
	assert.Equal(t, 2.0, s.SampleIAT(nil))
}

func TestServiceSamplers_NonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samplers := []ServiceSampler{
		NewServiceSampler(ServiceSpec{Type: "exponential", Mean: 1}),
		NewServiceSampler(ServiceSpec{Type: "constant", Mean: 2}),
		NewServiceSampler(ServiceSpec{Type: "uniform", Min: 1, Max: 3}),
	}
	for _, s := range samplers {
		for i := 0; i < 1000; i++ {
			v := s.Sample(rng)
			assert.False(t, math.IsNaN(v))
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
}

func TestUniformSampler_StaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewServiceSampler(ServiceSpec{Type: "uniform", Min: 1, Max: 3})
	for i := 0; i < 1000; i++ {
		v := s.Sample(rng)
		assert.GreaterOrEqual(t, v, 1.0)
		assert.LessOrEqual(t, v, 3.0)
	}
}

func TestNewServiceSampler_Unknown_Panics(t *testing.T) {
	assert.Panics(t, func() { NewServiceSampler(ServiceSpec{Type: "bogus"}) })
}
