package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// WorkloadSpec is the top-level workload configuration.
// Loaded from YAML via LoadWorkloadSpec(path). A spec either lists jobs
// explicitly or describes a synthetic generator (num_jobs + arrival + service).
type WorkloadSpec struct {
	Version string      `yaml:"version"`
	Seed    int64       `yaml:"seed"`
	Jobs    []JobSpec   `yaml:"jobs,omitempty"`
	NumJobs int         `yaml:"num_jobs,omitempty"`
	Arrival ArrivalSpec `yaml:"arrival,omitempty"`
	Service ServiceSpec `yaml:"service,omitempty"`
}

// JobSpec is one explicitly listed job.
type JobSpec struct {
	Arrival    float64 `yaml:"arrival"`
	Processing float64 `yaml:"processing"`
}

// ArrivalSpec configures the inter-arrival time process.
type ArrivalSpec struct {
	Process string   `yaml:"process"`
	Rate    float64  `yaml:"rate"` // jobs per simulated time unit
	CV      *float64 `yaml:"cv,omitempty"`
}

// ServiceSpec parameterizes the processing-time distribution.
type ServiceSpec struct {
	Type string  `yaml:"type"`
	Mean float64 `yaml:"mean,omitempty"`
	Min  float64 `yaml:"min,omitempty"`
	Max  float64 `yaml:"max,omitempty"`
}

var (
	validArrivalProcesses = map[string]bool{
		"poisson": true, "constant": true, "gamma": true,
	}
	validServiceTypes = map[string]bool{
		"exponential": true, "constant": true, "uniform": true,
	}
)

// LoadWorkloadSpec reads and parses a YAML workload file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadWorkloadSpec(path string) (*WorkloadSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading workload spec")
	}
	return ParseWorkloadSpec(data)
}

// ParseWorkloadSpec parses YAML workload data with strict field checking.
func ParseWorkloadSpec(data []byte) (*WorkloadSpec, error) {
	var spec WorkloadSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, errors.Wrap(err, "parsing workload spec")
	}
	if spec.Version == "" {
		spec.Version = "1"
	}
	return &spec, nil
}

// Validate checks that all fields hold usable values.
func (s *WorkloadSpec) Validate() error {
	if len(s.Jobs) > 0 && s.NumJobs > 0 {
		return errors.New("jobs and num_jobs are mutually exclusive")
	}
	if len(s.Jobs) > 0 {
		for i, j := range s.Jobs {
			if err := validateNonNegative(jobField(i, "arrival"), j.Arrival); err != nil {
				return err
			}
			if err := validateNonNegative(jobField(i, "processing"), j.Processing); err != nil {
				return err
			}
		}
		return nil
	}
	if s.NumJobs <= 0 {
		return errors.Errorf("num_jobs must be positive when no jobs are listed, got %d", s.NumJobs)
	}
	if !validArrivalProcesses[s.Arrival.Process] {
		return errors.Errorf("unknown arrival process %q; valid: poisson, constant, gamma", s.Arrival.Process)
	}
	if err := validateFinitePositive("arrival.rate", s.Arrival.Rate); err != nil {
		return err
	}
	if s.Arrival.CV != nil {
		if err := validateFinitePositive("arrival.cv", *s.Arrival.CV); err != nil {
			return err
		}
	}
	return validateService(&s.Service)
}

func validateService(svc *ServiceSpec) error {
	if !validServiceTypes[svc.Type] {
		return errors.Errorf("unknown service type %q; valid: exponential, constant, uniform", svc.Type)
	}
	switch svc.Type {
	case "exponential", "constant":
		return validateFinitePositive("service.mean", svc.Mean)
	case "uniform":
		if err := validateNonNegative("service.min", svc.Min); err != nil {
			return err
		}
		if err := validateNonNegative("service.max", svc.Max); err != nil {
			return err
		}
		if svc.Max < svc.Min {
			return errors.Errorf("service.max (%v) must be >= service.min (%v)", svc.Max, svc.Min)
		}
	}
	return nil
}

func jobField(idx int, name string) string {
	return fmt.Sprintf("jobs[%d].%s", idx, name)
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return errors.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return errors.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}

func validateNonNegative(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return errors.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val < 0 {
		return errors.Errorf("%s must be non-negative, got %f", name, val)
	}
	return nil
}
