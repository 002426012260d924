package cmd

import (
	"bytes"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	sim "github.com/inference-sim/dispatch-sim/sim"
	"github.com/inference-sim/dispatch-sim/sim/trace"
)

// RunConfig is the YAML form of the run settings loaded with --config.
// Unset fields keep their flag defaults. Flags given explicitly on the command
// line take precedence over the file.
type RunConfig struct {
	Servers     *int     `yaml:"servers"`
	Policy      *string  `yaml:"policy"`
	RealTime    *bool    `yaml:"realtime"`
	Visualize   *bool    `yaml:"visualize"`
	Seed        *int64   `yaml:"seed"`
	TimeUnit    string   `yaml:"time_unit"`    // Go duration, e.g. "10ms"
	TickFloor   string   `yaml:"tick_floor"`   // Go duration
	TickCeiling string   `yaml:"tick_ceiling"` // Go duration
	RepaintRate *float64 `yaml:"repaint_rate"`
	TraceLevel  *string  `yaml:"trace_level"`
}

// loadRunConfig parses a run config file.
// Uses strict field checking: typos must cause errors.
func loadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading run config")
	}
	var rc RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&rc); err != nil {
		return nil, errors.Wrapf(err, "parsing run config %s", path)
	}
	return &rc, nil
}

// apply copies the file's values into cfg, skipping every field whose flag
// reports changed.
func (rc *RunConfig) apply(cfg *sim.Config, changed func(flag string) bool) error {
	if rc.Servers != nil && !changed("servers") {
		cfg.NumServers = *rc.Servers
	}
	if rc.Policy != nil && !changed("policy") {
		cfg.Policy = *rc.Policy
	}
	if rc.RealTime != nil && !changed("realtime") {
		cfg.RealTime = *rc.RealTime
	}
	if rc.Visualize != nil && !changed("visualize") {
		cfg.Visualize = *rc.Visualize
	}
	if rc.Seed != nil && !changed("seed") {
		cfg.Seed = *rc.Seed
	}
	if rc.RepaintRate != nil && !changed("repaint-rate") {
		cfg.RepaintRate = *rc.RepaintRate
	}
	if rc.TraceLevel != nil && !changed("trace-level") {
		cfg.TraceLevel = trace.TraceLevel(*rc.TraceLevel)
	}

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"time-unit", rc.TimeUnit, &cfg.TimeUnit},
		{"tick-floor", rc.TickFloor, &cfg.Tick.Floor},
		{"tick-ceiling", rc.TickCeiling, &cfg.Tick.Ceiling},
	}
	for _, d := range durations {
		if d.value == "" || changed(d.flag) {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return errors.Wrapf(err, "run config %s", d.flag)
		}
		*d.dst = v
	}
	return nil
}
