package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/inference-sim/dispatch-sim/sim/trace"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.NumServers)
	assert.Equal(t, PolicyRoundRobin, cfg.Policy)
	assert.False(t, cfg.RealTime)
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero servers", func(c *Config) { c.NumServers = 0 }, "num servers"},
		{"unknown policy", func(c *Config) { c.Policy = "fastest" }, "unknown dispatch policy"},
		{"negative unit", func(c *Config) { c.TimeUnit = -time.Second }, "time unit"},
		{"negative tick", func(c *Config) { c.Tick.Floor = -1 }, "tick bounds"},
		{"negative repaint rate", func(c *Config) { c.RepaintRate = -1 }, "repaint rate"},
		{"NaN repaint rate", func(c *Config) { c.RepaintRate = math.NaN() }, "repaint rate"},
		{"unknown trace level", func(c *Config) { c.TraceLevel = trace.TraceLevel("verbose") }, "trace level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestConfig_Validate_EmptyPolicyAndTraceLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = ""
	cfg.TraceLevel = ""
	assert.NoError(t, cfg.Validate())
}
