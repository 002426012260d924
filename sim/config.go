package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/inference-sim/dispatch-sim/sim/trace"
)

// Config groups the construction parameters of a Dispatcher.
// A fresh Dispatcher is built per run; Config is not mutated after construction.
type Config struct {
	NumServers int    // size of the server pool (must be >= 1)
	Policy     string // dispatch policy name, see NewDispatchPolicy
	RealTime   bool   // true = servers progress against the wall clock, false = fast-forward
	Visualize  bool   // invoke the Renderer hook
	Seed       int64  // master seed for the Random policy

	TimeUnit time.Duration // wall time of one simulated unit (real-time only, default 1s)
	Tick     TickConfig    // alert-loop interval bounds (real-time only)

	RepaintRate float64          // max repaints per second after assignments; 0 = unlimited
	TraceLevel  trace.TraceLevel // "none" (default) or "decisions"
}

// DefaultConfig returns a single-server fast-forward round-robin configuration.
func DefaultConfig() Config {
	return Config{
		NumServers: 1,
		Policy:     PolicyRoundRobin,
		TimeUnit:   time.Second,
		Tick:       DefaultTickConfig(),
		TraceLevel: trace.TraceLevelNone,
	}
}

// Validate checks that all fields hold usable values.
func (c Config) Validate() error {
	if c.NumServers < 1 {
		return fmt.Errorf("num servers must be >= 1, got %d", c.NumServers)
	}
	if !IsValidDispatchPolicy(c.Policy) {
		return fmt.Errorf("unknown dispatch policy %q; valid: %v", c.Policy, ValidDispatchPolicyNames())
	}
	if c.TimeUnit < 0 {
		return fmt.Errorf("time unit must be non-negative, got %v", c.TimeUnit)
	}
	if c.Tick.Floor < 0 || c.Tick.Ceiling < 0 {
		return fmt.Errorf("tick bounds must be non-negative, got floor=%v ceiling=%v", c.Tick.Floor, c.Tick.Ceiling)
	}
	if math.IsNaN(c.RepaintRate) || c.RepaintRate < 0 {
		return fmt.Errorf("repaint rate must be non-negative, got %v", c.RepaintRate)
	}
	if !trace.IsValidTraceLevel(string(c.TraceLevel)) {
		return fmt.Errorf("unknown trace level %q; valid: none, decisions", c.TraceLevel)
	}
	return nil
}
