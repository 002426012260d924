// Implements TimeCheck, the wall-clock backed Clock used in real-time runs.
// It reports elapsed time, pushes periodic updates to subscribed servers and
// fires job-arrival alerts when their due time has passed.

package sim

import (
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TickConfig bounds the adaptive alert-loop interval.
// The interval shrinks by Factor toward Floor as the next alert nears and grows
// by Factor toward Ceiling after an alert fires. With no pending alerts the loop
// ticks at Ceiling.
type TickConfig struct {
	Floor   time.Duration
	Ceiling time.Duration
	Factor  float64
}

// DefaultTickConfig returns the tick bounds used when none are configured.
func DefaultTickConfig() TickConfig {
	return TickConfig{
		Floor:   time.Millisecond,
		Ceiling: 100 * time.Millisecond,
		Factor:  2,
	}
}

// TimeCheck is a shared real-time Clock and alert scheduler.
// One simulated time unit corresponds to Unit of wall time.
//
// Thread-safety: all methods are safe for concurrent use. Alert callbacks and
// subscriber updates run on the alert-loop goroutine, outside the lock.
type TimeCheck struct {
	unit  time.Duration
	tick  TickConfig
	start time.Time

	mu      sync.Mutex
	subs    subscriberSet
	alerts  *AlertHeap
	enabled bool
	stop    chan struct{}
	done    chan struct{}
}

// NewTimeCheck creates a TimeCheck whose clock starts now.
// A non-positive unit defaults to one second; zero tick fields take their defaults.
func NewTimeCheck(unit time.Duration, tick TickConfig) *TimeCheck {
	if unit <= 0 {
		unit = time.Second
	}
	def := DefaultTickConfig()
	if tick.Floor <= 0 {
		tick.Floor = def.Floor
	}
	if tick.Ceiling <= 0 {
		tick.Ceiling = def.Ceiling
	}
	if tick.Ceiling < tick.Floor {
		tick.Ceiling = tick.Floor
	}
	if tick.Factor <= 1 {
		tick.Factor = def.Factor
	}
	return &TimeCheck{
		unit:   unit,
		tick:   tick,
		start:  time.Now(),
		alerts: NewAlertHeap(),
	}
}

// ElapsedWallTime returns the simulated time elapsed since the clock started.
func (tc *TimeCheck) ElapsedWallTime() float64 {
	return float64(time.Since(tc.start)) / float64(tc.unit)
}

// Now implements Clock.
func (tc *TimeCheck) Now() float64 {
	return tc.ElapsedWallTime()
}

// Elapsed returns the time since sub subscribed. Never negative.
func (tc *TimeCheck) Elapsed(sub Subscriber) float64 {
	now := tc.ElapsedWallTime()
	tc.mu.Lock()
	since, ok := tc.subs.since(sub)
	tc.mu.Unlock()
	if !ok {
		return 0
	}
	return math.Max(0, now-since)
}

// Subscribe implements Clock.
func (tc *TimeCheck) Subscribe(sub Subscriber) bool {
	now := tc.ElapsedWallTime()
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.subs.add(sub, now)
}

// Unsubscribe implements Clock.
func (tc *TimeCheck) Unsubscribe(sub Subscriber) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.subs.remove(sub)
}

// RegisterAlert schedules target.Alert(due) once the elapsed time reaches due.
// Alerts fire in non-decreasing due order; equal due times fire in registration order.
// Panics if no subscriber is registered: servers must be started first.
func (tc *TimeCheck) RegisterAlert(due float64, target Alertable) {
	if target == nil {
		panic("RegisterAlert: target must not be nil")
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.subs.len() == 0 {
		logrus.Panicf("RegisterAlert: alert at %v registered before any server subscribed", due)
	}
	tc.alerts.Schedule(due, target)
}

// Pending returns the number of alerts that have not fired.
func (tc *TimeCheck) Pending() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.alerts.Len()
}

// Enabled reports whether the alert loop is running.
func (tc *TimeCheck) Enabled() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.enabled
}

// Start launches the alert loop in a background goroutine. No-op if already running.
func (tc *TimeCheck) Start() {
	tc.mu.Lock()
	if tc.enabled {
		tc.mu.Unlock()
		return
	}
	tc.enabled = true
	tc.stop = make(chan struct{})
	tc.done = make(chan struct{})
	stop, done := tc.stop, tc.done
	tc.mu.Unlock()

	go tc.run(stop, done)
}

// Stop disables the alert loop and waits for it to exit.
// Must not be called from an alert callback.
func (tc *TimeCheck) Stop() {
	tc.mu.Lock()
	if !tc.enabled {
		tc.mu.Unlock()
		return
	}
	tc.enabled = false
	close(tc.stop)
	done := tc.done
	tc.mu.Unlock()
	<-done
}

// run is the alert loop. Each tick pushes the elapsed time to every subscriber,
// then fires every alert whose due time has passed.
func (tc *TimeCheck) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := tc.tick.Ceiling
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		now := tc.ElapsedWallTime()
		tc.mu.Lock()
		subs := tc.subs.snapshot()
		tc.mu.Unlock()
		for _, sub := range subs {
			sub.Observe(now)
		}

		fired := tc.fireDue(now)
		var sleep time.Duration
		interval, sleep = tc.nextInterval(interval, now, fired)
		timer.Reset(sleep)
	}
}

// fireDue pops and invokes every alert due at or before now, in order.
// Callbacks run without the lock held so they may register further alerts.
func (tc *TimeCheck) fireDue(now float64) int {
	fired := 0
	for {
		tc.mu.Lock()
		due, ok := tc.alerts.PeekDue()
		if !ok || due > now {
			tc.mu.Unlock()
			return fired
		}
		_, target, _ := tc.alerts.PopNext()
		tc.mu.Unlock()

		logrus.Debugf("<< Alert: due %.3f fired at %.3f", due, now)
		target.Alert(due)
		fired++
	}
}

// nextInterval applies the converge/diverge scheme and returns the new interval
// together with how long to sleep before the next tick.
func (tc *TimeCheck) nextInterval(interval time.Duration, now float64, fired int) (time.Duration, time.Duration) {
	if fired > 0 {
		interval = tc.clamp(time.Duration(float64(interval) * tc.tick.Factor))
	}

	tc.mu.Lock()
	due, ok := tc.alerts.PeekDue()
	tc.mu.Unlock()
	if !ok {
		return tc.tick.Ceiling, tc.tick.Ceiling
	}

	untilDue := time.Duration((due - now) * float64(tc.unit))
	if untilDue < interval {
		interval = tc.clamp(time.Duration(float64(interval) / tc.tick.Factor))
	}
	sleep := interval
	if untilDue < sleep {
		sleep = untilDue
	}
	if sleep < tc.tick.Floor {
		sleep = tc.tick.Floor
	}
	return interval, sleep
}

func (tc *TimeCheck) clamp(d time.Duration) time.Duration {
	if d < tc.tick.Floor {
		return tc.tick.Floor
	}
	if d > tc.tick.Ceiling {
		return tc.tick.Ceiling
	}
	return d
}
