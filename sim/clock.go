package sim

import (
	"fmt"
	"sync"
)

// Subscriber receives elapsed-time updates from a Clock.
type Subscriber interface {
	// Observe is called with the clock's current time, in simulated units.
	// Successive calls carry non-decreasing values.
	Observe(now float64)
}

// Clock is the single time source Servers and the Dispatcher read.
// LogicalClock drives fast-forward runs; TimeCheck drives real-time runs.
type Clock interface {
	// Now returns the time elapsed since the clock started.
	Now() float64
	// Elapsed returns the time elapsed since sub subscribed. Never negative;
	// zero for a subscriber that is not subscribed.
	Elapsed(sub Subscriber) float64
	// Subscribe adds sub to the update set. Returns false if already subscribed.
	Subscribe(sub Subscriber) bool
	// Unsubscribe removes sub from the update set. Returns false if not subscribed.
	Unsubscribe(sub Subscriber) bool
}

// subscription pairs a subscriber with the clock time it joined at.
type subscription struct {
	sub   Subscriber
	since float64
}

// subscriberSet keeps subscriptions in join order so updates are pushed deterministically.
// Not synchronized; callers hold their own lock.
type subscriberSet struct {
	subs []subscription
}

func (s *subscriberSet) find(sub Subscriber) int {
	for i := range s.subs {
		if s.subs[i].sub == sub {
			return i
		}
	}
	return -1
}

func (s *subscriberSet) add(sub Subscriber, now float64) bool {
	if s.find(sub) >= 0 {
		return false
	}
	s.subs = append(s.subs, subscription{sub: sub, since: now})
	return true
}

func (s *subscriberSet) remove(sub Subscriber) bool {
	i := s.find(sub)
	if i < 0 {
		return false
	}
	s.subs = append(s.subs[:i], s.subs[i+1:]...)
	return true
}

func (s *subscriberSet) since(sub Subscriber) (float64, bool) {
	i := s.find(sub)
	if i < 0 {
		return 0, false
	}
	return s.subs[i].since, true
}

func (s *subscriberSet) snapshot() []Subscriber {
	out := make([]Subscriber, len(s.subs))
	for i := range s.subs {
		out[i] = s.subs[i].sub
	}
	return out
}

func (s *subscriberSet) len() int {
	return len(s.subs)
}

// LogicalClock is a manually advanced Clock for fast-forward runs.
// Time jumps directly between events; AdvanceTo pushes the new time to every
// subscriber synchronously, in subscription order.
type LogicalClock struct {
	mu   sync.Mutex
	now  float64
	subs subscriberSet
}

// NewLogicalClock creates a LogicalClock at time zero.
func NewLogicalClock() *LogicalClock {
	return &LogicalClock{}
}

// Now returns the current logical time.
func (c *LogicalClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Elapsed returns the logical time since sub subscribed.
func (c *LogicalClock) Elapsed(sub Subscriber) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	since, ok := c.subs.since(sub)
	if !ok {
		return 0
	}
	return c.now - since
}

// Subscribe implements Clock.
func (c *LogicalClock) Subscribe(sub Subscriber) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs.add(sub, c.now)
}

// Unsubscribe implements Clock.
func (c *LogicalClock) Unsubscribe(sub Subscriber) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs.remove(sub)
}

// AdvanceTo moves logical time to t and notifies subscribers.
// Panics if t is earlier than the current time.
func (c *LogicalClock) AdvanceTo(t float64) {
	c.mu.Lock()
	if t < c.now {
		c.mu.Unlock()
		panic(fmt.Sprintf("LogicalClock.AdvanceTo: time regression from %v to %v", c.now, t))
	}
	c.now = t
	subs := c.subs.snapshot()
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Observe(t)
	}
}
