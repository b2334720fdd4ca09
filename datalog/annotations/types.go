// Package annotations provides a clean, low-overhead annotation system for
// tracking program evaluation metrics and debugging information.
package annotations

import (
	"sync"
	"time"
)

// Event name constants following hierarchical naming pattern
const (
	// Program lifecycle
	ProgramInvoked  = "program/invoked"
	ProgramComplete = "program/completed"

	// Strata
	StratumBegin    = "stratum/begin"
	StratumComplete = "stratum/complete"

	// Semi-naive evaluation
	FixpointIteration = "fixpoint/iteration"

	// Relation maintenance
	RelationMerged   = "relation/merged"
	RelationSubsumed = "relation/subsumed"
	RelationReleased = "relation/released"

	// External I/O
	IOLoad  = "io/load"
	IOStore = "io/store"

	// Errors
	ErrorEvaluation = "error/evaluation"
)

// Event represents a single annotation event during evaluation.
type Event struct {
	Name    string                 // Event name using hierarchical constants above
	Start   time.Time              // Start timestamp
	End     time.Time              // End timestamp
	Latency time.Duration          // Duration (End - Start)
	Data    map[string]interface{} // Additional event-specific data with grouped metrics
}

// Handler processes annotation events as they occur.
type Handler func(event Event)

// Collector accumulates events during evaluation.
type Collector struct {
	enabled bool
	handler Handler
	events  []Event
	mu      sync.Mutex // Protects events for concurrent access
}

// NewCollector creates a new annotation collector.
func NewCollector(handler Handler) *Collector {
	return &Collector{
		enabled: handler != nil,
		handler: handler,
		events:  make([]Event, 0, 128), // Pre-size for a typical program
	}
}

// Handler returns the underlying event handler.
func (c *Collector) Handler() Handler {
	return c.handler
}

// Add records a new event.
// Thread-safe for concurrent access.
func (c *Collector) Add(event Event) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	// Call handler outside the lock to avoid deadlocks
	if c.handler != nil {
		c.handler(event)
	}
}

// AddTiming records an event with timing information.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.enabled {
		return
	}

	end := time.Now()
	event := Event{
		Name:    name,
		Start:   start,
		End:     end,
		Latency: end.Sub(start),
		Data:    data,
	}

	c.Add(event)
}

// Events returns all collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Return a copy to avoid race conditions
	eventsCopy := make([]Event, len(c.events))
	copy(eventsCopy, c.events)
	return eventsCopy
}

// Count returns how many events with the given name were collected
func (c *Collector) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// Reset clears the collector for reuse.
// Thread-safe for concurrent access.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	// Don't clear handler or enabled status
}
