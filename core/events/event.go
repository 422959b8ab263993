package events

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. journals,
// indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while
// discarding all events. It is useful when a component wants to optionally
// expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Collector buffers events in emission order so a caller can drain them
// after an operation completes. It is the ledger's staging area between
// engine emission and downstream delivery.
type Collector struct {
	events []Event
}

// Emit implements the Emitter interface.
func (c *Collector) Emit(evt Event) {
	if evt == nil {
		return
	}
	c.events = append(c.events, evt)
}

// Drain returns the buffered events and clears the collector.
func (c *Collector) Drain() []Event {
	drained := c.events
	c.events = nil
	return drained
}

// Len reports the number of buffered events.
func (c *Collector) Len() int {
	return len(c.events)
}
