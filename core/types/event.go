package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Copy returns a deep copy so callers can hand events out without exposing
// the internal attribute map to mutation.
func (e Event) Copy() Event {
	attrs := make(map[string]string, len(e.Attributes))
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	return Event{Type: e.Type, Attributes: attrs}
}
