package manager

import "github.com/rs/zerolog"

// Event represents a manager lifecycle event: model_loaded, model_evicted,
// adapter_attached, adapter_detached or generate_done.
type Event struct {
	Name   string
	Model  string
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes every event as a debug line.
type LogPublisher struct{ Log zerolog.Logger }

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Debug().Str("event", e.Name).Str("model", e.Model)
	for k, v := range e.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg("manager event")
}
