package notify

import (
	"context"
	"errors"
	"time"
)

// Event announces that a stored key changed
type Event struct {
	Key    string    `json:"key"`
	User   string    `json:"user"`
	Marker string    `json:"marker,omitempty"`
	At     time.Time `json:"at"`
	Origin string    `json:"origin,omitempty"`
}

// Handler receives change events
type Handler func(ctx context.Context, event Event)

// Notifier publishes change events. Delivery is at least once per call with no
// ordering guarantee across keys.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Subscriber registers observers. Topic is a store key or a marker key; AllTopics
// receives every event. The returned func removes the registration.
type Subscriber interface {
	Subscribe(topic string, handler Handler) (unsubscribe func())
}

// AllTopics subscribes to every event
const AllTopics = "*"

// Multi fans an event out to several notifiers
type Multi []Notifier

// Notify delivers to every notifier and joins their errors
func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event
type Discard struct{}

func (Discard) Notify(context.Context, Event) error { return nil }
