package workbench

import (
	"fmt"
	"sync"
	"time"
)

// EventType represents the type of station event.
type EventType int

const (
	// EventTrayChanged is emitted after any mutation of the tray grid.
	EventTrayChanged EventType = iota
	// EventInventoryChanged is emitted after any mutation of the inventory grid.
	EventInventoryChanged
	// EventPreviewChanged is emitted when the craftable output changes.
	EventPreviewChanged
	// EventContainerChanged is emitted when a container is equipped or removed.
	EventContainerChanged
	// EventToolChanged is emitted when a tool is equipped or removed.
	EventToolChanged
	// EventCrafted is emitted when the tray is turned into a result.
	EventCrafted
	// EventResultCollected is emitted when the result moves into the inventory.
	EventResultCollected
	// EventResultDiscarded is emitted when the result is thrown away.
	EventResultDiscarded
)

// String returns a human-readable representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventTrayChanged:
		return "TrayChanged"
	case EventInventoryChanged:
		return "InventoryChanged"
	case EventPreviewChanged:
		return "PreviewChanged"
	case EventContainerChanged:
		return "ContainerChanged"
	case EventToolChanged:
		return "ToolChanged"
	case EventCrafted:
		return "Crafted"
	case EventResultCollected:
		return "ResultCollected"
	case EventResultDiscarded:
		return "ResultDiscarded"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the type by name so journals and clients stay readable.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name produced by MarshalText.
func (t *EventType) UnmarshalText(b []byte) error {
	for c := EventTrayChanged; c <= EventResultDiscarded; c++ {
		if c.String() == string(b) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("workbench: unknown event type %q", b)
}

// Event represents a station event. Item and recipe references are carried
// by ID so events can be serialized.
type Event struct {
	Type      EventType      `json:"type"`
	Owner     string         `json:"owner"`
	Timestamp time.Time      `json:"timestamp"`
	Recipe    string         `json:"recipe,omitempty"`
	Item      string         `json:"item,omitempty"`
	Count     int            `json:"count,omitempty"`
	Fallback  bool           `json:"fallback,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// AllOwners subscribes a handler to every owner's events.
const AllOwners = "*"

// EventBus manages event subscriptions and delivery.
type EventBus interface {
	// Subscribe registers a handler for events of a specific owner, or of
	// every owner when owner is AllOwners.
	Subscribe(owner string, handler func(Event))

	// Unsubscribe removes all handlers for an owner.
	Unsubscribe(owner string)

	// Publish sends an event to subscribed handlers.
	Publish(event Event)
}

// SimpleEventBus is a basic in-memory event bus implementation.
// Handlers run synchronously on the publishing goroutine, in subscription
// order, so observers see station changes in the order they happened.
type SimpleEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]func(Event)
}

// NewSimpleEventBus creates a new event bus.
func NewSimpleEventBus() *SimpleEventBus {
	return &SimpleEventBus{
		handlers: make(map[string][]func(Event)),
	}
}

// Subscribe registers a handler for events for a specific owner.
func (bus *SimpleEventBus) Subscribe(owner string, handler func(Event)) {
	if handler == nil {
		return
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.handlers[owner] = append(bus.handlers[owner], handler)
}

// Unsubscribe removes the handlers for an owner.
func (bus *SimpleEventBus) Unsubscribe(owner string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.handlers, owner)
}

// Publish sends an event to the owner's handlers and then to AllOwners
// handlers. Handlers may subscribe or unsubscribe without deadlocking.
func (bus *SimpleEventBus) Publish(event Event) {
	bus.mu.RLock()
	var targets []func(Event)
	if event.Owner != "" && event.Owner != AllOwners {
		targets = append(targets, bus.handlers[event.Owner]...)
	}
	targets = append(targets, bus.handlers[AllOwners]...)
	bus.mu.RUnlock()

	for _, handler := range targets {
		handler(event)
	}
}

// NullEventBus is an event bus that does nothing (for testing or when events not needed).
type NullEventBus struct{}

// NewNullEventBus creates a new null event bus.
func NewNullEventBus() *NullEventBus {
	return &NullEventBus{}
}

// Subscribe does nothing.
func (bus *NullEventBus) Subscribe(owner string, handler func(Event)) {}

// Unsubscribe does nothing.
func (bus *NullEventBus) Unsubscribe(owner string) {}

// Publish does nothing.
func (bus *NullEventBus) Publish(event Event) {}
