// Package events carries the in-process pub/sub fabric between the
// capture side and its consumers: the API's SSE streams, the NATS
// bridge, LED control, and metrics.
package events

import (
	"github.com/kelindar/event"
)

// Bus broadcasts events to subscribers, backed by a kelindar/event
// dispatcher.
type Bus struct {
	router *event.Dispatcher
}

// New returns a bus with no subscribers.
func New() *Bus {
	return &Bus{router: event.NewDispatcher()}
}

// Publish hands ev to every subscriber of its concrete type. The
// dispatcher's fan-out is generic over that type, hence the switch.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case CameraStateChangedEvent:
		event.Publish(b.router, e)
	case CameraInitializedEvent:
		event.Publish(b.router, e)
	case CameraStartedEvent:
		event.Publish(b.router, e)
	case FrameCapturedEvent:
		event.Publish(b.router, e)
	case DeviceAttachedEvent:
		event.Publish(b.router, e)
	case DeviceRemovedEvent:
		event.Publish(b.router, e)
	case PoolTrimmedEvent:
		event.Publish(b.router, e)
	case LogEntryEvent:
		event.Publish(b.router, e)
	}
}

// Subscribe registers handler for the event type named by its
// parameter, so subscribing reads as one line at the call site:
//
//	unsub := bus.Subscribe(func(e events.FrameCapturedEvent) { ... })
//
// The returned function removes the subscription. A handler with an
// unknown signature subscribes to nothing.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(CameraStateChangedEvent):
		return event.Subscribe(b.router, h)
	case func(CameraInitializedEvent):
		return event.Subscribe(b.router, h)
	case func(CameraStartedEvent):
		return event.Subscribe(b.router, h)
	case func(FrameCapturedEvent):
		return event.Subscribe(b.router, h)
	case func(DeviceAttachedEvent):
		return event.Subscribe(b.router, h)
	case func(DeviceRemovedEvent):
		return event.Subscribe(b.router, h)
	case func(PoolTrimmedEvent):
		return event.Subscribe(b.router, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.router, h)
	}
	return func() {}
}

// SubscribeToChannel bridges a subscription to a channel for consumers
// that need a select loop, like the SSE handlers. Sends never block:
// when ch is full the event is dropped, so a stalled client cannot
// back-pressure the dispatcher.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.router, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
