// Package event provides the pub/sub bus for engine events, built on
// watermill's gochannel transport.
package event

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/chatkit-ai/chatkit/internal/logging"
)

// TopicEvents is the transport topic every engine event is published on.
const TopicEvents = "engine.events"

// Type identifies an event.
type Type string

const (
	SessionCreated   Type = "session.created"
	SessionCleared   Type = "session.cleared"
	SessionError     Type = "session.error"
	RequestStarted   Type = "request.started"
	RequestCompleted Type = "request.completed"
	RequestCanceled  Type = "request.canceled"
	ResponseUpdated  Type = "response.updated"
)

// Event is one published event.
type Event struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// WireEvent is the marshaled form of an Event as it travels over the
// transport. Data stays raw; consumers decode the fields they need.
type WireEvent struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Subscriber receives events.
type Subscriber func(Event)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus is a typed pub/sub bus. In-process subscribers are tracked
// directly so payloads keep their Go types; every published event is
// also marshaled onto the watermill gochannel, which Stream consumers
// (such as SSE connections) read from.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[Type][]subscriberEntry
	global      []subscriberEntry

	nextID uint64
	closed bool
}

// NewBus creates a bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NopLogger{},
		),
		subscribers: make(map[Type][]subscriberEntry),
	}
}

// Subscribe registers fn for one event type and returns an unsubscribe
// function.
func (b *Bus) Subscribe(t Type, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	b.subscribers[t] = append(b.subscribers[t], subscriberEntry{id: id, fn: fn})

	return func() { b.unsubscribe(t, id) }
}

// SubscribeAll registers fn for every event type and returns an
// unsubscribe function.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})

	return func() { b.unsubscribeGlobal(id) }
}

func (b *Bus) unsubscribe(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[t]
	for i, entry := range subs {
		if entry.id == id {
			b.subscribers[t] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			return
		}
	}
}

func (b *Bus) collect(t Type) []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	subs := make([]Subscriber, 0, len(b.subscribers[t])+len(b.global))
	for _, entry := range b.subscribers[t] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	return subs
}

// Publish delivers e to each subscriber on its own goroutine so a slow
// subscriber never blocks the engine, and pushes the marshaled event
// onto the transport.
func (b *Bus) Publish(e Event) {
	for _, sub := range b.collect(e.Type) {
		go sub(e)
	}
	b.publishWire(e)
}

// PublishSync delivers e to every subscriber in the calling goroutine
// before returning. Intended for tests.
func (b *Bus) PublishSync(e Event) {
	for _, sub := range b.collect(e.Type) {
		sub(e)
	}
	b.publishWire(e)
}

// publishWire marshals e and publishes it on the transport topic. A
// payload that cannot marshal is logged and dropped; the typed
// in-process delivery has already happened by then.
func (b *Bus) publishWire(e Event) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		logging.Warn().Str("type", string(e.Type)).Err(err).Msg("event payload not marshalable, dropped")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", string(e.Type))
	if err := b.pubsub.Publish(TopicEvents, msg); err != nil {
		logging.Warn().Str("type", string(e.Type)).Err(err).Msg("event transport publish failed")
	}
}

// Stream subscribes to the transport topic and returns decoded wire
// events. The channel closes when ctx is canceled or the bus shuts
// down. A consumer that stops draining has events dropped rather than
// stalling the transport.
func (b *Bus) Stream(ctx context.Context) (<-chan WireEvent, error) {
	msgs, err := b.pubsub.Subscribe(ctx, TopicEvents)
	if err != nil {
		return nil, err
	}

	out := make(chan WireEvent, 16)
	go func() {
		defer close(out)
		for msg := range msgs {
			var we WireEvent
			if err := json.Unmarshal(msg.Payload, &we); err != nil {
				logging.Warn().Err(err).Msg("malformed wire event, dropped")
				msg.Ack()
				continue
			}
			select {
			case out <- we:
			default:
				logging.Debug().Str("type", string(we.Type)).Msg("stream consumer too slow, event dropped")
			}
			msg.Ack()
		}
	}()
	return out, nil
}

// Close drops all subscribers and shuts the underlying transport.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[Type][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}
