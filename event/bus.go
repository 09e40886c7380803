// Package event implements the render graph's typed in-process pub/sub
// bus (spec.md §4.7): messages are delivered synchronously on the
// publisher's goroutine, in publish order, and a publish that happens
// from inside a handler is queued rather than recursed into (§5
// "re-entrant publish is supported and queued").
package event

import (
	"reflect"
	"sync"
)

// Category groups messages for coarse filtering/diagnostics (spec.md
// §4.7 "categories... GraphManagement, ResourceInvalidation,
// ShaderEvents, BudgetEvents").
type Category string

const (
	GraphManagement      Category = "graph_management"
	ResourceInvalidation Category = "resource_invalidation"
	ShaderEvents         Category = "shader_events"
	BudgetEvents         Category = "budget_events"
	FrameEvents          Category = "frame_events"
)

// SenderID identifies the publisher of a message, e.g. a node's name or
// a façade-level identifier like "graph".
type SenderID string

// Message is any payload published on the bus. Concrete message types
// embed baseMessage to satisfy this trivially.
type Message interface {
	Category() Category
	Sender() SenderID
}

// baseMessage is embedded by every standard message type, mirroring the
// teacher's BaseBehavior no-op-default pattern applied to data instead
// of behavior.
type baseMessage struct {
	category Category
	sender   SenderID
}

func (b baseMessage) Category() Category { return b.category }
func (b baseMessage) Sender() SenderID   { return b.sender }

// subscriber wraps a type-erased handler so the Bus can store
// subscriptions for every message type in one map.
type subscriber struct {
	id      uint64
	msgType reflect.Type
	handle  func(Message)
}

// Subscription is the RAII-style handle returned by Subscribe;
// Unsubscribe removes the handler. Safe to call more than once.
type Subscription struct {
	bus *Bus
	id  uint64
}

// Unsubscribe removes this subscription's handler from the bus. A no-op
// if already unsubscribed.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.unsubscribe(s.id)
	s.bus = nil
}

// ScopedSubscriptions accumulates Subscriptions for bulk teardown, e.g. a
// node's lifetime-scoped handlers released together in Cleanup.
type ScopedSubscriptions struct {
	subs []*Subscription
}

// Add records sub for later bulk unsubscribe.
func (s *ScopedSubscriptions) Add(sub *Subscription) { s.subs = append(s.subs, sub) }

// UnsubscribeAll releases every subscription added so far and clears the
// scope so it can be reused.
func (s *ScopedSubscriptions) UnsubscribeAll() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = s.subs[:0]
}

// Bus is a typed, synchronous publish/subscribe hub. Safe for concurrent
// Subscribe/Unsubscribe/Publish calls, though handlers themselves run on
// the publisher's goroutine and must be short (spec.md §4.7 "handlers
// run on the publisher's thread and must be short").
type Bus struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers map[reflect.Type][]*subscriber

	publishing int
	pending    []Message
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[reflect.Type][]*subscriber)}
}

// Subscribe registers handler for messages of type T, returning a
// Subscription that can later Unsubscribe. Generic type parameters
// cannot appear on methods in Go, so Subscribe is a package-level
// function taking the bus explicitly.
func Subscribe[T Message](bus *Bus, handler func(T)) *Subscription {
	var zero T
	msgType := reflect.TypeOf(zero)

	bus.mu.Lock()
	id := bus.nextID
	bus.nextID++
	sub := &subscriber{
		id:      id,
		msgType: msgType,
		handle: func(m Message) {
			handler(m.(T))
		},
	}
	bus.subscribers[msgType] = append(bus.subscribers[msgType], sub)
	bus.mu.Unlock()

	return &Subscription{bus: bus, id: id}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for msgType, subs := range b.subscribers {
		for i, s := range subs {
			if s.id == id {
				b.subscribers[msgType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers msg to every subscriber registered for its concrete
// type, in registration order. If called from inside a handler (i.e.
// re-entrantly), msg is queued and delivered after the in-progress
// Publish call's handlers finish, preserving publish order without
// recursing the call stack.
func (b *Bus) Publish(msg Message) {
	b.mu.Lock()
	if b.publishing > 0 {
		b.pending = append(b.pending, msg)
		b.mu.Unlock()
		return
	}
	b.publishing++
	b.mu.Unlock()

	b.deliver(msg)

	for {
		b.mu.Lock()
		if len(b.pending) == 0 {
			b.publishing--
			b.mu.Unlock()
			break
		}
		next := b.pending[0]
		b.pending = b.pending[1:]
		b.mu.Unlock()
		b.deliver(next)
	}
}

func (b *Bus) deliver(msg Message) {
	msgType := reflect.TypeOf(msg)
	b.mu.Lock()
	subs := make([]*subscriber, len(b.subscribers[msgType]))
	copy(subs, b.subscribers[msgType])
	b.mu.Unlock()

	for _, s := range subs {
		s.handle(msg)
	}
}

// SubscriberCount returns how many handlers are registered for T,
// primarily useful for tests and diagnostics.
func SubscriberCount[T Message](bus *Bus) int {
	var zero T
	msgType := reflect.TypeOf(zero)
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return len(bus.subscribers[msgType])
}
