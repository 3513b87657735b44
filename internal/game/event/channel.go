// Package event provides the scoped publish/subscribe channel that decouples
// the simulation from its presentation layer.
package event

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Handler consumes one payload. Payload types are fixed per topic.
type Handler func(payload any)

// Message is one published topic and payload.
type Message struct {
	Topic   Topic
	Payload any
}

// Stats aggregates delivery counters.
type Stats struct {
	Published uint64
	Delivered uint64
	Panics    uint64
}

type subscription struct {
	id      uint64
	topic   Topic
	handler Handler
	ch      *Channel
}

// Subscription removes its handler when Unsubscribe is called.
type Subscription interface {
	Unsubscribe()
}

// Unsubscribe removes the handler. Safe to call more than once and from
// inside a handler.
func (s *subscription) Unsubscribe() {
	s.ch.remove(s)
}

type tap struct {
	id uint64
	fn func(Message)
}

// Channel is an explicitly constructed pub/sub channel scoped to one session.
// Delivery is synchronous, in subscription order.
//
// Registration is safe for concurrent use; Publish is expected to be called
// from the simulation goroutine.
type Channel struct {
	logger *zap.Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[Topic][]*subscription
	taps   []*tap
	stats  Stats
}

// New returns an empty channel.
//
// Precondition: logger must not be nil.
func New(logger *zap.Logger) *Channel {
	if logger == nil {
		panic("event.New: logger must not be nil")
	}
	return &Channel{
		logger: logger,
		subs:   make(map[Topic][]*subscription),
	}
}

// Subscribe registers h for topic.
//
// Precondition: h must not be nil.
// Postcondition: h receives every later Publish on topic until unsubscribed.
func (c *Channel) Subscribe(topic Topic, h Handler) Subscription {
	if h == nil {
		panic("event.Channel.Subscribe: handler must not be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	s := &subscription{id: c.nextID, topic: topic, handler: h, ch: c}
	c.subs[topic] = append(c.subs[topic], s)
	return s
}

// On subscribes a typed handler. Payloads of any other type are logged and
// skipped.
func On[T any](c *Channel, topic Topic, fn func(T)) Subscription {
	return c.Subscribe(topic, func(payload any) {
		v, ok := payload.(T)
		if !ok {
			c.logger.Warn("unexpected payload type",
				zap.String("topic", string(topic)),
				zap.String("type", fmt.Sprintf("%T", payload)),
			)
			return
		}
		fn(v)
	})
}

// Tap registers fn to observe every message on every topic, after the
// topic's own subscribers have run. The returned function removes the tap.
func (c *Channel) Tap(fn func(Message)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	t := &tap{id: c.nextID, fn: fn}
	c.taps = append(c.taps, t)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, other := range c.taps {
			if other.id == t.id {
				c.taps = append(c.taps[:i:i], c.taps[i+1:]...)
				return
			}
		}
	}
}

func (c *Channel) remove(s *subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.subs[s.topic]
	for i, other := range list {
		if other.id == s.id {
			c.subs[s.topic] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every current subscriber of topic.
//
// Postcondition: Handlers subscribed or unsubscribed during delivery do not
// change who receives this message. A panicking handler is logged and the
// remaining handlers still run.
func (c *Channel) Publish(topic Topic, payload any) {
	c.mu.Lock()
	handlers := append([]*subscription(nil), c.subs[topic]...)
	taps := append([]*tap(nil), c.taps...)
	c.stats.Published++
	c.mu.Unlock()

	delivered := uint64(0)
	for _, s := range handlers {
		if c.deliver(topic, func() { s.handler(payload) }) {
			delivered++
		}
	}
	msg := Message{Topic: topic, Payload: payload}
	for _, t := range taps {
		c.deliver(topic, func() { t.fn(msg) })
	}

	c.mu.Lock()
	c.stats.Delivered += delivered
	c.mu.Unlock()
}

func (c *Channel) deliver(topic Topic, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			c.stats.Panics++
			c.mu.Unlock()
			c.logger.Error("event handler panicked",
				zap.String("topic", string(topic)),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()
	fn()
	return true
}

// UnsubscribeAll drops every subscription and tap.
func (c *Channel) UnsubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = make(map[Topic][]*subscription)
	c.taps = nil
}

// Subscribers returns the number of handlers registered for topic.
func (c *Channel) Subscribers(topic Topic) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs[topic])
}

// Stats returns a snapshot of the delivery counters.
func (c *Channel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
