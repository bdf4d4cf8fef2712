// Package eventbus fans events out to any number of downstream consumers
// (the Prometheus SystemStatus mirror, the OTel bridge, an HTTP status
// endpoint, ...) without the publisher knowing any of them exist. Adapted
// from the teacher's telemetry event bus: bounded per-subscriber channels, a
// non-blocking publish that drops rather than stalls the publisher's
// goroutine, and a running drop counter per subscriber.
//
// Generic over the payload type (mirroring the teacher's own Bus, which
// fans out an interface-typed event rather than one concrete struct) so
// watcher.Scheduler can own a Bus[watcher.Data] without this package having
// to import watcher — publisher and payload type both live on the caller's
// side of the generic parameter, so there is nothing here to create an
// import cycle with.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// Subscription is a handle for one consumer of published events.
type Subscription[T any] interface {
	C() <-chan T
	Close()
	ID() int64
}

// Bus is a bounded, non-blocking fanout of published events of type T.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   map[int64]*subscriber[T]
	nextID int64

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New returns an empty Bus for payload type T.
func New[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[int64]*subscriber[T])}
}

// Publish fans data out to every current subscriber. A subscriber whose
// buffer is full has this event dropped for it rather than blocking the
// publisher; Stats reports how often that happened.
func (b *Bus[T]) Publish(data T) {
	b.mu.RLock()
	subs := make([]*subscriber[T], 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	b.published.Add(1)
	for _, s := range subs {
		select {
		case s.ch <- data:
		default:
			s.dropped.Add(1)
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a new consumer with the given channel buffer size
// (64 if buffer<=0).
func (b *Bus[T]) Subscribe(buffer int) Subscription[T] {
	if buffer <= 0 {
		buffer = 64
	}
	id := atomic.AddInt64(&b.nextID, 1)
	sub := &subscriber[T]{id: id, ch: make(chan T, buffer), bus: b}
	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call more than
// once.
func (b *Bus[T]) Unsubscribe(sub Subscription[T]) {
	if sub == nil {
		return
	}
	id := sub.ID()
	b.mu.Lock()
	s, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if ok {
		close(s.ch)
	}
}

// Stats is a point-in-time snapshot of bus activity.
type Stats struct {
	Subscribers int
	Published   uint64
	Dropped     uint64
}

// Stats reports current bus activity.
func (b *Bus[T]) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{Subscribers: len(b.subs), Published: b.published.Load(), Dropped: b.dropped.Load()}
}

type subscriber[T any] struct {
	id      int64
	ch      chan T
	bus     *Bus[T]
	dropped atomic.Uint64
}

func (s *subscriber[T]) C() <-chan T { return s.ch }
func (s *subscriber[T]) ID() int64   { return s.id }
func (s *subscriber[T]) Close()      { s.bus.Unsubscribe(s) }
