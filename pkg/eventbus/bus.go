// Package eventbus fans typed state-change notifications out to in-process subscribers.
package eventbus

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entity names the family of data an event refers to.
type Entity string

// EntityNamespace marks events that affect every key, such as a backup restore.
const EntityNamespace Entity = "namespace"

// Action describes what happened to the entity.
type Action string

const (
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	ActionReset   Action = "reset"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Entity  Entity    `json:"entity"`
	Key     string    `json:"key"`
	Action  Action    `json:"action"`
	Version int64     `json:"version,omitempty"`
	Origin  string    `json:"origin,omitempty"`
	At      time.Time `json:"at"`
}

// Handler receives events synchronously on the publishing goroutine.
type Handler func(Event)

// Observer is notified after every dispatch with the number of handlers invoked.
type Observer func(evt Event, delivered int, took time.Duration)

type subscription struct {
	id      uint64
	entity  Entity
	all     bool
	handler Handler
	active  atomic.Bool
}

func (s *subscription) matches(evt Event) bool {
	return s.all || evt.Entity == EntityNamespace || s.entity == evt.Entity
}

// Bus is a synchronous publish/subscribe hub. Subscribers run in subscription order.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	subs     []*subscription
	origin   string
	logger   *zap.Logger
	observer Observer
}

// New constructs a bus with a random instance origin.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{origin: uuid.NewString(), logger: logger}
}

// Origin identifies events produced by this process.
func (b *Bus) Origin() string {
	return b.origin
}

// SetObserver installs a dispatch observer, typically a metrics hook.
func (b *Bus) SetObserver(o Observer) {
	b.mu.Lock()
	b.observer = o
	b.mu.Unlock()
}

// Subscribe registers handler for one entity. Namespace events are delivered to every subscriber.
func (b *Bus) Subscribe(entity Entity, handler Handler) func() {
	return b.add(&subscription{entity: entity, handler: handler})
}

// SubscribeAll registers handler for every event.
func (b *Bus) SubscribeAll(handler Handler) func() {
	return b.add(&subscription{all: true, handler: handler})
}

func (b *Bus) add(sub *subscription) func() {
	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	sub.active.Store(true)
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub) })
	}
}

func (b *Bus) remove(sub *subscription) {
	sub.active.Store(false)
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == sub.id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers evt to every matching subscriber before returning.
func (b *Bus) Publish(evt Event) {
	if evt.Origin == "" {
		evt.Origin = b.origin
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	if evt.Action == "" {
		evt.Action = ActionUpdated
	}

	b.mu.RLock()
	snapshot := make([]*subscription, len(b.subs))
	copy(snapshot, b.subs)
	observer := b.observer
	b.mu.RUnlock()

	start := time.Now()
	delivered := 0
	for _, sub := range snapshot {
		if !sub.active.Load() || !sub.matches(evt) {
			continue
		}
		b.dispatch(sub, evt)
		delivered++
	}
	if observer != nil {
		observer(evt, delivered, time.Since(start))
	}
}

func (b *Bus) dispatch(sub *subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("entity", string(evt.Entity)),
				zap.String("key", evt.Key),
				zap.Uint64("subscription", sub.id),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	sub.handler(evt)
}
