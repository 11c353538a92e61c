package event

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	subscriberBuffer         = 100
	losslessSubscriberBuffer = 1024
)

type subscriber struct {
	ch       chan Event
	lossless bool
	// done is closed before ch so a publisher waiting on a lossless
	// subscriber can give up.
	done chan struct{}
}

type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string]*subscriber),
	}
}

// Publish fills in ID and Timestamp when missing and fans the event out.
func (b *InMemoryBus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if sub.lossless {
			select {
			case sub.ch <- e:
			case <-sub.done:
			}
			continue
		}
		// Non-blocking send to avoid blocking the publisher if a subscriber is slow
		select {
		case sub.ch <- e:
		default:
			slog.Warn("event dropped for slow subscriber", "subscriber", id, "type", e.Type)
		}
	}
}

func (b *InMemoryBus) Subscribe() (<-chan Event, func()) {
	return b.subscribe(subscriberBuffer, false)
}

func (b *InMemoryBus) SubscribeLossless() (<-chan Event, func()) {
	return b.subscribe(losslessSubscriberBuffer, true)
}

func (b *InMemoryBus) subscribe(buffer int, lossless bool) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	sub := &subscriber{
		ch:       make(chan Event, buffer),
		lossless: lossless,
		done:     make(chan struct{}),
	}
	b.subscribers[id] = sub

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(sub.done)
			b.mu.Lock()
			defer b.mu.Unlock()
			close(sub.ch)
			delete(b.subscribers, id)
		})
	}

	return sub.ch, unsubscribe
}
