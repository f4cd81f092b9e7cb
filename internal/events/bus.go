package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// subscriberBufferSize is the channel buffer for each subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 100

// Bus fans events out to subscribers. It is safe for concurrent use and never
// blocks the publisher.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int
	now    func() time.Time
	log    zerolog.Logger
}

type subscription struct {
	ch    chan Event
	types map[EventType]bool
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
		now:  time.Now,
		log:  log.With().Str("service", "events").Logger(),
	}
}

// Subscribe returns a channel receiving events of the given types (all types
// when none are given) and a function that unsubscribes and closes it.
func (b *Bus) Subscribe(types ...EventType) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{ch: make(chan Event, subscriberBufferSize)}
	if len(types) > 0 {
		sub.types = make(map[EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(sub.ch)
		})
	}
}

// Emit publishes typed data from module to every interested subscriber.
// Events are dropped for subscribers whose buffers are full.
func (b *Bus) Emit(module string, data EventData) {
	event := Event{
		Type:      data.EventType(),
		Timestamp: b.now(),
		Module:    module,
		Data:      data,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.types != nil && !sub.types[event.Type] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Subscriber channel full, dropping event")
		}
	}

	b.log.Debug().
		Str("event_type", string(event.Type)).
		Str("module", module).
		Msg("Event emitted")
}

// EmitError emits an ErrorOccurred event
func (b *Bus) EmitError(module string, err error, context map[string]interface{}) {
	b.Emit(module, &ErrorEventData{Error: err.Error(), Context: context})
}

// Subscribers returns the number of active subscriptions
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
