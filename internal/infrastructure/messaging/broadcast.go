package messaging

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hampton/progress-tracker/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BROADCASTER
// ══════════════════════════════════════════════════════════════════════════════

// Broadcaster fans events out to channel listeners that come and go, such as
// SSE clients. A slow listener loses events instead of blocking the bus.
type Broadcaster struct {
	mu        sync.Mutex
	listeners map[int]chan shared.EventEnvelope
	next      int
	buffer    int
	dropped   int64
	logger    *slog.Logger
}

// NewBroadcaster creates a broadcaster with per-listener buffers of the given size.
func NewBroadcaster(buffer int, logger *slog.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		listeners: make(map[int]chan shared.EventEnvelope),
		buffer:    buffer,
		logger:    logger,
	}
}

// Attach registers the broadcaster on a bus.
func (b *Broadcaster) Attach(sub shared.EventSubscriber) error {
	return sub.SubscribeAll(b.Handle)
}

// Handle is an EventHandler that forwards the event to every listener.
func (b *Broadcaster) Handle(event shared.Event) error {
	env, err := shared.NewEventEnvelope(uuid.NewString(), event)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.listeners {
		select {
		case ch <- env:
		default:
			b.dropped++
			b.logger.Warn("listener is full, dropping event", "listener", id, "event_type", event.EventType())
		}
	}
	return nil
}

// Listen returns a channel of events and a function that detaches it.
// The channel is closed after cancel is called.
func (b *Broadcaster) Listen() (<-chan shared.EventEnvelope, func()) {
	ch := make(chan shared.EventEnvelope, b.buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Listeners returns the number of attached listeners.
func (b *Broadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Dropped returns how many deliveries were skipped because a listener was full.
func (b *Broadcaster) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
