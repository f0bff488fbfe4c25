package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hampton/progress-tracker/internal/domain/shared"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var at = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func syncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{Logger: quiet(), EnableMetrics: true})
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var xp, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventXPGained, func(e shared.Event) error {
		xp = append(xp, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("u1", at, 100, 100, "module:w1m1")))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("u1", at, 1, 2, 100)))

	assert.Equal(t, []shared.EventType{shared.EventXPGained}, xp)
	assert.Equal(t, []shared.EventType{shared.EventXPGained, shared.EventLevelUp}, all)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(3), snap.TotalHandlerExecs)
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var reached bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("handler bug") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		reached = true
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewBadgeEarnedEvent("u1", at, "novice", "Novice")))
	assert.True(t, reached)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.HandlerFailures)
}

func TestInMemoryEventBus_AsyncDrainsOnClose(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2, Logger: quiet()})

	var n atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		n.Add(1)
		return nil
	}))
	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(shared.NewXPGainedEvent("u1", at, 10, 10*(i+1), "manual")))
	}
	require.NoError(t, bus.Close())

	assert.LessOrEqual(t, n.Load(), int32(10))
	assert.ErrorIs(t, bus.Publish(shared.NewXPGainedEvent("u1", at, 1, 1, "manual")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.Nil(t, bus.Metrics())
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	assert.Error(t, bus.Publish(nil))
	assert.Error(t, bus.Subscribe(shared.EventLevelUp, nil))
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS
// ══════════════════════════════════════════════════════════════════════════════

type fakeHub struct {
	mu   sync.Mutex
	subs map[string][]chan RedisMessage
}

type fakeRedis struct {
	hub    *fakeHub
	failed bool
	closed bool
}

func newFakeHub() *fakeHub { return &fakeHub{subs: map[string][]chan RedisMessage{}} }

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) error {
	if f.failed {
		return errors.New("connection refused")
	}
	f.hub.mu.Lock()
	defer f.hub.mu.Unlock()
	for _, ch := range f.hub.subs[channel] {
		ch <- RedisMessage{Channel: channel, Payload: message.(string)}
	}
	return nil
}

func (f *fakeRedis) Subscribe(_ context.Context, channels ...string) (<-chan RedisMessage, error) {
	ch := make(chan RedisMessage, 16)
	f.hub.mu.Lock()
	defer f.hub.mu.Unlock()
	for _, c := range channels {
		f.hub.subs[c] = append(f.hub.subs[c], ch)
	}
	return ch, nil
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisEventBus_RelaysBetweenInstances(t *testing.T) {
	hub := newFakeHub()

	server, err := NewRedisEventBus(RedisEventBusConfig{Client: &fakeRedis{hub: hub}, InstanceID: "server", Logger: quiet()})
	require.NoError(t, err)
	defer server.Close()

	cli, err := NewRedisEventBus(RedisEventBusConfig{Client: &fakeRedis{hub: hub}, InstanceID: "cli", PublishOnly: true, Logger: quiet()})
	require.NoError(t, err)
	defer cli.Close()

	received := make(chan shared.Event, 4)
	require.NoError(t, server.SubscribeAll(func(e shared.Event) error {
		received <- e
		return nil
	}))

	var local int
	require.NoError(t, cli.SubscribeAll(func(shared.Event) error {
		local++
		return nil
	}))

	require.NoError(t, cli.Publish(shared.NewModuleCompletedEvent("u1", at, "w1m2", 1, 2, 100)))
	assert.Equal(t, 1, local)

	select {
	case e := <-received:
		assert.Equal(t, shared.EventModuleCompleted, e.EventType())
		assert.Equal(t, "u1", e.AggregateID())
		assert.True(t, at.Equal(e.OccurredAt()))
		assert.Equal(t, "w1m2", e.Payload()["module_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("event was not relayed")
	}
}

func TestRedisEventBus_SkipsOwnMessages(t *testing.T) {
	hub := newFakeHub()
	bus, err := NewRedisEventBus(RedisEventBusConfig{Client: &fakeRedis{hub: hub}, InstanceID: "solo", Logger: quiet()})
	require.NoError(t, err)

	var n atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		n.Add(1)
		return nil
	}))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("u1", at, 1, 2, 100)))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, bus.Close())

	assert.Equal(t, int32(1), n.Load())
}

func TestRedisEventBus_RedisFailureIsNotFatal(t *testing.T) {
	client := &fakeRedis{hub: newFakeHub(), failed: true}
	bus, err := NewRedisEventBus(RedisEventBusConfig{Client: client, PublishOnly: true, Logger: quiet()})
	require.NoError(t, err)

	var delivered bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		delivered = true
		return nil
	}))
	assert.NoError(t, bus.Publish(shared.NewProjectSelectedEvent("u1", at, "tictactoe")))
	assert.True(t, delivered)

	require.NoError(t, bus.Close())
	assert.True(t, client.closed)
	assert.ErrorIs(t, bus.Publish(shared.NewProjectSelectedEvent("u1", at, "tictactoe")), ErrEventBusClosed)
}

func TestNewRedisEventBus_RequiresClient(t *testing.T) {
	_, err := NewRedisEventBus(RedisEventBusConfig{})
	assert.Error(t, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// BROADCASTER
// ══════════════════════════════════════════════════════════════════════════════

func TestBroadcaster(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	b := NewBroadcaster(1, quiet())
	require.NoError(t, b.Attach(bus))

	events, cancel := b.Listen()
	assert.Equal(t, 1, b.Listeners())

	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("u1", at, 1, 2, false)))
	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("u1", at, 2, 3, false)))

	env := <-events
	assert.Equal(t, shared.EventStreakUpdated, env.Type)
	assert.JSONEq(t, `{"old_streak":1,"new_streak":2,"broken":false}`, string(env.Payload))
	assert.Equal(t, int64(1), b.Dropped())

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)
	assert.Zero(t, b.Listeners())
}
