package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"truthchain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector gathers events a handler received, safe for the async emit
type collector struct {
	mu     sync.Mutex
	events []Event
	done   chan struct{}
}

func newCollector(expected int) *collector {
	return &collector{done: make(chan struct{}, expected)}
}

func (c *collector) handle(ctx context.Context, e Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	c.done <- struct{}{}
}

func (c *collector) wait(t *testing.T, n int) []Event {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestBus_Emit(t *testing.T) {
	bus := NewBus()
	c := newCollector(2)
	bus.Subscribe(EventTypeStakePlaced, c.handle)

	bus.Emit(context.Background(), StakePlacedEvent{
		RecordID: "stake-1",
		PostID:   "post1",
		StakerID: "staker1",
		Amount:   decimal.NewFromInt(3),
		Kind:     models.StakeKindVerification,
	})

	got := c.wait(t, 1)
	require.Len(t, got, 1)
	placed, ok := got[0].(StakePlacedEvent)
	require.True(t, ok)
	assert.Equal(t, "stake-1", placed.RecordID)
}

func TestBus_Emit_OnlyMatchingType(t *testing.T) {
	bus := NewBus()
	c := newCollector(1)
	bus.Subscribe(EventTypeStakeReversed, c.handle)

	bus.Emit(context.Background(), StakePlacedEvent{RecordID: "stake-1"})
	bus.Emit(context.Background(), StakeReversedEvent{RecordID: "stake-2"})

	got := c.wait(t, 1)
	require.Len(t, got, 1)
	assert.Equal(t, EventTypeStakeReversed, got[0].Type())
}

func TestBus_Emit_HandlerPanicIsContained(t *testing.T) {
	bus := NewBus()
	c := newCollector(1)
	bus.Subscribe(EventTypeUserCreated, func(ctx context.Context, e Event) {
		panic("handler bug")
	})
	bus.Subscribe(EventTypeUserCreated, c.handle)

	bus.Emit(context.Background(), UserCreatedEvent{UserID: "user1"})

	// The panicking handler must not take down the other subscriber
	got := c.wait(t, 1)
	assert.Len(t, got, 1)
}

func TestTransactionalBus(t *testing.T) {
	t.Run("flush emits pending events", func(t *testing.T) {
		bus := NewBus()
		c := newCollector(2)
		bus.Subscribe(EventTypeStakePlaced, c.handle)

		txBus := NewTransactionalBus(bus)
		txBus.Publish(StakePlacedEvent{RecordID: "stake-1"})
		txBus.Publish(StakePlacedEvent{RecordID: "stake-2"})

		txBus.Flush(context.Background())

		got := c.wait(t, 2)
		assert.Len(t, got, 2)
	})

	t.Run("discard drops pending events", func(t *testing.T) {
		bus := NewBus()
		received := make(chan Event, 1)
		bus.Subscribe(EventTypeStakePlaced, func(ctx context.Context, e Event) {
			received <- e
		})

		txBus := NewTransactionalBus(bus)
		txBus.Publish(StakePlacedEvent{RecordID: "stake-1"})
		txBus.Discard()
		txBus.Flush(context.Background())

		select {
		case e := <-received:
			t.Fatalf("unexpected event after discard: %v", e)
		case <-time.After(100 * time.Millisecond):
		}
	})
}
