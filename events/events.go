package events

import (
	"context"
	"sync"

	"truthchain/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange          EventType = "balance_change"
	EventTypeUserCreated            EventType = "user_created"
	EventTypeStakePlaced            EventType = "stake_placed"
	EventTypeStakeReversed          EventType = "stake_reversed"
	EventTypePostCreated            EventType = "post_created"
	EventTypeReconciliationRequired EventType = "reconciliation_required"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          string
	OldBalance      decimal.Decimal
	NewBalance      decimal.Decimal
	TransactionType models.TransactionType
	ChangeAmount    decimal.Decimal
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new user creation
type UserCreatedEvent struct {
	UserID       string
	Username     string
	WelcomeBonus decimal.Decimal
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// StakePlacedEvent represents a stake that was placed on a post
type StakePlacedEvent struct {
	RecordID string
	PostID   string
	StakerID string
	Amount   decimal.Decimal
	Kind     models.StakeKind
}

func (e StakePlacedEvent) Type() EventType {
	return EventTypeStakePlaced
}

// StakeReversedEvent represents a stake that was refunded
type StakeReversedEvent struct {
	RecordID string
	PostID   string
	StakerID string
	Amount   decimal.Decimal
	Kind     models.StakeKind
}

func (e StakeReversedEvent) Type() EventType {
	return EventTypeStakeReversed
}

// PostCreatedEvent represents a new post with its author's initial stake
type PostCreatedEvent struct {
	PostID      string
	AuthorID    string
	StakeAmount decimal.Decimal
}

func (e PostCreatedEvent) Type() EventType {
	return EventTypePostCreated
}

// ReconciliationRequiredEvent is emitted when a compensating credit failed
// after a successful debit. Operators subscribe to this; it is the one
// event that must never be dropped silently.
type ReconciliationRequiredEvent struct {
	UserID         string
	PostID         string
	Amount         decimal.Decimal
	IdempotencyKey string
	Reason         string
}

func (e ReconciliationRequiredEvent) Type() EventType {
	return EventTypeReconciliationRequired
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after a successful commit.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit. Events are emitted on a
// background context so they are not cancelled with the request.
func (b *TransactionalBus) Flush(ctx context.Context) {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after a rollback to drop pending events
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
