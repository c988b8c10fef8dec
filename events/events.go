package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRosterSynced       EventType = "roster_synced"
	EventTypeViolationsRecorded EventType = "violations_recorded"
	EventTypeResetAdvanced      EventType = "reset_advanced"
)

// AllEventTypes lists every event type, for bridges that fan out everything
var AllEventTypes = []EventType{
	EventTypeRosterSynced,
	EventTypeViolationsRecorded,
	EventTypeResetAdvanced,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// RosterSyncedEvent represents a completed roster reconciliation that
// changed membership state
type RosterSyncedEvent struct {
	GuildID     string
	Added       int
	Removed     int
	Reactivated int
}

func (e RosterSyncedEvent) Type() EventType {
	return EventTypeRosterSynced
}

// ViolationsRecordedEvent represents a compliance check that persisted
// violation records for a reset cycle
type ViolationsRecordedEvent struct {
	GuildID   string
	ResetAt   time.Time
	Violators int
}

func (e ViolationsRecordedEvent) Type() EventType {
	return EventTypeViolationsRecorded
}

// ResetAdvancedEvent represents a guild's reset timestamp moving to the
// next cycle
type ResetAdvancedEvent struct {
	GuildID    string
	OldResetAt time.Time
	NewResetAt time.Time
}

func (e ResetAdvancedEvent) Type() EventType {
	return EventTypeResetAdvanced
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

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously so a slow subscriber cannot block the emitter.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

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

// TransactionalBus stashes events published during a database transaction
// and flushes them to the real bus only after a successful commit.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional wrapper over the main bus
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish queues an event until Flush or Discard
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events. Called after a successful DB commit.
// Events are emitted on a background context because they outlive the
// transaction that produced them.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events. Called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
