package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/CardVault_Go/internal/domain"
)

// Type represents the type of an event
type Type string

// Metadata defines the type for event metadata
type Metadata interface{}

// Event represents a generic event in the system
type Event struct {
	Version  string      `json:"version"` // Event schema version (e.g., "1.0")
	Type     Type        `json:"type"`
	Payload  interface{} `json:"payload"`
	Metadata Metadata    `json:"metadata"`
}

// GetMetadataValue extracts a value from the event metadata safely
func (e Event) GetMetadataValue(key string) interface{} {
	if m, ok := e.Metadata.(map[string]interface{}); ok {
		return m[key]
	}
	return nil
}

// Event types published by the collection and audit services
const (
	AuditStarted   Type = domain.EventTypeAuditStarted
	AuditFinalized Type = domain.EventTypeAuditFinalized
	AuditCancelled Type = domain.EventTypeAuditCancelled
	FoilSwapped    Type = domain.EventTypeFoilSwapped
	StackAcquired  Type = domain.EventTypeStackAcquired
	StackDisposed  Type = domain.EventTypeStackDisposed
	StackRelocated Type = domain.EventTypeStackRelocated
)

// AllTypes lists every event type the application publishes
var AllTypes = []Type{
	AuditStarted,
	AuditFinalized,
	AuditCancelled,
	FoilSwapped,
	StackAcquired,
	StackDisposed,
	StackRelocated,
}

// Typed event payloads for type safety

// AuditSessionPayloadV1 is the payload for audit started and cancelled events
type AuditSessionPayloadV1 struct {
	SessionID uuid.UUID `json:"session_id"`
	OwnerID   string    `json:"owner_id"`
	Scope     string    `json:"scope"`
	TargetID  string    `json:"target_id,omitempty"`
	Items     int       `json:"items"`
	Timestamp int64     `json:"timestamp"`
}

// AuditFinalizedPayloadV1 is the payload for audit finalized events
type AuditFinalizedPayloadV1 struct {
	SessionID    uuid.UUID `json:"session_id"`
	OwnerID      string    `json:"owner_id"`
	Applied      int       `json:"applied"`
	Failed       int       `json:"failed"`
	Moved        int       `json:"moved"`
	Materialized int       `json:"materialized"`
	Timestamp    int64     `json:"timestamp"`
}

// FoilSwappedPayloadV1 is the payload for foil swap events
type FoilSwappedPayloadV1 struct {
	SessionID uuid.UUID `json:"session_id"`
	OwnerID   string    `json:"owner_id"`
	DeckID    string    `json:"deck_id"`
	CatalogID string    `json:"catalog_id"`
	Name      string    `json:"name"`
	Timestamp int64     `json:"timestamp"`
}

// StackChangedPayloadV1 is the payload for stack acquired and disposed events
type StackChangedPayloadV1 struct {
	OwnerID   string `json:"owner_id"`
	StackID   int64  `json:"stack_id"`
	CatalogID string `json:"catalog_id"`
	Name      string `json:"name"`
	Finish    string `json:"finish"`
	Location  string `json:"location"`
	Quantity  int    `json:"quantity"`
	Timestamp int64  `json:"timestamp"`
}

// StackRelocatedPayloadV1 is the payload for stand-alone move events
type StackRelocatedPayloadV1 struct {
	OwnerID      string `json:"owner_id"`
	CatalogID    string `json:"catalog_id"`
	Name         string `json:"name"`
	From         string `json:"from"`
	To           string `json:"to"`
	Moved        int    `json:"moved"`
	Materialized int    `json:"materialized"`
	Timestamp    int64  `json:"timestamp"`
}

// Type-safe event constructors

// NewAuditStartedEvent creates an audit started event
func NewAuditStartedEvent(session *domain.AuditSession, items int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    AuditStarted,
		Payload: auditSessionPayload(session, items),
		Metadata: map[string]interface{}{
			MetadataKeySessionID: session.ID.String(),
		},
	}
}

// NewAuditCancelledEvent creates an audit cancelled event
func NewAuditCancelledEvent(session *domain.AuditSession) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    AuditCancelled,
		Payload: auditSessionPayload(session, 0),
		Metadata: map[string]interface{}{
			MetadataKeySessionID: session.ID.String(),
		},
	}
}

func auditSessionPayload(session *domain.AuditSession, items int) AuditSessionPayloadV1 {
	p := AuditSessionPayloadV1{
		SessionID: session.ID,
		OwnerID:   session.OwnerID,
		Scope:     string(session.Scope),
		Items:     items,
		Timestamp: time.Now().Unix(),
	}
	if session.TargetID != nil {
		p.TargetID = *session.TargetID
	}
	return p
}

// NewAuditFinalizedEvent creates an audit finalized event from the finalize report
func NewAuditFinalizedEvent(ownerID string, report *domain.FinalizeReport) Event {
	moved, materialized := 0, 0
	for _, o := range report.Outcomes {
		moved += o.Moved
		materialized += o.Materialized
	}
	return Event{
		Version: EventSchemaVersion,
		Type:    AuditFinalized,
		Payload: AuditFinalizedPayloadV1{
			SessionID:    report.SessionID,
			OwnerID:      ownerID,
			Applied:      report.Applied,
			Failed:       report.Failed,
			Moved:        moved,
			Materialized: materialized,
			Timestamp:    time.Now().Unix(),
		},
		Metadata: map[string]interface{}{
			MetadataKeySessionID: report.SessionID.String(),
		},
	}
}

// NewFoilSwappedEvent creates a foil swap event
func NewFoilSwappedEvent(ownerID string, sessionID uuid.UUID, deckID string, identity domain.StackIdentity) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    FoilSwapped,
		Payload: FoilSwappedPayloadV1{
			SessionID: sessionID,
			OwnerID:   ownerID,
			DeckID:    deckID,
			CatalogID: identity.CatalogID,
			Name:      identity.Name,
			Timestamp: time.Now().Unix(),
		},
		Metadata: map[string]interface{}{
			MetadataKeySessionID: sessionID.String(),
		},
	}
}

// NewStackAcquiredEvent creates an event for units added to a collection
func NewStackAcquiredEvent(stack *domain.CardStack, quantity int) Event {
	return newStackChangedEvent(StackAcquired, stack, quantity)
}

// NewStackDisposedEvent creates an event for units removed from a collection
func NewStackDisposedEvent(stack *domain.CardStack, quantity int) Event {
	return newStackChangedEvent(StackDisposed, stack, quantity)
}

func newStackChangedEvent(t Type, stack *domain.CardStack, quantity int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    t,
		Payload: StackChangedPayloadV1{
			OwnerID:   stack.OwnerID,
			StackID:   stack.ID,
			CatalogID: stack.Identity.CatalogID,
			Name:      stack.Identity.Name,
			Finish:    string(stack.Identity.Finish),
			Location:  stack.Location.String(),
			Quantity:  quantity,
			Timestamp: time.Now().Unix(),
		},
		Metadata: nil,
	}
}

// NewStackRelocatedEvent creates an event for a stand-alone move
func NewStackRelocatedEvent(ownerID string, identity domain.StackIdentity, from, to domain.Location, moved, materialized int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    StackRelocated,
		Payload: StackRelocatedPayloadV1{
			OwnerID:      ownerID,
			CatalogID:    identity.CatalogID,
			Name:         identity.Name,
			From:         from.String(),
			To:           to.String(),
			Moved:        moved,
			Materialized: materialized,
			Timestamp:    time.Now().Unix(),
		},
		Metadata: nil,
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish publishes an event to all subscribers.
// Handlers run synchronously in subscription order.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers, ok := b.handlers[event.Type]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(LogMsgHandlerErrorFormat, len(errs), event.Type, errs)
	}

	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
