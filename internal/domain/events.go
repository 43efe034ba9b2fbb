package domain

// Event type constants used across the application for event bus subscriptions
// and metrics tracking.
//
// Event types follow the pattern: <entity>.<action> (e.g., "audit.finalized")
const (
	// EventTypeAuditStarted is published after an audit session snapshot is committed
	EventTypeAuditStarted = "audit.started"

	// EventTypeAuditFinalized is published after an audit is reconciled
	EventTypeAuditFinalized = "audit.finalized"

	// EventTypeAuditCancelled is published after an audit session is deleted
	EventTypeAuditCancelled = "audit.cancelled"

	// EventTypeFoilSwapped is published after a foil swap during a deck audit
	EventTypeFoilSwapped = "audit.foil_swapped"

	// EventTypeStackAcquired is published when units enter a collection
	EventTypeStackAcquired = "stack.acquired"

	// EventTypeStackDisposed is published when units leave a collection
	EventTypeStackDisposed = "stack.disposed"

	// EventTypeStackRelocated is published after a stand-alone move between locations
	EventTypeStackRelocated = "stack.relocated"
)
