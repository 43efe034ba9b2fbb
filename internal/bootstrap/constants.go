package bootstrap

import "time"

// =============================================================================
// File System Permissions
// =============================================================================

const (
	// DirPermission is the standard permission for creating directories
	DirPermission = 0755
)

// =============================================================================
// Logger Configuration
// =============================================================================

// Log messages for logger initialization
const (
	LogMsgStartingCardVault   = "Starting CardVault"
	LogMsgConfigurationLoaded = "Configuration loaded"
)

// =============================================================================
// Event System Configuration
// =============================================================================

const (
	// EventDefaultMaxRetries is the default number of retry attempts for failed event publishing
	EventDefaultMaxRetries = 5

	// EventDefaultRetryDelay is the default base delay between retry attempts (exponential backoff)
	EventDefaultRetryDelay = 2 * time.Second

	// EventDefaultDeadLetterPath is the default file path for dead-letter event logging
	EventDefaultDeadLetterPath = "logs/event_deadletter.jsonl"

	// NATSDeadLetterSuffix is inserted before the extension of the NATS forwarder's dead-letter file
	NATSDeadLetterSuffix = "_nats"
)

// Log messages for event system initialization
const (
	LogMsgEventSystemInitialized         = "Event system initialized"
	LogMsgNATSForwardingEnabled          = "NATS forwarding enabled"
	LogMsgMetricsCollectorRegistered     = "Metrics collector registered"
	LogMsgFailedCreateDeadLetterDir      = "failed to create dead-letter directory"
	LogMsgFailedCreateResilientPublisher = "failed to create resilient publisher"
	ErrMsgFailedConnectNATS              = "failed to connect to NATS"
	ErrMsgFailedRegisterMetrics          = "failed to register metrics collector"
)

// =============================================================================
// Catalog Import
// =============================================================================

const (
	LogMsgImportingCatalog = "Importing catalog cards"
	LogMsgCatalogImported  = "Catalog import finished"

	ErrMsgFailedReadCatalog   = "failed to read catalog file"
	ErrMsgInvalidCatalog      = "invalid catalog file"
	ErrMsgFailedImportCatalog = "failed to import catalog card"
)

// =============================================================================
// Shutdown Messages
// =============================================================================

const (
	LogMsgShuttingDownServer         = "Shutting down server..."
	LogMsgShuttingDownEventPublisher = "Shutting down event publisher..."
	LogMsgServerStopped              = "Server stopped"
	LogMsgServerForcedShutdown       = "Server forced to shutdown"
	LogMsgResilientPublisherFailed   = "Resilient publisher shutdown failed"
	LogMsgNATSCloseFailed            = "NATS close failed"
)
