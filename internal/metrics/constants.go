package metrics

// ============================================================================
// Metric Names
// ============================================================================

// MetricNamespace prefixes the business metrics
const MetricNamespace = "cardvault"

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Event metric names
const (
	MetricNameEventsPublished    = "events_published_total"
	MetricNameEventHandlerErrors = "event_handler_errors_total"
)

// Business metric names
const (
	MetricNameUnitsRelocated        = "units_relocated_total"
	MetricNameStacksMaterialized    = "stacks_materialized_total"
	MetricNameRelocationShortfalls  = "relocation_shortfalls_total"
	MetricNameAuditSessions         = "audit_sessions_total"
	MetricNameAuditItemsReconciled  = "audit_items_reconciled_total"
	MetricNameAuditFinalizeDuration = "audit_finalize_duration_seconds"
	MetricNameUnitsAcquired         = "units_acquired_total"
	MetricNameUnitsDisposed         = "units_disposed_total"
)

// ============================================================================
// Metric Help Text
// ============================================================================

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Event metric help text
const (
	HelpTextEventsPublished    = "Total number of events published"
	HelpTextEventHandlerErrors = "Total number of event handler errors"
)

// Business metric help text
const (
	HelpTextUnitsRelocated        = "Total number of card units moved between locations"
	HelpTextStacksMaterialized    = "Total number of card units created to cover a relocation shortfall"
	HelpTextRelocationShortfalls  = "Total number of relocations that ran out of source stacks"
	HelpTextAuditSessions         = "Total number of audit session transitions"
	HelpTextAuditItemsReconciled  = "Total number of audit items processed by finalize"
	HelpTextAuditFinalizeDuration = "Audit finalize latency in seconds"
	HelpTextUnitsAcquired         = "Total number of card units added to collections"
	HelpTextUnitsDisposed         = "Total number of card units removed from collections"
)

// ============================================================================
// Metric Label Names
// ============================================================================

// Common label names used across metrics
const (
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelStatus  = "status"
	LabelType    = "type"
	LabelReason  = "reason"
	LabelOutcome = "outcome"
	LabelScope   = "scope"
)

// Relocation reasons
const (
	ReasonMove     = "move"
	ReasonFinalize = "finalize"
	ReasonFoilSwap = "foil_swap"
)

// Audit session outcomes
const (
	OutcomeStarted   = "started"
	OutcomeConflict  = "conflict"
	OutcomeFinalized = "finalized"
	OutcomeCancelled = "cancelled"
)

// ============================================================================
// Histogram Buckets
// ============================================================================

// HTTPLatencyBuckets defines the histogram buckets for HTTP request duration
// in seconds, from 1ms to 10s.
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// FinalizeLatencyBuckets covers large collection audits that reconcile thousands of items.
var FinalizeLatencyBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

// ============================================================================
// Log Messages
// ============================================================================

// Debug log messages
const (
	LogMsgMetricsRecorded = "Metrics recorded for event"
)

// UnmatchedRoute labels requests that did not resolve to a chi route
const UnmatchedRoute = "unmatched"
