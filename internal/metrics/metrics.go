package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Event Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventHandlerErrors,
			Help: HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)
)

// Business Metrics
var (
	UnitsRelocated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Name:      MetricNameUnitsRelocated,
			Help:      HelpTextUnitsRelocated,
		},
		[]string{LabelReason},
	)

	StacksMaterialized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Name:      MetricNameStacksMaterialized,
			Help:      HelpTextStacksMaterialized,
		},
		[]string{LabelReason},
	)

	RelocationShortfalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Name:      MetricNameRelocationShortfalls,
			Help:      HelpTextRelocationShortfalls,
		},
		[]string{LabelReason},
	)

	AuditSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Name:      MetricNameAuditSessions,
			Help:      HelpTextAuditSessions,
		},
		[]string{LabelScope, LabelOutcome},
	)

	AuditItemsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Name:      MetricNameAuditItemsReconciled,
			Help:      HelpTextAuditItemsReconciled,
		},
		[]string{LabelStatus},
	)

	AuditFinalizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricNamespace,
			Name:      MetricNameAuditFinalizeDuration,
			Help:      HelpTextAuditFinalizeDuration,
			Buckets:   FinalizeLatencyBuckets,
		},
	)

	UnitsAcquired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Name:      MetricNameUnitsAcquired,
			Help:      HelpTextUnitsAcquired,
		},
	)

	UnitsDisposed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Name:      MetricNameUnitsDisposed,
			Help:      HelpTextUnitsDisposed,
		},
	)
)
