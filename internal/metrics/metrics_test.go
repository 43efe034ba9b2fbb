package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/event"
)

func TestEventMetricsCollector_CountsUnits(t *testing.T) {
	bus := event.NewMemoryBus()
	require.NoError(t, NewEventMetricsCollector().Register(bus))

	stack := &domain.CardStack{ID: 1, OwnerID: "o", Identity: domain.StackIdentity{CatalogID: "c"}}
	acquiredBefore := testutil.ToFloat64(UnitsAcquired)
	disposedBefore := testutil.ToFloat64(UnitsDisposed)
	publishedBefore := testutil.ToFloat64(EventsPublished.WithLabelValues(string(event.StackAcquired)))

	require.NoError(t, bus.Publish(context.Background(), event.NewStackAcquiredEvent(stack, 3)))
	require.NoError(t, bus.Publish(context.Background(), event.NewStackDisposedEvent(stack, 2)))

	assert.Equal(t, acquiredBefore+3, testutil.ToFloat64(UnitsAcquired))
	assert.Equal(t, disposedBefore+2, testutil.ToFloat64(UnitsDisposed))
	assert.Equal(t, publishedBefore+1, testutil.ToFloat64(EventsPublished.WithLabelValues(string(event.StackAcquired))))
}

func TestEventMetricsCollector_BadPayload(t *testing.T) {
	c := NewEventMetricsCollector()
	before := testutil.ToFloat64(EventHandlerErrors.WithLabelValues(string(event.StackDisposed)))

	err := c.HandleEvent(context.Background(), event.Event{Type: event.StackDisposed, Payload: "not a payload"})

	assert.Error(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(EventHandlerErrors.WithLabelValues(string(event.StackDisposed))))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/v1/audit/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/audit/{id}", "418"))

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/audit/{id}", "418")))
	assert.Equal(t, float64(0), testutil.ToFloat64(HTTPRequestsInFlight))
}
