package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osse101/CardVault_Go/internal/audit"
	"github.com/osse101/CardVault_Go/internal/collection"
	"github.com/osse101/CardVault_Go/internal/database"
	"github.com/osse101/CardVault_Go/internal/handler"
	"github.com/osse101/CardVault_Go/internal/logger"
	"github.com/osse101/CardVault_Go/internal/metrics"
)

// Options configures the HTTP surface
type Options struct {
	Port               int
	Version            string
	JWTSecret          string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	httpServer        *http.Server
	dbPool            database.Pool
	auditService      audit.Service
	collectionService collection.Service
}

// NewServer creates a new Server instance
func NewServer(opts Options, dbPool database.Pool, auditService audit.Service, collectionService collection.Service) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Port),
			Handler:           NewRouter(opts, dbPool, auditService, collectionService),
			ReadHeaderTimeout: ReadHeaderTimeout,
		},
		dbPool:            dbPool,
		auditService:      auditService,
		collectionService: collectionService,
	}
}

// NewRouter builds the chi router with the full middleware stack
func NewRouter(opts Options, dbPool database.Pool, auditService audit.Service, collectionService collection.Service) http.Handler {
	r := chi.NewRouter()

	// Chi middleware executes in order defined (outermost to innermost)
	detector := NewSuspiciousActivityDetector()

	r.Use(SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", HeaderAuthorization, "Content-Type"},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         CORSMaxAgeSeconds,
	}))
	if opts.RateLimitPerMinute > 0 {
		r.Use(rateLimitMiddleware(opts.RateLimitPerMinute, opts.TrustedProxies))
	}
	r.Use(RequestSizeLimitMiddleware(MaxRequestBodyBytes))
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware)

	// Health check routes (unversioned)
	r.Get("/healthz", handler.HandleHealthz())
	r.Get("/readyz", handler.HandleReadyz(dbPool))
	r.Get("/version", handler.HandleVersion(opts.Version))

	// Metrics endpoint (public, for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	auditHandler := handler.NewAuditHandler(auditService)
	collectionHandler := handler.NewCollectionHandler(collectionService)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(OwnerAuthMiddleware(opts.JWTSecret, opts.TrustedProxies, detector))

		r.Route("/audit", func(r chi.Router) {
			r.Post("/start", auditHandler.HandleStart)
			r.Get("/active", auditHandler.HandleGetActive)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", auditHandler.HandleGet)
				r.Get("/items", auditHandler.HandleListItems)
				r.Post("/items/batch-update", auditHandler.HandleBatchUpdate)
				r.Post("/items/add", auditHandler.HandleAddItem)
				r.Put("/item/{itemId}", auditHandler.HandleRecordCount)
				r.Post("/item/{itemId}/swap-foil", auditHandler.HandleSwapFoil)
				r.Post("/finalize", auditHandler.HandleFinalize)
				r.Post("/cancel", auditHandler.HandleCancel)
				r.Get("/stats", auditHandler.HandleStats)
				r.Post("/section/review", auditHandler.HandleReviewSection)
			})
		})

		r.Route("/collection", func(r chi.Router) {
			r.Get("/", collectionHandler.HandleList)
			r.Post("/", collectionHandler.HandleAcquire)
			r.Get("/export", collectionHandler.HandleExport)
			r.Post("/move", collectionHandler.HandleMove)
			r.Put("/{id}", collectionHandler.HandleUpdate)
			r.Delete("/{id}", collectionHandler.HandleDispose)
		})
	})

	return r
}

// rateLimitMiddleware limits each client IP to perMinute requests
func rateLimitMiddleware(perMinute int, trustedProxies []string) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return extractIP(r, trustedProxies), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Warn(LogMsgRateLimited,
				"ip", extractIP(r, trustedProxies),
				"path", r.URL.Path)
			http.Error(w, ErrMsgTooManyRequests, http.StatusTooManyRequests)
		}),
	)
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func isQuietPath(path string) bool {
	for _, p := range QuietPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isQuietPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()

		requestID := logger.GenerateRequestID()
		ctx := logger.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, requestID)

		log := logger.FromContext(ctx)
		log.Info(LogMsgRequestStarted,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_length", r.ContentLength,
			"user_agent", r.UserAgent())

		sanitizedHeaders := make(http.Header)
		for k, v := range r.Header {
			if strings.EqualFold(k, HeaderAuthorization) {
				sanitizedHeaders[k] = []string{RedactedValue}
			} else {
				sanitizedHeaders[k] = v
			}
		}
		log.Debug(LogMsgRequestHeaders, "headers", sanitizedHeaders)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Info(LogMsgRequestCompleted,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds())
	})
}

// Start starts the server
func (s *Server) Start() error {
	slog.Default().Info(LogMsgServerStarting, "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
