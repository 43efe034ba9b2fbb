package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/osse101/CardVault_Go/internal/config"
	"github.com/osse101/CardVault_Go/internal/event"
	"github.com/osse101/CardVault_Go/internal/metrics"
)

// EventSystem bundles the in-process bus, the publisher services write
// through, and the optional NATS forwarder.
type EventSystem struct {
	Bus       *event.MemoryBus
	Publisher *event.ResilientPublisher

	natsConn      *nats.Conn
	natsBus       *event.NATSBus
	natsPublisher *event.ResilientPublisher
}

// publisherSettings applies defaults for unset retry configuration
func publisherSettings(cfg *config.Config) (int, string) {
	maxRetries := cfg.EventMaxRetries
	if maxRetries == 0 {
		maxRetries = EventDefaultMaxRetries
	}
	deadLetterPath := cfg.EventDeadLetterPath
	if deadLetterPath == "" {
		deadLetterPath = EventDefaultDeadLetterPath
	}
	return maxRetries, deadLetterPath
}

// natsDeadLetterPath keeps the forwarder's dead letters in their own file
func natsDeadLetterPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + NATSDeadLetterSuffix + ext
}

// InitializeEventSystem creates the event bus and resilient publisher,
// registers the metrics collector, and forwards every event type to NATS
// when NATS_URL is set.
func InitializeEventSystem(cfg *config.Config) (*EventSystem, error) {
	maxRetries, deadLetterPath := publisherSettings(cfg)
	retryDelay := cfg.EventRetryDelay
	if retryDelay == 0 {
		retryDelay = EventDefaultRetryDelay
	}

	if err := os.MkdirAll(filepath.Dir(deadLetterPath), DirPermission); err != nil {
		return nil, fmt.Errorf("%s: %w", LogMsgFailedCreateDeadLetterDir, err)
	}

	bus := event.NewMemoryBus()
	if err := metrics.NewEventMetricsCollector().Register(bus); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedRegisterMetrics, err)
	}
	slog.Info(LogMsgMetricsCollectorRegistered)

	publisher, err := event.NewResilientPublisher(bus, maxRetries, retryDelay, deadLetterPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LogMsgFailedCreateResilientPublisher, err)
	}
	sys := &EventSystem{Bus: bus, Publisher: publisher}

	if cfg.NATSURL != "" {
		conn, err := event.ConnectNATS(cfg.NATSURL, cfg.NATSToken)
		if err != nil {
			_ = publisher.Shutdown(context.Background())
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedConnectNATS, err)
		}
		sys.natsConn = conn
		sys.natsBus = event.NewNATSBus(conn, cfg.NATSSubjectPrefix)
		sys.natsPublisher, err = event.NewResilientPublisher(sys.natsBus, maxRetries, retryDelay, natsDeadLetterPath(deadLetterPath))
		if err != nil {
			_ = publisher.Shutdown(context.Background())
			conn.Close()
			return nil, fmt.Errorf("%s: %w", LogMsgFailedCreateResilientPublisher, err)
		}
		event.Forward(bus, sys.natsPublisher, event.AllTypes...)
		slog.Info(LogMsgNATSForwardingEnabled, "subject_prefix", cfg.NATSSubjectPrefix)
	}

	slog.Info(LogMsgEventSystemInitialized,
		"max_retries", maxRetries,
		"retry_delay", retryDelay,
		"deadletter_path", deadLetterPath)

	return sys, nil
}

// Shutdown flushes the domain publisher first so that forwarded events reach
// the NATS publisher before it drains.
func (s *EventSystem) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.Publisher.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.natsPublisher != nil {
		if err := s.natsPublisher.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.natsBus != nil {
		if err := s.natsBus.Close(); err != nil {
			slog.Error(LogMsgNATSCloseFailed, "error", err)
		}
		s.natsConn.Close()
	}
	return errors.Join(errs...)
}
