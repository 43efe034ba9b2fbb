package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/osse101/CardVault_Go/internal/logger"
)

type retryEntry struct {
	event    Event
	attempts int
	lastErr  error
}

// ResilientPublisher wraps a Bus with a bounded retry queue and a dead-letter file.
// Callers never see publish failures: an event is either delivered, retried with
// exponential backoff, or written to the dead-letter file.
type ResilientPublisher struct {
	bus        Bus
	retryQueue chan retryEntry
	maxRetries int
	retryDelay time.Duration
	deadLetter *DeadLetterWriter

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewResilientPublisher creates a publisher and starts its retry worker
func NewResilientPublisher(bus Bus, maxRetries int, retryDelay time.Duration, deadLetterPath string) (*ResilientPublisher, error) {
	dl, err := NewDeadLetterWriter(deadLetterPath)
	if err != nil {
		return nil, err
	}

	rp := &ResilientPublisher{
		bus:        bus,
		retryQueue: make(chan retryEntry, RetryQueueBufferSize),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		deadLetter: dl,
		shutdown:   make(chan struct{}),
	}

	rp.wg.Add(1)
	go rp.retryWorker()

	return rp, nil
}

// PublishWithRetry publishes the event once and queues it for retry on failure
func (rp *ResilientPublisher) PublishWithRetry(ctx context.Context, event Event) {
	err := rp.bus.Publish(ctx, event)
	if err == nil {
		return
	}

	logger.FromContext(ctx).Warn(LogMsgEventPublishFailed,
		"event_type", event.Type,
		"error", err)

	select {
	case <-rp.shutdown:
		rp.writeDeadLetter(event, 1, err)
		return
	default:
	}

	select {
	case rp.retryQueue <- retryEntry{event: event, attempts: 1, lastErr: err}:
	default:
		logger.FromContext(ctx).Error(LogMsgRetryQueueFull, "event_type", event.Type)
		rp.writeDeadLetter(event, 1, err)
	}
}

// Publish satisfies Bus so the publisher can be stacked. It never returns an error.
func (rp *ResilientPublisher) Publish(ctx context.Context, event Event) error {
	rp.PublishWithRetry(ctx, event)
	return nil
}

// Subscribe delegates to the inner bus
func (rp *ResilientPublisher) Subscribe(eventType Type, handler Handler) {
	rp.bus.Subscribe(eventType, handler)
}

func (rp *ResilientPublisher) retryWorker() {
	defer rp.wg.Done()

	for {
		select {
		case entry := <-rp.retryQueue:
			rp.retry(entry)
		case <-rp.shutdown:
			rp.drain()
			return
		}
	}
}

// retry keeps attempting one event until it succeeds, exhausts its budget, or
// the publisher shuts down.
func (rp *ResilientPublisher) retry(entry retryEntry) {
	ctx := context.Background()
	log := logger.FromContext(ctx)

	for entry.attempts <= rp.maxRetries {
		delay := CalculateRetryDelay(rp.retryDelay, entry.attempts)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-rp.shutdown:
			timer.Stop()
			// One last immediate attempt before giving up.
			if err := rp.bus.Publish(ctx, entry.event); err != nil {
				log.Warn(LogMsgEventDroppedShutdown, "event_type", entry.event.Type)
				rp.writeDeadLetter(entry.event, entry.attempts+1, err)
			}
			return
		}

		err := rp.bus.Publish(ctx, entry.event)
		entry.attempts++
		if err == nil {
			log.Info(LogMsgEventRetrySucceeded,
				"event_type", entry.event.Type,
				"attempts", entry.attempts)
			return
		}
		entry.lastErr = err
		log.Warn(LogMsgEventRetryFailed,
			"event_type", entry.event.Type,
			"attempt", entry.attempts,
			"error", err)
	}

	log.Error(LogMsgEventRetryExhausted,
		"event_type", entry.event.Type,
		"attempts", entry.attempts)
	rp.writeDeadLetter(entry.event, entry.attempts, entry.lastErr)
}

// drain makes one final attempt for every queued event
func (rp *ResilientPublisher) drain() {
	ctx := context.Background()
	drained := 0
	for {
		select {
		case entry := <-rp.retryQueue:
			drained++
			if err := rp.bus.Publish(ctx, entry.event); err != nil {
				rp.writeDeadLetter(entry.event, entry.attempts+1, err)
			}
		default:
			if drained > 0 {
				logger.FromContext(ctx).Info(LogMsgQueueDrainedShutdown, "count", drained)
			}
			return
		}
	}
}

func (rp *ResilientPublisher) writeDeadLetter(event Event, attempts int, lastErr error) {
	if err := rp.deadLetter.Write(event, attempts, lastErr); err != nil {
		logger.Error(LogMsgDeadLetterWriteFailed, "event_type", event.Type, "error", err)
	}
}

// Shutdown stops the retry worker, drains the queue and closes the dead-letter file
func (rp *ResilientPublisher) Shutdown(ctx context.Context) error {
	var result error
	rp.shutdownOnce.Do(func() {
		close(rp.shutdown)

		done := make(chan struct{})
		go func() {
			rp.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			logger.Warn(LogMsgShutdownTimeout)
			result = errors.Join(ctx.Err(), rp.deadLetter.Close())
			return
		}

		result = rp.deadLetter.Close()
	})
	return result
}
