package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/osse101/CardVault_Go/internal/logger"
)

// NATSBus publishes events as JSON on "<prefix>.<type>" subjects
type NATSBus struct {
	conn   *nats.Conn
	prefix string

	mu   sync.Mutex
	subs []*nats.Subscription
}

// ConnectNATS dials the server, authenticating with a token when one is given
func ConnectNATS(url, token string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(NATSConnectionName),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	return nats.Connect(url, opts...)
}

// NewNATSBus creates a bus over an established connection
func NewNATSBus(conn *nats.Conn, prefix string) *NATSBus {
	return &NATSBus{conn: conn, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject an event type is published on
func (b *NATSBus) Subject(eventType Type) string {
	if b.prefix == "" {
		return string(eventType)
	}
	return b.prefix + "." + string(eventType)
}

// Publish encodes the event and publishes it
func (b *NATSBus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgNATSEncode, err)
	}
	if err := b.conn.Publish(b.Subject(event.Type), data); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgNATSPublish, err)
	}
	return nil
}

// Subscribe registers a handler for events of the given type. Payloads arrive
// as decoded JSON maps; handlers use DecodePayload to get typed values.
func (b *NATSBus) Subscribe(eventType Type, handler Handler) {
	sub, err := b.conn.Subscribe(b.Subject(eventType), func(msg *nats.Msg) {
		ctx := context.Background()
		var evt Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			logger.FromContext(ctx).Error(LogMsgNATSDecodeFailed, "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, evt); err != nil {
			logger.FromContext(ctx).Error(LogMsgNATSHandlerFailed, "event_type", evt.Type, "error", err)
		}
	})
	if err != nil {
		logger.Error(LogMsgNATSSubscribeFailed, "event_type", eventType, "error", err)
		return
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
}

// Close unsubscribes every handler and flushes pending publishes
func (b *NATSBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	return b.conn.FlushTimeout(NATSFlushTimeout)
}

// Forward subscribes to every listed type on source and republishes each event
// through target. Forwarding failures are handled by the target's retry queue.
func Forward(source Bus, target *ResilientPublisher, types ...Type) {
	for _, t := range types {
		source.Subscribe(t, func(ctx context.Context, evt Event) error {
			target.PublishWithRetry(ctx, evt)
			return nil
		})
	}
}
