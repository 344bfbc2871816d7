// Package sink provides EventSink implementations bridging the
// broadcast pipeline to concrete consumers.
package sink

import (
	"context"
	"log/slog"
	"time"

	"babelroom/contract"
	"babelroom/domain/event"
	apperrors "babelroom/errors"
)

var _ contract.EventSink = (*ConnSink)(nil)

// ConnSink buffers events for one websocket connection. The transport
// handler drains Events and writes frames; Consume never blocks the
// broadcast worker longer than the delivery timeout. An overrun buffer
// drops the push — the client's refetch path recovers it.
type ConnSink struct {
	Events          chan event.DomainEvent
	deliveryTimeout time.Duration
	log             *slog.Logger
}

func NewConnSink(log *slog.Logger, bufferSize int, deliveryTimeout time.Duration) *ConnSink {
	return &ConnSink{
		Events:          make(chan event.DomainEvent, bufferSize),
		deliveryTimeout: deliveryTimeout,
		log:             log,
	}
}

func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.deliveryTimeout):
		return apperrors.ErrChannelClosed
	}
}
