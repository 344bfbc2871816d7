package sink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"babelroom/domain"
	"babelroom/domain/event"
	apperrors "babelroom/errors"
)

func TestConnSink_Buffers_Events(t *testing.T) {
	req := require.New(t)
	connSink := NewConnSink(slog.Default(), 2, time.Second)

	evt := event.PresenceSnapshot{Room: "general"}
	req.NoError(connSink.Consume(context.Background(), evt))
	req.Equal(evt, event.DomainEvent(<-connSink.Events))
}

func TestConnSink_Full_Buffer_Drops_After_Timeout(t *testing.T) {
	req := require.New(t)
	connSink := NewConnSink(slog.Default(), 1, 20*time.Millisecond)

	evt := event.PresenceSnapshot{Room: "general"}
	req.NoError(connSink.Consume(context.Background(), evt))

	// The buffer is full and nobody drains it; the push is dropped so
	// the broadcast worker can move on.
	err := connSink.Consume(context.Background(), evt)
	req.ErrorIs(err, apperrors.ErrChannelClosed)
}

func TestConnSink_Respects_Context_Cancellation(t *testing.T) {
	req := require.New(t)
	connSink := NewConnSink(slog.Default(), 1, time.Minute)

	req.NoError(connSink.Consume(context.Background(), event.PresenceSnapshot{Room: "general"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := connSink.Consume(ctx, event.NewMessage{Message: domain.Message{Room: "general"}})
	req.ErrorIs(err, context.Canceled)
}

func TestLogSink_Consumes_All_Event_Types(t *testing.T) {
	req := require.New(t)
	logSink := NewLogSink(slog.Default())

	req.NoError(logSink.Consume(context.Background(), event.NewMessage{}))
	req.NoError(logSink.Consume(context.Background(), event.TranslationReady{}))
	req.NoError(logSink.Consume(context.Background(), event.PresenceSnapshot{}))
}
