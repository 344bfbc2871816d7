package workers

import (
	"context"
	"log/slog"
	"time"

	"babelroom/contract"
	"babelroom/domain/event"
)

// Ensure *BroadcastWorker implements the contract.Worker interface at
// compile time.
var _ contract.Worker = (*BroadcastWorker)(nil)

// BroadcastWorker delivers domain events to the sinks of the event's
// room plus the permanent sinks.
//
// It provides best-effort at-least-once fan-out with no ordering
// guarantee across event types. BroadcastWorker is not a message
// broker: a failed or slow sink is logged and absorbed, because the
// underlying message or translation is already persisted and clients
// recover through the reconnect/refetch path.
type BroadcastWorker struct {
	registry       contract.IRegistry
	permanentSinks []contract.EventSink
	events         chan event.DomainEvent
	sinkTimeout    time.Duration
	log            *slog.Logger
}

func NewBroadcastWorker(log *slog.Logger, registry contract.IRegistry,
	permanentSinks []contract.EventSink, events chan event.DomainEvent,
	sinkTimeout time.Duration) *BroadcastWorker {
	return &BroadcastWorker{
		registry:       registry,
		permanentSinks: permanentSinks,
		events:         events,
		sinkTimeout:    sinkTimeout,
		log:            log,
	}
}

func (w *BroadcastWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping broadcast")
			return ctx.Err()
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Event channel is closed")
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout delivers one event to every sink. Each delivery is bounded by
// the sink timeout so one stalled subscriber cannot delay the room.
func (w *BroadcastWorker) Fanout(ctx context.Context, evt event.DomainEvent) {
	sinks := append(w.registry.GetSinksForRoom(evt.RoomID()), w.permanentSinks...)
	for _, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Sink delivery failed, client will recover on refetch",
				"room_id", evt.RoomID(), "error", err)
		}
		cancel()
	}
}
