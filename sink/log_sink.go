package sink

import (
	"context"
	"log/slog"

	"babelroom/contract"
	"babelroom/domain/event"
)

var _ contract.EventSink = (*LogSink)(nil)

// LogSink traces the broadcast pipeline. Registered as a permanent sink
// so every published event leaves an audit line.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.NewMessage:
		s.log.Debug("Message published",
			"room_id", evt.Message.Room,
			"message_id", evt.Message.ID,
			"source", evt.Message.SourceLanguage)
	case event.TranslationReady:
		s.log.Debug("Translation published",
			"room_id", evt.Room,
			"message_id", evt.MessageID,
			"target", evt.Target)
	case event.PresenceSnapshot:
		s.log.Debug("Presence changed",
			"room_id", evt.Room,
			"online", len(evt.Entries))
	}
	return nil
}
