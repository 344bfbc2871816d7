// Package event defines the broadcast event union delivered over a
// room's realtime channel. Events are not persisted and arrive
// at-least-once with no ordering guarantee across event types, so every
// consumer merge must be idempotent.
package event

import (
	"time"

	"github.com/google/uuid"

	"babelroom/domain"
)

// DomainEvent is anything that can be published on a room channel.
type DomainEvent interface {
	RoomID() domain.RoomID
}

// NewMessage announces a freshly persisted message, carrying its
// canonical id and final source language.
type NewMessage struct {
	Message domain.Message `json:"message"`
}

func (e NewMessage) RoomID() domain.RoomID { return e.Message.Room }

// TranslationReady announces one cached translation. Re-delivery of the
// same (message, language) pair is safe to re-apply.
type TranslationReady struct {
	Room      domain.RoomID   `json:"roomId"`
	MessageID uuid.UUID       `json:"messageId"`
	Target    domain.Language `json:"targetLanguage"`
	Text      string          `json:"text"`
	At        time.Time       `json:"at"`
}

func (e TranslationReady) RoomID() domain.RoomID { return e.Room }

// PresenceSnapshot is the full live roster of a room, emitted on any
// membership change. Subscribers replace their roster wholesale.
type PresenceSnapshot struct {
	Room    domain.RoomID          `json:"roomId"`
	Entries []domain.PresenceEntry `json:"entries"`
}

func (e PresenceSnapshot) RoomID() domain.RoomID { return e.Room }
