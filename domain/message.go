// Package domain contains core concepts of the multilingual chat system.
// This file defines Message entities and related rules.
// Messages are immutable once persisted and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoomID identifies a chat room. Rooms themselves are managed by an
// external collaborator; the core only scopes messages and channels by id.
type RoomID string

// Message represents an immutable chat message.
// ID and SourceLanguage never change after persistence; the client may
// hold a temporary id before the store assigns the canonical one.
type Message struct {
	ID             uuid.UUID `json:"id"`
	Room           RoomID    `json:"roomId"`
	AuthorID       string    `json:"authorId"`
	Content        string    `json:"content"`
	SourceLanguage Language  `json:"sourceLanguage"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TranscriptMessage is a message together with its cached translations,
// as served to clients on an authoritative refresh.
type TranscriptMessage struct {
	Message      Message             `json:"message"`
	Translations map[Language]string `json:"translations"`
}
