package domain

import (
	"time"

	"github.com/google/uuid"
)

// Command is an intent addressed to a specific room.
type Command interface {
	RoomID() RoomID
}

// SubmitMessageCommand carries an authored message into ingress.
// The source language is not part of the command: it is determined
// server-side (detection, then author's primary as fallback).
type SubmitMessageCommand struct {
	Room      RoomID
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

func (c SubmitMessageCommand) RoomID() RoomID { return c.Room }

// RequestTranslationCommand asks for cache misses to be filled for one
// target language across a set of already-persisted messages.
type RequestTranslationCommand struct {
	Room        RoomID
	RequesterID string
	MessageIDs  []uuid.UUID
	Target      Language
}

func (c RequestTranslationCommand) RoomID() RoomID { return c.Room }
