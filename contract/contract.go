//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"babelroom/domain"
	"babelroom/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself.
// Supervision (panic recovery, restart) lives in the supervisor.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives broadcast events for one consumer. Delivery is
// best-effort and at-least-once; sinks must merge idempotently.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry manages per-room channel handles and the live roster.
// Handles are created lazily on first subscription and released when a
// room goes idle.
type IRegistry interface {
	Subscribe(ctx context.Context, entry domain.PresenceEntry, roomID domain.RoomID, sink EventSink) error
	Unsubscribe(participantID string, roomID domain.RoomID)
	GetSinksForRoom(roomID domain.RoomID) []EventSink
	Roster(roomID domain.RoomID) []domain.PresenceEntry
}

// Translator is the external translation provider: fallible, latent,
// with no ordering or delivery guarantees of its own.
type Translator interface {
	// Translate converts text between two supported languages.
	Translate(ctx context.Context, text string, source, target domain.Language) (string, error)
	// TranslateAll converts text into every supported language in one
	// call, trading per-language latency for fewer round trips.
	TranslateAll(ctx context.Context, text string, source domain.Language) (map[domain.Language]string, error)
}

type IMessageRepository interface {
	StoreMessage(m domain.Message) error
	GetMessage(id uuid.UUID) (domain.Message, error)
	GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error)
}

// ITranslationRepository is the translation cache. The only shared
// mutable resource of the core: Put must stay idempotent under
// concurrent writers to the same key.
type ITranslationRepository interface {
	Get(messageID uuid.UUID, target domain.Language) (string, bool, error)
	// Put stores a translation unless the key is already filled and
	// returns the stored text, which is the existing one on a lost race.
	Put(messageID uuid.UUID, target domain.Language, text string) (string, error)
	// PutAll commits a batch as a whole and reports which languages were
	// newly stored. A failed batch never leaves the cache half-populated.
	PutAll(messageID uuid.UUID, texts map[domain.Language]string) ([]domain.Language, error)
	GetForMessage(messageID uuid.UUID) (map[domain.Language]string, error)
}

// MembershipDirectory is the external room/participant contract.
// The core consumes it, never owns it.
type MembershipDirectory interface {
	// Participants returns the members of a room with their preference
	// lists. Unknown rooms yield errors.ErrRoomNotFound.
	Participants(ctx context.Context, room domain.RoomID) ([]domain.Participant, error)
	// IsParticipant is the connection-level authorization check.
	IsParticipant(ctx context.Context, room domain.RoomID, userID string) (bool, error)
}
