package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"babelroom/contract"
	"babelroom/domain"
	"babelroom/domain/event"
	apperrors "babelroom/errors"
	"babelroom/runtime/workers"
	"babelroom/translation"
)

// Orchestrator wires ingress, the preference resolver, the fan-out
// engine and the broadcast channel together. Submissions are handled
// synchronously up to persistence; translation fan-out and push
// delivery run as supervised background workers.
type Orchestrator struct {
	mu               sync.Mutex
	log              *slog.Logger
	numWorkers       int
	maxContentLength int
	permanentSinks   []contract.EventSink
	supervisor       contract.ISupervisor
	registry         contract.IRegistry
	directory        contract.MembershipDirectory
	messages         contract.IMessageRepository
	translations     contract.ITranslationRepository
	engine           *translation.Engine
	events           chan event.DomainEvent
	jobs             chan workers.FanoutJob
	sinkTimeout      time.Duration
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, directory contract.MembershipDirectory,
	messages contract.IMessageRepository, translations contract.ITranslationRepository,
	provider contract.Translator, strategy translation.Strategy,
	numWorkers, bufferSize, maxContentLength int, sinkTimeout time.Duration) *Orchestrator {
	o := &Orchestrator{
		log:              log,
		numWorkers:       numWorkers,
		maxContentLength: maxContentLength,
		supervisor:       supervisor,
		registry:         registry,
		directory:        directory,
		messages:         messages,
		translations:     translations,
		events:           make(chan event.DomainEvent, bufferSize),
		jobs:             make(chan workers.FanoutJob, bufferSize),
		sinkTimeout:      sinkTimeout,
	}
	o.engine = translation.NewEngine(log, provider, translations, o.publish, strategy)
	return o
}

// Add registers permanent sinks delivered on every event regardless of
// room membership (projections, logs).
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// publish pushes an event onto the broadcast pipeline without blocking
// the producer. A full pipeline degrades push delivery only; state is
// already persisted and clients recover via refetch.
func (o *Orchestrator) publish(evt event.DomainEvent) {
	select {
	case o.events <- evt:
	default:
		o.log.Warn(fmt.Sprintf("Event channel full for room %s, dropping push delivery", evt.RoomID()))
	}
}

// SubmitMessage is the ingress operation: validate, authorize,
// determine the source language, persist, then publish NewMessage and
// queue the translation fan-out as a background best-effort step. The
// returned message carries the canonical id and final source language.
func (o *Orchestrator) SubmitMessage(ctx context.Context, cmd domain.SubmitMessageCommand) (domain.Message, error) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return domain.Message{}, apperrors.ErrEmptyContent
	}
	if o.maxContentLength > 0 && len(content) > o.maxContentLength {
		return domain.Message{}, fmt.Errorf("%w: %d bytes", apperrors.ErrContentTooLong, len(content))
	}

	participants, err := o.directory.Participants(ctx, cmd.Room)
	if err != nil {
		return domain.Message{}, err
	}
	author, found := findParticipant(participants, cmd.AuthorID)
	if !found {
		return domain.Message{}, fmt.Errorf("%w: %s in room %s", apperrors.ErrNotParticipant, cmd.AuthorID, cmd.Room)
	}

	// Detection falls back to the author's primary language; authors
	// without a usable preference default to English like legacy
	// accounts do.
	fallback := domain.English
	if author.Preference.Usable() {
		fallback = author.Preference.Primary()
	}
	source := translation.DetectSourceLanguage(content, fallback)

	createdAt := cmd.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	msg := domain.Message{
		ID:             uuid.New(),
		Room:           cmd.Room,
		AuthorID:       cmd.AuthorID,
		Content:        content,
		SourceLanguage: source,
		CreatedAt:      createdAt,
	}
	if err := o.messages.StoreMessage(msg); err != nil {
		return domain.Message{}, err
	}

	o.publish(event.NewMessage{Message: msg})

	targets := translation.ResolveTargets(participants, source)
	if len(targets) > 0 {
		select {
		case o.jobs <- workers.FanoutJob{Message: msg, Targets: targets}:
		default:
			o.log.Warn("Fan-out queue full, translations deferred to explicit requests",
				"message_id", msg.ID, "room_id", msg.Room)
		}
	}
	return msg, nil
}

// RequestTranslation synchronously fills cache misses for one target
// language across the given messages and publishes TranslationReady for
// each newly resolved key. Messages already cached for the language, or
// authored in it, are left untouched.
func (o *Orchestrator) RequestTranslation(ctx context.Context, cmd domain.RequestTranslationCommand) (map[uuid.UUID]string, error) {
	ok, err := o.directory.IsParticipant(ctx, cmd.Room, cmd.RequesterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s in room %s", apperrors.ErrNotParticipant, cmd.RequesterID, cmd.Room)
	}

	// Resolve ids up front so unknown messages fail the request
	// synchronously instead of vanishing into the concurrent phase.
	var pending []domain.Message
	for _, id := range cmd.MessageIDs {
		msg, err := o.messages.GetMessage(id)
		if err != nil {
			return nil, err
		}
		if msg.Room != cmd.Room {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrMessageNotFound, id)
		}
		if msg.SourceLanguage == cmd.Target {
			continue
		}
		if _, cached, err := o.translations.Get(msg.ID, cmd.Target); err != nil {
			return nil, err
		} else if cached {
			continue
		}
		pending = append(pending, msg)
	}

	results := make(map[uuid.UUID]string, len(pending))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, msg := range pending {
		wg.Add(1)
		go func(msg domain.Message) {
			defer wg.Done()
			text, err := o.engine.Translate(ctx, msg, cmd.Target)
			if err != nil {
				// Isolated: the key stays absent, the rest of the batch
				// proceeds.
				o.log.Warn("Requested translation failed",
					"message_id", msg.ID, "target", cmd.Target, "error", err)
				return
			}
			mu.Lock()
			results[msg.ID] = text
			mu.Unlock()
			o.publish(event.TranslationReady{
				Room:      cmd.Room,
				MessageID: msg.ID,
				Target:    cmd.Target,
				Text:      text,
				At:        time.Now().UTC(),
			})
		}(msg)
	}
	wg.Wait()
	return results, nil
}

// GetMessages serves the authoritative transcript page used by clients
// on refresh and reconnect, each message joined with its cached
// translations.
func (o *Orchestrator) GetMessages(ctx context.Context, room domain.RoomID, userID string, cursor *string) ([]domain.TranscriptMessage, *string, error) {
	ok, err := o.directory.IsParticipant(ctx, room, userID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s in room %s", apperrors.ErrNotParticipant, userID, room)
	}

	messages, next, err := o.messages.GetMessages(room, cursor)
	if err != nil {
		return nil, nil, err
	}
	transcript := make([]domain.TranscriptMessage, 0, len(messages))
	for _, msg := range messages {
		translations, err := o.translations.GetForMessage(msg.ID)
		if err != nil {
			return nil, nil, err
		}
		transcript = append(transcript, domain.TranscriptMessage{Message: msg, Translations: translations})
	}
	return transcript, next, nil
}

// JoinRoom authorizes the caller, subscribes their sink to the room
// channel and announces the new roster.
func (o *Orchestrator) JoinRoom(ctx context.Context, entry domain.PresenceEntry, roomID domain.RoomID, sink contract.EventSink) error {
	ok, err := o.directory.IsParticipant(ctx, roomID, entry.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s in room %s", apperrors.ErrNotParticipant, entry.UserID, roomID)
	}
	if err := o.registry.Subscribe(ctx, entry, roomID, sink); err != nil {
		return err
	}
	o.publish(event.PresenceSnapshot{Room: roomID, Entries: o.registry.Roster(roomID)})
	return nil
}

// LeaveRoom drops the participant's presence and announces the shrunken
// roster.
func (o *Orchestrator) LeaveRoom(userID string, roomID domain.RoomID) {
	o.registry.Unsubscribe(userID, roomID)
	o.publish(event.PresenceSnapshot{Room: roomID, Entries: o.registry.Roster(roomID)})
}

// Start registers all workers with the supervisor and runs them until
// the context is canceled.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	broadcast := workers.NewBroadcastWorker(o.log, o.registry, o.permanentSinks, o.events, o.sinkTimeout)
	o.supervisor.Add(broadcast)
	for i := 0; i < o.numWorkers; i++ {
		o.supervisor.Add(workers.NewTranslationWorker(o.engine, o.jobs, o.log))
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown of the supervised workers.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

func findParticipant(participants []domain.Participant, userID string) (domain.Participant, bool) {
	for _, p := range participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return domain.Participant{}, false
}
