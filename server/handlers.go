// Package server exposes the core over HTTP and websocket using
// gorilla/mux. It owns request decoding, boundary validation and the
// error-to-status mapping; all semantics live in the orchestrator.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"babelroom/contract"
	"babelroom/domain"
	"babelroom/domain/event"
	apperrors "babelroom/errors"
	"babelroom/sink"
)

// ChatService is the slice of the orchestrator the transport needs.
type ChatService interface {
	SubmitMessage(ctx context.Context, cmd domain.SubmitMessageCommand) (domain.Message, error)
	RequestTranslation(ctx context.Context, cmd domain.RequestTranslationCommand) (map[uuid.UUID]string, error)
	GetMessages(ctx context.Context, room domain.RoomID, userID string, cursor *string) ([]domain.TranscriptMessage, *string, error)
	JoinRoom(ctx context.Context, entry domain.PresenceEntry, roomID domain.RoomID, sink contract.EventSink) error
	LeaveRoom(userID string, roomID domain.RoomID)
}

type ChatHandler struct {
	service              ChatService
	validate             *validator.Validate
	upgrader             websocket.Upgrader
	connectionBufferSize int
	deliveryTimeout      time.Duration
	log                  *slog.Logger
}

func NewChatHandler(log *slog.Logger, service ChatService,
	connectionBufferSize int, deliveryTimeout time.Duration) *ChatHandler {
	return &ChatHandler{
		service:  service,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		connectionBufferSize: connectionBufferSize,
		deliveryTimeout:      deliveryTimeout,
		log:                  log,
	}
}

// NewRouter lays out the inbound surface.
func NewRouter(h *ChatHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{roomId}/messages", h.HandleSubmitMessage).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{roomId}/messages", h.HandleGetMessages).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{roomId}/translations", h.HandleRequestTranslation).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{roomId}/ws", h.HandleConnect)
	return r
}

func (h *ChatHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitMessageRequest struct {
	AuthorID string `json:"authorId" validate:"required"`
	Content  string `json:"content" validate:"required,max=4096"`
}

// HandleSubmitMessage accepts an authored message and replies with the
// persisted form: canonical id and final source language included. The
// translation fan-out continues in the background.
func (h *ChatHandler) HandleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	roomID := domain.RoomID(mux.Vars(r)["roomId"])

	var req submitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: malformed body", apperrors.ErrEmptyContent))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: %v", apperrors.ErrEmptyContent, err))
		return
	}

	msg, err := h.service.SubmitMessage(r.Context(), domain.SubmitMessageCommand{
		Room:      roomID,
		AuthorID:  req.AuthorID,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

type requestTranslationRequest struct {
	RequesterID    string   `json:"requesterId" validate:"required"`
	MessageIDs     []string `json:"messageIds" validate:"required,min=1"`
	TargetLanguage string   `json:"targetLanguage" validate:"required"`
}

type requestTranslationResponse struct {
	Translations map[string]string `json:"translations"`
}

// HandleRequestTranslation fills cache misses for one language across
// the given messages, synchronously, and returns only the newly
// resolved ones.
func (h *ChatHandler) HandleRequestTranslation(w http.ResponseWriter, r *http.Request) {
	roomID := domain.RoomID(mux.Vars(r)["roomId"])

	var req requestTranslationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: malformed body", apperrors.ErrUnsupportedLanguage))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: %v", apperrors.ErrUnsupportedLanguage, err))
		return
	}
	target, err := domain.ParseLanguage(req.TargetLanguage)
	if err != nil {
		writeError(w, h.log, fmt.Errorf("%w: %v", apperrors.ErrUnsupportedLanguage, err))
		return
	}
	ids := make([]uuid.UUID, 0, len(req.MessageIDs))
	for _, raw := range req.MessageIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, h.log, fmt.Errorf("%w: %q", apperrors.ErrMessageNotFound, raw))
			return
		}
		ids = append(ids, id)
	}

	results, err := h.service.RequestTranslation(r.Context(), domain.RequestTranslationCommand{
		Room:        roomID,
		RequesterID: req.RequesterID,
		MessageIDs:  ids,
		Target:      target,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	resp := requestTranslationResponse{Translations: make(map[string]string, len(results))}
	for id, text := range results {
		resp.Translations[id.String()] = text
	}
	writeJSON(w, http.StatusOK, resp)
}

type getMessagesResponse struct {
	Messages []domain.TranscriptMessage `json:"messages"`
	Cursor   *string                    `json:"cursor,omitempty"`
}

// HandleGetMessages serves the authoritative transcript page clients
// pull on refresh and reconnect.
func (h *ChatHandler) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := domain.RoomID(mux.Vars(r)["roomId"])
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, h.log, apperrors.ErrNotParticipant)
		return
	}
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = lo.ToPtr(c)
	}

	messages, next, err := h.service.GetMessages(r.Context(), roomID, userID, cursor)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, getMessagesResponse{Messages: messages, Cursor: next})
}

// HandleConnect upgrades to a websocket, joins the room channel with a
// dedicated sink and streams broadcast frames until the client drops.
// Identity and presence metadata travel as query parameters.
func (h *ChatHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	roomID := domain.RoomID(mux.Vars(r)["roomId"])

	entry, err := presenceFromQuery(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connSink := sink.NewConnSink(h.log, h.connectionBufferSize, h.deliveryTimeout)
	if err := h.service.JoinRoom(r.Context(), entry, roomID, connSink); err != nil {
		frame, _ := json.Marshal(map[string]string{"error": err.Error()})
		_ = conn.WriteMessage(websocket.TextMessage, frame)
		return
	}
	defer h.service.LeaveRoom(entry.UserID, roomID)

	// Reader goroutine: we only care about the close signal, the
	// inbound surface is HTTP.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			h.log.Debug("Client disconnected", "user_id", entry.UserID, "room_id", roomID)
			return
		case <-r.Context().Done():
			return
		case evt := <-connSink.Events:
			frame, err := event.Encode(evt)
			if err != nil {
				h.log.Warn("Unencodable event dropped", "error", err)
				continue
			}
			if err := conn.WriteJSON(frame); err != nil {
				h.log.Warn("Failed to push event to connection",
					"user_id", entry.UserID, "room_id", roomID, "error", err)
				return
			}
		}
	}
}

func presenceFromQuery(r *http.Request) (domain.PresenceEntry, error) {
	q := r.URL.Query()
	userID := q.Get("userId")
	if userID == "" {
		return domain.PresenceEntry{}, apperrors.ErrNotParticipant
	}
	var languages []domain.Language
	for _, code := range strings.Split(q.Get("languages"), ",") {
		if code == "" {
			continue
		}
		lang, err := domain.ParseLanguage(code)
		if err != nil {
			return domain.PresenceEntry{}, fmt.Errorf("%w: %v", apperrors.ErrUnsupportedLanguage, err)
		}
		languages = append(languages, lang)
	}
	name := q.Get("name")
	if name == "" {
		name = userID
	}
	return domain.PresenceEntry{
		UserID:    userID,
		Name:      name,
		AvatarURL: q.Get("avatarUrl"),
		Languages: languages,
	}, nil
}
