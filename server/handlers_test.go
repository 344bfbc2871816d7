package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"babelroom/contract"
	"babelroom/domain"
	"babelroom/domain/event"
	apperrors "babelroom/errors"
)

// fakeService records calls and returns canned answers, standing in for
// the orchestrator behind the transport.
type fakeService struct {
	mu sync.Mutex

	submitErr    error
	submitted    []domain.SubmitMessageCommand
	message      domain.Message
	translations map[uuid.UUID]string
	transcript   []domain.TranscriptMessage
	joinErr      error
	joinedSink   contract.EventSink
	left         []string
}

func (f *fakeService) SubmitMessage(_ context.Context, cmd domain.SubmitMessageCommand) (domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, cmd)
	if f.submitErr != nil {
		return domain.Message{}, f.submitErr
	}
	return f.message, nil
}

func (f *fakeService) RequestTranslation(_ context.Context, _ domain.RequestTranslationCommand) (map[uuid.UUID]string, error) {
	return f.translations, nil
}

func (f *fakeService) GetMessages(_ context.Context, _ domain.RoomID, _ string, _ *string) ([]domain.TranscriptMessage, *string, error) {
	return f.transcript, nil, nil
}

func (f *fakeService) JoinRoom(_ context.Context, _ domain.PresenceEntry, _ domain.RoomID, sink contract.EventSink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joinedSink = sink
	return nil
}

func (f *fakeService) LeaveRoom(userID string, _ domain.RoomID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, userID)
}

func (f *fakeService) sink() contract.EventSink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joinedSink
}

func (f *fakeService) submittedCalls() []domain.SubmitMessageCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SubmitMessageCommand(nil), f.submitted...)
}

func newTestServer(service *fakeService) *httptest.Server {
	handler := NewChatHandler(slog.Default(), service, 8, time.Second)
	return httptest.NewServer(NewRouter(handler))
}

func TestHandleSubmitMessage_Returns_Persisted_Form(t *testing.T) {
	req := require.New(t)
	service := &fakeService{message: domain.Message{
		ID:             uuid.New(),
		Room:           "general",
		AuthorID:       "alice",
		Content:        "hola",
		SourceLanguage: domain.Spanish,
		CreatedAt:      time.Now().UTC(),
	}}
	server := newTestServer(service)
	defer server.Close()

	body := `{"authorId":"alice","content":"hola"}`
	resp, err := http.Post(server.URL+"/rooms/general/messages", "application/json", strings.NewReader(body))
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusCreated, resp.StatusCode)

	var persisted domain.Message
	req.NoError(json.NewDecoder(resp.Body).Decode(&persisted))
	req.Equal(service.message.ID, persisted.ID)
	req.Equal(domain.Spanish, persisted.SourceLanguage)

	req.Len(service.submittedCalls(), 1)
	req.Equal(domain.RoomID("general"), service.submittedCalls()[0].Room)
}

func TestHandleSubmitMessage_Rejects_Missing_Fields(t *testing.T) {
	req := require.New(t)
	service := &fakeService{}
	server := newTestServer(service)
	defer server.Close()

	resp, err := http.Post(server.URL+"/rooms/general/messages", "application/json",
		strings.NewReader(`{"authorId":"alice"}`))
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Empty(service.submittedCalls())
}

func TestHandleSubmitMessage_Maps_Domain_Errors(t *testing.T) {
	req := require.New(t)
	service := &fakeService{submitErr: apperrors.ErrNotParticipant}
	server := newTestServer(service)
	defer server.Close()

	resp, err := http.Post(server.URL+"/rooms/general/messages", "application/json",
		strings.NewReader(`{"authorId":"mallory","content":"hi"}`))
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestHandleRequestTranslation_Returns_Resolved_Keys(t *testing.T) {
	req := require.New(t)
	messageID := uuid.New()
	service := &fakeService{translations: map[uuid.UUID]string{messageID: "hello"}}
	server := newTestServer(service)
	defer server.Close()

	payload, err := json.Marshal(map[string]any{
		"requesterId":    "bob",
		"messageIds":     []string{messageID.String()},
		"targetLanguage": "en",
	})
	req.NoError(err)
	resp, err := http.Post(server.URL+"/rooms/general/translations", "application/json", bytes.NewReader(payload))
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var decoded requestTranslationResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	req.Equal("hello", decoded.Translations[messageID.String()])
}

func TestHandleRequestTranslation_Rejects_Unsupported_Language(t *testing.T) {
	req := require.New(t)
	server := newTestServer(&fakeService{})
	defer server.Close()

	payload := `{"requesterId":"bob","messageIds":["` + uuid.NewString() + `"],"targetLanguage":"xx"}`
	resp, err := http.Post(server.URL+"/rooms/general/translations", "application/json", strings.NewReader(payload))
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestHandleGetMessages_Requires_UserID(t *testing.T) {
	req := require.New(t)
	server := newTestServer(&fakeService{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/rooms/general/messages")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestHandleGetMessages_Serves_Transcript(t *testing.T) {
	req := require.New(t)
	msg := domain.Message{
		ID:             uuid.New(),
		Room:           "general",
		AuthorID:       "alice",
		Content:        "hola",
		SourceLanguage: domain.Spanish,
		CreatedAt:      time.Now().UTC(),
	}
	service := &fakeService{transcript: []domain.TranscriptMessage{
		{Message: msg, Translations: map[domain.Language]string{domain.English: "hello"}},
	}}
	server := newTestServer(service)
	defer server.Close()

	resp, err := http.Get(server.URL + "/rooms/general/messages?userId=bob")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var decoded getMessagesResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	req.Len(decoded.Messages, 1)
	req.Equal(msg.ID, decoded.Messages[0].Message.ID)
	req.Equal("hello", decoded.Messages[0].Translations[domain.English])
}

func TestHandleConnect_Streams_Broadcast_Frames(t *testing.T) {
	req := require.New(t)
	service := &fakeService{}
	server := newTestServer(service)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") +
		"/rooms/general/ws?userId=alice&name=Alice&languages=es,en"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	req.NoError(err)
	defer conn.Close()

	// Wait for the join before pushing through the captured sink
	req.Eventually(func() bool { return service.sink() != nil },
		time.Second, 10*time.Millisecond)

	evt := event.TranslationReady{
		Room:      "general",
		MessageID: uuid.New(),
		Target:    domain.English,
		Text:      "hello",
		At:        time.Now().UTC().Truncate(time.Millisecond),
	}
	req.NoError(service.sink().Consume(context.Background(), evt))

	req.NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))
	var frame event.Frame
	req.NoError(conn.ReadJSON(&frame))
	req.Equal(event.TypeTranslationReady, frame.Type)

	decoded, err := event.Decode(frame)
	req.NoError(err)
	req.Equal(evt, decoded)
}

func TestHandleConnect_Rejects_Bad_Language_List(t *testing.T) {
	req := require.New(t)
	server := newTestServer(&fakeService{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/rooms/general/ws?userId=alice&languages=xx")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}
