// Package client implements the room client: websocket subscription,
// optimistic sends, reconnect-with-refetch recovery and the bounded
// polling fallback. The transcript itself lives in projection.Timeline.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"babelroom/domain"
	"babelroom/domain/event"
	"babelroom/projection"
)

// Config identifies the participant and tunes the delivery paths.
type Config struct {
	BaseURL   string
	Room      domain.RoomID
	UserID    string
	Name      string
	AvatarURL string
	Languages []domain.Language

	DialTimeout time.Duration
	// Bounded poll-with-backoff fallback for when push delivery cannot
	// be relied on. Never the primary path.
	PollMaxAttempts  int
	PollBaseInterval time.Duration
}

// RoomClient connects one participant to one room.
type RoomClient struct {
	cfg      Config
	http     *http.Client
	timeline *projection.Timeline
	log      *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	roster []domain.PresenceEntry
}

func New(log *slog.Logger, cfg Config) *RoomClient {
	primary := domain.English
	if len(cfg.Languages) > 0 {
		primary = cfg.Languages[0]
	}
	return &RoomClient{
		cfg:      cfg,
		http:     &http.Client{},
		timeline: projection.NewTimeline(cfg.UserID, primary),
		log:      log,
	}
}

// Timeline exposes the reconciled transcript.
func (c *RoomClient) Timeline() *projection.Timeline {
	return c.timeline
}

// Roster returns the last presence snapshot received.
func (c *RoomClient) Roster() []domain.PresenceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.PresenceEntry(nil), c.roster...)
}

// Connect dials the room's websocket and refetches the authoritative
// transcript, so any events missed while disconnected are recovered
// before new pushes are applied.
func (c *RoomClient) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	codes := make([]string, 0, len(c.cfg.Languages))
	for _, l := range c.cfg.Languages {
		codes = append(codes, string(l))
	}
	url := fmt.Sprintf("%s/rooms/%s/ws?userId=%s&name=%s&languages=%s",
		httpToWs(c.cfg.BaseURL), c.cfg.Room, c.cfg.UserID, c.cfg.Name, strings.Join(codes, ","))

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return fmt.Errorf("subscribe to room %s: %w", c.cfg.Room, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Listen applies pushed frames until the connection drops or the
// context ends. The caller decides whether to reconnect.
func (c *RoomClient) Listen(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("listen on room %s: not connected", c.cfg.Room)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var frame event.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		evt, err := event.Decode(frame)
		if err != nil {
			c.log.Warn("Undecodable frame skipped", "error", err)
			continue
		}
		c.apply(evt)
	}
}

// Run keeps the subscription alive: on a transient drop it re-dials and
// re-fetches authoritative state before listening again.
func (c *RoomClient) Run(ctx context.Context) error {
	for {
		if err := c.Connect(ctx); err != nil {
			c.log.Warn("Connect failed, retrying", "room_id", c.cfg.Room, "error", err)
		} else {
			err = c.Listen(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("Connection dropped, reconnecting", "room_id", c.cfg.Room, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.PollBaseInterval):
		}
	}
}

func (c *RoomClient) apply(evt event.DomainEvent) {
	if snapshot, ok := evt.(event.PresenceSnapshot); ok {
		// Roster is replaced wholesale on every snapshot.
		c.mu.Lock()
		c.roster = snapshot.Entries
		c.mu.Unlock()
		return
	}
	c.timeline.Apply(evt)
}

// Send inserts the message optimistically under a temporary id, submits
// it, and promotes the entry in place once the canonical identity comes
// back. The returned id is the canonical one.
func (c *RoomClient) Send(ctx context.Context, content string) (uuid.UUID, error) {
	tempID := uuid.New()
	primary := c.timeline.Language()
	c.timeline.AppendPending(tempID, domain.Message{
		ID:             tempID,
		Room:           c.cfg.Room,
		AuthorID:       c.cfg.UserID,
		Content:        content,
		SourceLanguage: primary,
		CreatedAt:      time.Now().UTC(),
	})

	body, err := json.Marshal(map[string]string{
		"authorId": c.cfg.UserID,
		"content":  content,
	})
	if err != nil {
		return uuid.Nil, err
	}
	var persisted domain.Message
	url := fmt.Sprintf("%s/rooms/%s/messages", c.cfg.BaseURL, c.cfg.Room)
	if err := c.postJSON(ctx, url, body, &persisted); err != nil {
		// The pending entry stays visible; the next refetch reconciles
		// it if the server actually persisted the message.
		return uuid.Nil, fmt.Errorf("submit message: %w", err)
	}
	c.timeline.Promote(tempID, persisted)
	return persisted.ID, nil
}

// Refresh pulls the authoritative transcript page and resets the
// timeline from it.
func (c *RoomClient) Refresh(ctx context.Context) error {
	url := fmt.Sprintf("%s/rooms/%s/messages?userId=%s", c.cfg.BaseURL, c.cfg.Room, c.cfg.UserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh room %s: status %d", c.cfg.Room, resp.StatusCode)
	}
	var page struct {
		Messages []domain.TranscriptMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return err
	}
	c.timeline.Reset(page.Messages)
	return nil
}

// ChangeLanguage switches the viewer's primary language and issues one
// re-translation request for exactly the visible messages missing a
// cached translation for it. Already-cached messages are never
// re-requested.
func (c *RoomClient) ChangeLanguage(ctx context.Context, language domain.Language) error {
	missing := c.timeline.SetLanguage(language)
	if len(missing) == 0 {
		return nil
	}

	ids := make([]string, 0, len(missing))
	for _, id := range missing {
		ids = append(ids, id.String())
	}
	body, err := json.Marshal(map[string]any{
		"requesterId":    c.cfg.UserID,
		"messageIds":     ids,
		"targetLanguage": string(language),
	})
	if err != nil {
		return err
	}
	var resp struct {
		Translations map[string]string `json:"translations"`
	}
	url := fmt.Sprintf("%s/rooms/%s/translations", c.cfg.BaseURL, c.cfg.Room)
	if err := c.postJSON(ctx, url, body, &resp); err != nil {
		return fmt.Errorf("request translations: %w", err)
	}

	// Apply the synchronous results directly; the pushed
	// TranslationReady duplicates merge idempotently.
	for raw, text := range resp.Translations {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		c.timeline.Apply(event.TranslationReady{
			Room:      c.cfg.Room,
			MessageID: id,
			Target:    language,
			Text:      text,
		})
	}
	return nil
}

// PollTranslations is the fallback delivery path: a fixed small number
// of refetch attempts with growing intervals, used when pushes cannot
// be relied on. It stops early once nothing is missing.
func (c *RoomClient) PollTranslations(ctx context.Context, language domain.Language) error {
	interval := c.cfg.PollBaseInterval
	for attempt := 1; attempt <= c.cfg.PollMaxAttempts; attempt++ {
		if len(c.timeline.MissingTranslations(language)) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if err := c.Refresh(ctx); err != nil {
			c.log.Warn("Poll refresh failed", "attempt", attempt, "error", err)
		}
		interval *= 2
	}
	return nil
}

func (c *RoomClient) postJSON(ctx context.Context, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func httpToWs(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}
