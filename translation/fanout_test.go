package translation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"babelroom/domain"
	"babelroom/domain/event"
	"babelroom/mocks"
)

type eventCollector struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (c *eventCollector) publish(e event.DomainEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *eventCollector) ready() []event.TranslationReady {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []event.TranslationReady
	for _, e := range c.events {
		if tr, ok := e.(event.TranslationReady); ok {
			out = append(out, tr)
		}
	}
	return out
}

func spanishMessage() domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		Room:           "general",
		AuthorID:       "alice",
		Content:        "hola a todos",
		SourceLanguage: domain.Spanish,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestEngine_Translate_Identity_Skips_Cache_And_Provider(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	provider := mocks.NewMockTranslator(ctrl)
	cache := mocks.NewMockITranslationRepository(ctrl)

	collector := &eventCollector{}
	engine := NewEngine(slog.Default(), provider, cache, collector.publish, StrategyTiered)
	msg := spanishMessage()

	// When the target equals the source, no collaborator is touched
	text, err := engine.Translate(context.Background(), msg, domain.Spanish)
	req.NoError(err)
	req.Equal(msg.Content, text)
}

func TestEngine_Translate_Cache_Hit_Skips_Provider(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	provider := mocks.NewMockTranslator(ctrl)
	cache := mocks.NewMockITranslationRepository(ctrl)

	collector := &eventCollector{}
	engine := NewEngine(slog.Default(), provider, cache, collector.publish, StrategyTiered)
	msg := spanishMessage()

	cache.EXPECT().Get(msg.ID, domain.English).Return("hello everyone", true, nil)

	text, err := engine.Translate(context.Background(), msg, domain.English)
	req.NoError(err)
	req.Equal("hello everyone", text)
}

func TestEngine_Translate_Miss_Calls_Provider_Then_Upserts(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	provider := mocks.NewMockTranslator(ctrl)
	cache := mocks.NewMockITranslationRepository(ctrl)

	collector := &eventCollector{}
	engine := NewEngine(slog.Default(), provider, cache, collector.publish, StrategyTiered)
	msg := spanishMessage()

	cache.EXPECT().Get(msg.ID, domain.English).Return("", false, nil)
	provider.EXPECT().Translate(gomock.Any(), msg.Content, domain.Spanish, domain.English).
		Return("hello everyone", nil)
	// The upsert is first-completer-wins: the stored text is returned,
	// which here is our own.
	cache.EXPECT().Put(msg.ID, domain.English, "hello everyone").Return("hello everyone", nil)

	text, err := engine.Translate(context.Background(), msg, domain.English)
	req.NoError(err)
	req.Equal("hello everyone", text)
}

func TestEngine_FanOut_Tiered_Publishes_Per_Completion(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	provider := mocks.NewMockTranslator(ctrl)
	cache := mocks.NewMockITranslationRepository(ctrl)

	collector := &eventCollector{}
	engine := NewEngine(slog.Default(), provider, cache, collector.publish, StrategyTiered)
	msg := spanishMessage()
	targets := []Target{
		{Language: domain.English, Priority: 0},
		{Language: domain.French, Priority: 1},
	}

	cache.EXPECT().Get(msg.ID, gomock.Any()).Return("", false, nil).Times(2)
	provider.EXPECT().Translate(gomock.Any(), msg.Content, domain.Spanish, domain.English).
		Return("hello everyone", nil)
	provider.EXPECT().Translate(gomock.Any(), msg.Content, domain.Spanish, domain.French).
		Return("bonjour à tous", nil)
	cache.EXPECT().Put(msg.ID, domain.English, "hello everyone").Return("hello everyone", nil)
	cache.EXPECT().Put(msg.ID, domain.French, "bonjour à tous").Return("bonjour à tous", nil)

	engine.FanOut(context.Background(), msg, targets)

	ready := collector.ready()
	req.Len(ready, 2)
	texts := make(map[domain.Language]string, len(ready))
	for _, evt := range ready {
		req.Equal(msg.ID, evt.MessageID)
		req.Equal(msg.Room, evt.Room)
		texts[evt.Target] = evt.Text
	}
	req.Equal("hello everyone", texts[domain.English])
	req.Equal("bonjour à tous", texts[domain.French])
}

func TestEngine_FanOut_Tiered_Isolates_Failures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	provider := mocks.NewMockTranslator(ctrl)
	cache := mocks.NewMockITranslationRepository(ctrl)

	collector := &eventCollector{}
	engine := NewEngine(slog.Default(), provider, cache, collector.publish, StrategyTiered)
	msg := spanishMessage()
	targets := []Target{
		{Language: domain.English, Priority: 0},
		{Language: domain.French, Priority: 0},
	}

	cache.EXPECT().Get(msg.ID, gomock.Any()).Return("", false, nil).Times(2)
	// Given one language fails at the provider
	provider.EXPECT().Translate(gomock.Any(), msg.Content, domain.Spanish, domain.English).
		Return("", fmt.Errorf("provider unreachable"))
	provider.EXPECT().Translate(gomock.Any(), msg.Content, domain.Spanish, domain.French).
		Return("bonjour à tous", nil)
	// Then only the successful one is cached
	cache.EXPECT().Put(msg.ID, domain.French, "bonjour à tous").Return("bonjour à tous", nil)

	engine.FanOut(context.Background(), msg, targets)

	// And only the successful one is published; the failed key stays
	// absent until an explicit follow-up request
	ready := collector.ready()
	req.Len(ready, 1)
	req.Equal(domain.French, ready[0].Target)
}

func TestEngine_FanOut_Bulk_Commits_Batch_And_Publishes_Burst(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	provider := mocks.NewMockTranslator(ctrl)
	cache := mocks.NewMockITranslationRepository(ctrl)

	collector := &eventCollector{}
	engine := NewEngine(slog.Default(), provider, cache, collector.publish, StrategyBulk)
	msg := spanishMessage()

	// The provider answers for every language including the source
	provider.EXPECT().TranslateAll(gomock.Any(), msg.Content, domain.Spanish).
		Return(map[domain.Language]string{
			domain.Spanish: msg.Content,
			domain.English: "hello everyone",
			domain.French:  "bonjour à tous",
		}, nil)
	// The source entry is stripped before the batch insert, and the
	// already-cached French key is not reported back
	cache.EXPECT().PutAll(msg.ID, map[domain.Language]string{
		domain.English: "hello everyone",
		domain.French:  "bonjour à tous",
	}).Return([]domain.Language{domain.English}, nil)

	engine.FanOut(context.Background(), msg, []Target{{Language: domain.English}})

	ready := collector.ready()
	req.Len(ready, 1)
	req.Equal(domain.English, ready[0].Target)
	req.Equal("hello everyone", ready[0].Text)
}

func TestEngine_FanOut_No_Targets_Is_A_NoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	provider := mocks.NewMockTranslator(ctrl)
	cache := mocks.NewMockITranslationRepository(ctrl)

	collector := &eventCollector{}
	engine := NewEngine(slog.Default(), provider, cache, collector.publish, StrategyBulk)

	engine.FanOut(context.Background(), spanishMessage(), nil)
	require.Empty(t, collector.ready())
}
