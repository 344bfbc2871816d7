package translation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"babelroom/contract"
	"babelroom/domain"
	"babelroom/domain/event"
)

// Strategy selects how a new message is fanned out to its targets.
// Both strategies share the same cache contract, which is the
// compatibility seam between them.
type Strategy string

const (
	// StrategyTiered dispatches priority tiers in order, each language
	// within a tier concurrently. Canonical.
	StrategyTiered Strategy = "tiered"
	// StrategyBulk issues one all-languages provider call and a single
	// batch cache insert. Fewer round trips, higher first-result latency.
	StrategyBulk Strategy = "bulk"
)

// Engine populates the translation cache for messages and publishes a
// TranslationReady event for every completed translation.
type Engine struct {
	provider contract.Translator
	cache    contract.ITranslationRepository
	publish  func(event.DomainEvent)
	strategy Strategy
	log      *slog.Logger
}

func NewEngine(log *slog.Logger, provider contract.Translator,
	cache contract.ITranslationRepository, publish func(event.DomainEvent),
	strategy Strategy) *Engine {
	return &Engine{
		provider: provider,
		cache:    cache,
		publish:  publish,
		strategy: strategy,
		log:      log,
	}
}

// Translate is the shared cache contract:
//   - target == source returns the content unchanged, no cache touch;
//   - a cache hit returns the stored text;
//   - a miss calls the provider once, then upserts. The upsert is
//     first-completer-wins, so concurrent callers for the same key all
//     observe the single stored row.
func (e *Engine) Translate(ctx context.Context, msg domain.Message, target domain.Language) (string, error) {
	if target == msg.SourceLanguage {
		return msg.Content, nil
	}
	if text, ok, err := e.cache.Get(msg.ID, target); err != nil {
		return "", err
	} else if ok {
		return text, nil
	}
	translated, err := e.provider.Translate(ctx, msg.Content, msg.SourceLanguage, target)
	if err != nil {
		return "", fmt.Errorf("translate %s into %s: %w", msg.ID, target, err)
	}
	return e.cache.Put(msg.ID, target, translated)
}

// FanOut populates the cache for a newly persisted message. It blocks
// until every dispatched translation has completed or failed, which
// lets the caller run it inside a supervised worker.
func (e *Engine) FanOut(ctx context.Context, msg domain.Message, targets []Target) {
	if len(targets) == 0 {
		return
	}
	switch e.strategy {
	case StrategyBulk:
		e.fanOutBulk(ctx, msg)
	default:
		e.fanOutTiered(ctx, msg, targets)
	}
}

// fanOutTiered dispatches tier after tier without waiting for
// completions: the next tier starts as soon as the previous tier's
// goroutines have been issued. Completions within and across tiers race
// freely and each one publishes immediately.
func (e *Engine) fanOutTiered(ctx context.Context, msg domain.Message, targets []Target) {
	var wg sync.WaitGroup
	for _, tier := range Tiers(targets) {
		for _, lang := range tier {
			wg.Add(1)
			go func(target domain.Language) {
				defer wg.Done()
				text, err := e.Translate(ctx, msg, target)
				if err != nil {
					// Isolation: one failed language never aborts the
					// others. The key stays absent until an explicit
					// follow-up request fills it.
					e.log.Warn("Translation failed, leaving key unresolved",
						"message_id", msg.ID, "target", target, "error", err)
					return
				}
				e.publish(event.TranslationReady{
					Room:      msg.Room,
					MessageID: msg.ID,
					Target:    target,
					Text:      text,
					At:        time.Now().UTC(),
				})
			}(lang)
		}
	}
	wg.Wait()
}

// fanOutBulk translates into all supported languages in one provider
// round trip, commits the batch whole-or-error, then publishes a burst
// of TranslationReady events for the newly stored keys.
func (e *Engine) fanOutBulk(ctx context.Context, msg domain.Message) {
	texts, err := e.provider.TranslateAll(ctx, msg.Content, msg.SourceLanguage)
	if err != nil {
		e.log.Warn("Bulk translation failed",
			"message_id", msg.ID, "error", err)
		return
	}
	// Identity is implicit, never materialized.
	delete(texts, msg.SourceLanguage)

	inserted, err := e.cache.PutAll(msg.ID, texts)
	if err != nil {
		e.log.Warn("Bulk translation batch rejected",
			"message_id", msg.ID, "error", err)
		return
	}
	now := time.Now().UTC()
	for _, lang := range inserted {
		e.publish(event.TranslationReady{
			Room:      msg.Room,
			MessageID: msg.ID,
			Target:    lang,
			Text:      texts[lang],
			At:        now,
		})
	}
}
