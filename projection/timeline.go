// Package projection builds a client's local transcript from optimistic
// sends, server acknowledgments and broadcast events. It owns ordering,
// deduplication and the per-message reconciliation states; it does not
// emit events or talk to the network.
package projection

import (
	"sync"

	"github.com/google/uuid"

	"babelroom/domain"
	"babelroom/domain/event"
)

// State is the reconciliation state of one transcript entry, relative
// to the viewer's language.
type State int

const (
	// StatePending is an optimistic insert under a temporary id, visible
	// on the author's device only.
	StatePending State = iota
	// StatePersisted has its canonical id; the viewer reads the source
	// text directly.
	StatePersisted
	// StateTranslating is persisted but still waiting for the viewer's
	// translation.
	StateTranslating
	// StateTranslated has the viewer's cached translation applied.
	StateTranslated
)

// Entry is one message in the transcript with whatever translations
// have been merged so far.
type Entry struct {
	ID           uuid.UUID
	Pending      bool
	Message      domain.Message
	Translations domain.TranslationSet
}

// StateFor computes the entry's reconciliation state for a viewer
// language.
func (e *Entry) StateFor(viewer domain.Language) State {
	switch {
	case e.Pending:
		return StatePending
	case e.Message.SourceLanguage == viewer:
		return StatePersisted
	case e.Translations.Has(viewer):
		return StateTranslated
	default:
		return StateTranslating
	}
}

// Timeline is the per-client transcript. Safe for concurrent use: the
// websocket listener, the poller and the UI read side all touch it.
//
// Invariant: a message appears exactly once regardless of how many
// times NewMessage or refetches deliver it, and a promoted optimistic
// entry replaces its temporary form in place, never duplicating.
type Timeline struct {
	mu       sync.Mutex
	viewerID string
	language domain.Language
	entries  []*Entry
	index    map[uuid.UUID]*Entry
	// orphans holds translations whose NewMessage has not arrived yet;
	// event types carry no ordering guarantee between each other.
	orphans map[uuid.UUID]map[domain.Language]string
}

func NewTimeline(viewerID string, language domain.Language) *Timeline {
	return &Timeline{
		viewerID: viewerID,
		language: language,
		index:    make(map[uuid.UUID]*Entry),
		orphans:  make(map[uuid.UUID]map[domain.Language]string),
	}
}

// Language returns the viewer's current primary language.
func (t *Timeline) Language() domain.Language {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.language
}

// AppendPending inserts the author's optimistic message under its
// temporary id, before the server has assigned the canonical one.
func (t *Timeline) AppendPending(tempID uuid.UUID, msg domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.index[tempID]; exists {
		return
	}
	entry := &Entry{ID: tempID, Pending: true, Message: msg}
	t.entries = append(t.entries, entry)
	t.index[tempID] = entry
}

// Promote replaces the temporary entry with the persisted message, in
// place. If the canonical id already arrived through the broadcast
// channel (the echo won the race), the stale pending entry is removed
// instead of creating a duplicate.
func (t *Timeline) Promote(tempID uuid.UUID, persisted domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending, hasPending := t.index[tempID]
	if _, echoed := t.index[persisted.ID]; echoed {
		if hasPending {
			t.remove(tempID)
		}
		return
	}
	if !hasPending {
		t.insert(persisted)
		return
	}

	delete(t.index, tempID)
	pending.ID = persisted.ID
	pending.Pending = false
	pending.Message = persisted
	t.index[persisted.ID] = pending
	t.adopt(pending)
}

// Apply merges one broadcast event. Deliveries are at-least-once and
// unordered across event types, so every branch is idempotent.
func (t *Timeline) Apply(e event.DomainEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch evt := e.(type) {
	case event.NewMessage:
		if _, seen := t.index[evt.Message.ID]; seen {
			return
		}
		t.insert(evt.Message)
	case event.TranslationReady:
		entry, ok := t.index[evt.MessageID]
		if !ok {
			// Translation outran its NewMessage; park it until the
			// message shows up.
			texts, ok := t.orphans[evt.MessageID]
			if !ok {
				texts = make(map[domain.Language]string)
				t.orphans[evt.MessageID] = texts
			}
			texts[evt.Target] = evt.Text
			return
		}
		entry.Translations.Put(evt.Target, evt.Text)
	}
}

// Reset replaces the transcript wholesale with an authoritative page,
// as fetched on reconnect. Optimistic entries that are still pending
// are carried over so an in-flight send survives the refresh. The page
// arrives newest-first from storage and is reversed into reading order.
func (t *Timeline) Reset(page []domain.TranscriptMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var carried []*Entry
	for _, entry := range t.entries {
		if entry.Pending {
			carried = append(carried, entry)
		}
	}

	t.entries = nil
	t.index = make(map[uuid.UUID]*Entry, len(page)+len(carried))

	for i := len(page) - 1; i >= 0; i-- {
		tm := page[i]
		if _, seen := t.index[tm.Message.ID]; seen {
			continue
		}
		t.insert(tm.Message)
		entry := t.index[tm.Message.ID]
		for lang, text := range tm.Translations {
			entry.Translations.Put(lang, text)
		}
	}
	for _, entry := range carried {
		if _, seen := t.index[entry.ID]; seen {
			continue
		}
		t.entries = append(t.entries, entry)
		t.index[entry.ID] = entry
	}
}

// SetLanguage switches the viewer's primary language and returns the
// canonical ids of visible messages that lack a cached translation for
// it. The caller issues exactly one bounded re-translation request for
// those ids; messages already cached, or authored in the new language,
// are never re-requested.
func (t *Timeline) SetLanguage(language domain.Language) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.language = language
	return t.missingLocked(language)
}

// MissingTranslations lists the visible persisted messages that still
// need a translation for the given language.
func (t *Timeline) MissingTranslations(language domain.Language) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.missingLocked(language)
}

func (t *Timeline) missingLocked(language domain.Language) []uuid.UUID {
	var missing []uuid.UUID
	for _, entry := range t.entries {
		if entry.Pending {
			continue
		}
		if entry.Message.SourceLanguage == language {
			continue
		}
		if entry.Translations.Has(language) {
			continue
		}
		missing = append(missing, entry.ID)
	}
	return missing
}

// Entries returns a snapshot copy of the transcript in reading order.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := make([]Entry, 0, len(t.entries))
	for _, entry := range t.entries {
		snapshot = append(snapshot, *entry)
	}
	return snapshot
}

// TextFor renders one entry in the viewer's language: the source text
// when the message was authored in it (or while the translation is
// still pending), otherwise the cached translation.
func (t *Timeline) TextFor(entry Entry) string {
	t.mu.Lock()
	language := t.language
	t.mu.Unlock()

	if entry.Message.SourceLanguage == language {
		return entry.Message.Content
	}
	if text, ok := entry.Translations.Get(language); ok {
		return text
	}
	return entry.Message.Content
}

// insert appends a persisted message and adopts any translations that
// arrived before it. Callers hold the lock.
func (t *Timeline) insert(msg domain.Message) {
	entry := &Entry{ID: msg.ID, Message: msg}
	t.entries = append(t.entries, entry)
	t.index[msg.ID] = entry
	t.adopt(entry)
}

// adopt moves parked orphan translations onto their entry.
func (t *Timeline) adopt(entry *Entry) {
	texts, ok := t.orphans[entry.ID]
	if !ok {
		return
	}
	for lang, text := range texts {
		entry.Translations.Put(lang, text)
	}
	delete(t.orphans, entry.ID)
}

// remove drops an entry by id. Callers hold the lock.
func (t *Timeline) remove(id uuid.UUID) {
	delete(t.index, id)
	for i, entry := range t.entries {
		if entry.ID == id {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}
