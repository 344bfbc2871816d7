// Package runtime handles channel registration, event propagation and
// fan-out scheduling. It orchestrates the system without containing
// domain rules.
package runtime

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"babelroom/contract"
	"babelroom/domain"
	apperrors "babelroom/errors"
)

// roomChannel is one room's realtime channel handle: the set of
// connected sinks plus the live presence roster.
type roomChannel struct {
	ready  chan struct{}
	err    error
	mu     sync.RWMutex
	sinks  map[string]contract.EventSink
	roster map[string]domain.PresenceEntry
}

// Registry is the process-wide channel registry keyed by room id.
// Handles are created lazily on first subscription; concurrent first
// use collapses into a single in-flight creation slot per key, and
// idle rooms (last participant gone) release their handle. A later
// subscription simply recreates it.
type Registry struct {
	mu               sync.Mutex
	channels         map[domain.RoomID]*roomChannel
	subscribeTimeout time.Duration
	log              *slog.Logger
}

func NewRegistry(log *slog.Logger, subscribeTimeout time.Duration) *Registry {
	return &Registry{
		channels:         make(map[domain.RoomID]*roomChannel),
		subscribeTimeout: subscribeTimeout,
		log:              log,
	}
}

// channel returns the handle for a room, creating it on first use.
// Exactly one caller performs the creation; everyone else waits on the
// ready gate instead of racing a second creation attempt.
func (r *Registry) channel(roomID domain.RoomID) *roomChannel {
	r.mu.Lock()
	ch, ok := r.channels[roomID]
	if ok {
		r.mu.Unlock()
		return ch
	}
	ch = &roomChannel{
		ready:  make(chan struct{}),
		sinks:  make(map[string]contract.EventSink),
		roster: make(map[string]domain.PresenceEntry),
	}
	r.channels[roomID] = ch
	r.mu.Unlock()

	// Establishment is in-process today; the gate still bounds waiters
	// if a remote broker handle ever sits behind it.
	close(ch.ready)
	return ch
}

// Subscribe attaches a participant's sink and presence entry to a room.
// Establishment is bounded: a handle that does not become ready within
// the configured timeout fails fast instead of hanging the caller.
func (r *Registry) Subscribe(ctx context.Context, entry domain.PresenceEntry, roomID domain.RoomID, sink contract.EventSink) error {
	ch := r.channel(roomID)

	select {
	case <-ch.ready:
	case <-ctx.Done():
		return apperrors.ErrSubscribeTimeout
	case <-time.After(r.subscribeTimeout):
		return apperrors.ErrSubscribeTimeout
	}
	if ch.err != nil {
		return ch.err
	}

	ch.mu.Lock()
	ch.sinks[entry.UserID] = sink
	ch.roster[entry.UserID] = entry
	ch.mu.Unlock()
	return nil
}

// Unsubscribe detaches a participant. When the last one leaves, the
// room's handle is released entirely to prevent idle rooms from
// accumulating in the registry.
func (r *Registry) Unsubscribe(participantID string, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[roomID]
	if !ok {
		return
	}
	ch.mu.Lock()
	delete(ch.sinks, participantID)
	delete(ch.roster, participantID)
	empty := len(ch.sinks) == 0
	ch.mu.Unlock()

	if empty {
		delete(r.channels, roomID)
	}
}

// GetSinksForRoom returns the active sinks of a room, or nil when the
// room has no live channel. Publishing to an idle room is a no-op: the
// content is already persisted, only push delivery is skipped.
func (r *Registry) GetSinksForRoom(roomID domain.RoomID) []contract.EventSink {
	r.mu.Lock()
	ch, ok := r.channels[roomID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	ch.mu.RLock()
	defer ch.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(ch.sinks))
	for _, sink := range ch.sinks {
		sinks = append(sinks, sink)
	}
	return sinks
}

// Roster returns the full presence state of a room, ordered by user id
// for reproducible snapshots.
func (r *Registry) Roster(roomID domain.RoomID) []domain.PresenceEntry {
	r.mu.Lock()
	ch, ok := r.channels[roomID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	ch.mu.RLock()
	defer ch.mu.RUnlock()
	entries := make([]domain.PresenceEntry, 0, len(ch.roster))
	for _, entry := range ch.roster {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	return entries
}
