// Package directory provides an in-memory implementation of the
// membership contract. Room and account management belong to an
// external system; this adapter stands in for it behind the same narrow
// interface and is also what tests wire in.
package directory

import (
	"context"
	"fmt"
	"sync"

	"babelroom/contract"
	"babelroom/domain"
	apperrors "babelroom/errors"
)

var _ contract.MembershipDirectory = (*StaticDirectory)(nil)

// StaticDirectory holds rooms and their participants in memory.
type StaticDirectory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]map[string]domain.Participant
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{rooms: make(map[domain.RoomID]map[string]domain.Participant)}
}

// AddRoom registers a room with no members yet.
func (d *StaticDirectory) AddRoom(room domain.RoomID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rooms[room]; !ok {
		d.rooms[room] = make(map[string]domain.Participant)
	}
}

// Join adds a participant with a validated preference list. This is the
// preference-update boundary: invalid codes are rejected here, never at
// lookup time.
func (d *StaticDirectory) Join(room domain.RoomID, userID string, codes []string) error {
	pref, err := domain.NewPreference(userID, codes)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidPreference, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	members, ok := d.rooms[room]
	if !ok {
		members = make(map[string]domain.Participant)
		d.rooms[room] = members
	}
	members[userID] = domain.Participant{UserID: userID, Preference: pref}
	return nil
}

// SetPreference replaces a member's ordered language list.
func (d *StaticDirectory) SetPreference(room domain.RoomID, userID string, codes []string) error {
	pref, err := domain.NewPreference(userID, codes)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidPreference, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	members, ok := d.rooms[room]
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrRoomNotFound, room)
	}
	if _, ok := members[userID]; !ok {
		return fmt.Errorf("%w: %s in room %s", apperrors.ErrNotParticipant, userID, room)
	}
	members[userID] = domain.Participant{UserID: userID, Preference: pref}
	return nil
}

func (d *StaticDirectory) Participants(_ context.Context, room domain.RoomID) ([]domain.Participant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	members, ok := d.rooms[room]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrRoomNotFound, room)
	}
	participants := make([]domain.Participant, 0, len(members))
	for _, p := range members {
		participants = append(participants, p)
	}
	return participants, nil
}

func (d *StaticDirectory) IsParticipant(_ context.Context, room domain.RoomID, userID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	members, ok := d.rooms[room]
	if !ok {
		return false, fmt.Errorf("%w: %s", apperrors.ErrRoomNotFound, room)
	}
	_, ok = members[userID]
	return ok, nil
}
