package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"babelroom/domain"
	apperrors "babelroom/errors"
)

func TestStaticDirectory_Join_And_Lookup(t *testing.T) {
	req := require.New(t)
	d := NewStaticDirectory()

	req.NoError(d.Join("general", "alice", []string{"es", "en"}))
	req.NoError(d.Join("general", "bob", []string{"fr"}))

	participants, err := d.Participants(context.Background(), "general")
	req.NoError(err)
	req.Len(participants, 2)

	ok, err := d.IsParticipant(context.Background(), "general", "alice")
	req.NoError(err)
	req.True(ok)

	ok, err = d.IsParticipant(context.Background(), "general", "mallory")
	req.NoError(err)
	req.False(ok)
}

func TestStaticDirectory_Join_Validates_Preference(t *testing.T) {
	req := require.New(t)
	d := NewStaticDirectory()

	// Invalid codes are rejected at the update boundary
	err := d.Join("general", "alice", []string{"xx"})
	req.True(errors.Is(err, apperrors.ErrInvalidPreference))

	err = d.Join("general", "alice", []string{"en", "es", "fr", "de"})
	req.True(errors.Is(err, apperrors.ErrInvalidPreference))
}

func TestStaticDirectory_SetPreference_Replaces_Ordered_List(t *testing.T) {
	req := require.New(t)
	d := NewStaticDirectory()
	req.NoError(d.Join("general", "alice", []string{"en"}))

	req.NoError(d.SetPreference("general", "alice", []string{"ja", "en"}))

	participants, err := d.Participants(context.Background(), "general")
	req.NoError(err)
	req.Len(participants, 1)
	req.Equal([]domain.Language{domain.Japanese, domain.English}, participants[0].Preference.Languages)
}

func TestStaticDirectory_SetPreference_Unknown_Member(t *testing.T) {
	req := require.New(t)
	d := NewStaticDirectory()
	d.AddRoom("general")

	err := d.SetPreference("general", "ghost", []string{"en"})
	req.True(errors.Is(err, apperrors.ErrNotParticipant))

	err = d.SetPreference("missing", "ghost", []string{"en"})
	req.True(errors.Is(err, apperrors.ErrRoomNotFound))
}

func TestStaticDirectory_Unknown_Room(t *testing.T) {
	req := require.New(t)
	d := NewStaticDirectory()

	_, err := d.Participants(context.Background(), "missing")
	req.True(errors.Is(err, apperrors.ErrRoomNotFound))

	_, err = d.IsParticipant(context.Background(), "missing", "alice")
	req.True(errors.Is(err, apperrors.ErrRoomNotFound))
}
