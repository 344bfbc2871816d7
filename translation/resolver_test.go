package translation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"babelroom/domain"
)

func participant(t *testing.T, userID string, codes ...string) domain.Participant {
	t.Helper()
	pref, err := domain.NewPreference(userID, codes)
	require.NoError(t, err)
	return domain.Participant{UserID: userID, Preference: pref}
}

func TestResolveTargets_Merges_Preferences_With_Minimum_Priority(t *testing.T) {
	req := require.New(t)

	// Given a room where Spanish and French are primaries for someone
	// and German only ever appears as a secondary choice
	participants := []domain.Participant{
		participant(t, "alice", "es", "fr"),
		participant(t, "bob", "de"),
		participant(t, "clara", "fr"),
	}

	targets := ResolveTargets(participants, domain.English)

	// Then every language lands in the primary tier, code order breaking
	// the tie
	req.Equal([]Target{
		{Language: domain.German, Priority: 0},
		{Language: domain.Spanish, Priority: 0},
		{Language: domain.French, Priority: 0},
	}, targets)
}

func TestResolveTargets_Excludes_Source_Language(t *testing.T) {
	req := require.New(t)
	participants := []domain.Participant{
		participant(t, "alice", "en", "es"),
		participant(t, "bob", "en"),
	}

	targets := ResolveTargets(participants, domain.English)

	req.Len(targets, 1)
	req.Equal(domain.Spanish, targets[0].Language)
	req.Equal(1, targets[0].Priority)
}

func TestResolveTargets_Keeps_Best_Priority_Across_Participants(t *testing.T) {
	req := require.New(t)

	// German is third choice for alice but primary for bob
	participants := []domain.Participant{
		participant(t, "alice", "es", "fr", "de"),
		participant(t, "bob", "de"),
	}

	targets := ResolveTargets(participants, domain.English)
	req.Equal([]Target{
		{Language: domain.German, Priority: 0},
		{Language: domain.Spanish, Priority: 0},
		{Language: domain.French, Priority: 1},
	}, targets)
}

func TestResolveTargets_Skips_Unusable_Preferences(t *testing.T) {
	req := require.New(t)
	participants := []domain.Participant{
		{UserID: "ghost"},
		participant(t, "alice", "it"),
	}

	targets := ResolveTargets(participants, domain.English)
	req.Len(targets, 1)
	req.Equal(domain.Italian, targets[0].Language)
}

func TestResolveTargets_Empty_Room(t *testing.T) {
	req := require.New(t)
	req.Empty(ResolveTargets(nil, domain.English))
}

func TestTiers_Groups_By_Priority(t *testing.T) {
	req := require.New(t)
	targets := []Target{
		{Language: domain.Spanish, Priority: 0},
		{Language: domain.French, Priority: 0},
		{Language: domain.German, Priority: 1},
		{Language: domain.Italian, Priority: 2},
	}

	tiers := Tiers(targets)
	req.Equal([][]domain.Language{
		{domain.Spanish, domain.French},
		{domain.German},
		{domain.Italian},
	}, tiers)
}

func TestTiers_Empty_Input(t *testing.T) {
	req := require.New(t)
	req.Empty(Tiers(nil))
}
