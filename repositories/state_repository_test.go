package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *models.TournamentState {
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	state := &models.TournamentState{
		ID:   "7b0c6a8e-4f1e-4a7b-9d55-2f6f3c1f0a11",
		Name: "Spring Open",
		Config: models.TournamentConfig{
			NumParticipants:      3,
			NumPreliminaryRounds: 2,
			UseTieBreak:          true,
		},
		RoundsPaired: []models.PairedRound{{RoundNumber: 1, MatchIDs: []int{2, 3}, Repaired: true}},
		Participants: []*models.Participant{
			models.NewParticipant(0, "Alpha", 1),
			models.NewParticipant(1, "Bravo", 0),
			models.NewParticipant(2, "Charlie", 2),
		},
		Matches: []*models.Match{
			{ID: 1, RoundNumber: 1, RoleAParticipantID: 0, RoleBParticipantID: 2, Superseded: true, JudgeID: models.NoJudge},
			{ID: 2, RoundNumber: 1, RoleAParticipantID: 1, RoleBParticipantID: 0, JudgeID: 4,
				SpeakerPoints: models.SpeakerPoints{"Alpha 1": 27.5, "Bravo 1": 28}},
			models.NewMatch(3, 1, 2, models.ByeSentinel),
		},
		NextMatchID:  4,
		CurrentRound: 1,
		CreatedAt:    now,
		UpdatedAt:    now.Add(time.Hour),
	}
	state.Matches[1].SetResult(models.OutcomeRoleBWin)
	state.Matches[2].SetResult(models.OutcomeRoleAWin)
	brackets.Recompute(state.Matches, state.Participants)
	return state
}

func testRoundTrip(t *testing.T, repo StateRepository) {
	t.Helper()
	ctx := context.Background()

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, ErrStateNotFound)

	state := sampleState()
	require.NoError(t, repo.Save(ctx, state))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
	assert.Equal(t, []models.Role{models.RoleB}, loaded.ParticipantByID(0).RolesAgainst(1))
	assert.Equal(t, 4, loaded.MatchByID(2).JudgeID)
	assert.Equal(t, models.SpeakerPoints{"Alpha 1": 27.5, "Bravo 1": 28}, loaded.MatchByID(2).SpeakerPoints)
	assert.Equal(t, models.NoJudge, loaded.MatchByID(3).JudgeID)

	loaded.Name = "Changed"
	loaded.Matches[1].SetResult(models.OutcomeRoleAWin)
	require.NoError(t, repo.Save(ctx, loaded))

	again, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Changed", again.Name)
	assert.Equal(t, models.OutcomeRoleAWin, *again.MatchByID(2).Result)
}

func TestMemoryStateRepository(t *testing.T) {
	repo := NewMemoryStateRepository()
	testRoundTrip(t, repo)

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	loaded.Participants[0].DisplayName = "Mutated"

	fresh, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Alpha", fresh.Participants[0].DisplayName, "stored state is not shared with callers")
}

func TestFileStateRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tournament.json")
	testRoundTrip(t, NewFileStateRepository(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStateRepository_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tournament.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStateRepository(path).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStateNotFound)
}

func TestObjectStateRepository(t *testing.T) {
	store := storage.NewMemoryStorage("")
	testRoundTrip(t, NewObjectStateRepository(store, "spring-open"))

	assert.Equal(t, []string{"tournaments/spring-open.json"}, store.Keys("tournaments/"))
}

func TestDecodeState_MissingRoleHistory(t *testing.T) {
	state, err := decodeState([]byte(`{"name":"x","participants":[{"id":0,"display_name":"a"}]}`))
	require.NoError(t, err)
	require.Len(t, state.Participants, 1)
	assert.NotNil(t, state.Participants[0].RoleHistory)
}

func TestDecodeState_MissingJudge(t *testing.T) {
	state, err := decodeState([]byte(`{"name":"x","matches":[{"match_id":1,"round_number":1,"role_a_id":0,"role_b_id":1}]}`))
	require.NoError(t, err)
	require.Len(t, state.Matches, 1)
	assert.Equal(t, models.NoJudge, state.Matches[0].JudgeID)
	assert.Nil(t, state.Matches[0].SpeakerPoints)
}
