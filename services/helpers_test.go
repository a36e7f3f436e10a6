package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

// fixedRand не перемешивает, а при равном предпочтении сторону A получает первый участник.
type fixedRand struct{}

func (fixedRand) Shuffle(n int, swap func(i, j int)) {}
func (fixedRand) Float64() float64                   { return 0.25 }

type event struct {
	Room string
	Type string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) BroadcastEvent(roomID, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{Room: roomID, Type: eventType})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

func newTestService(t *testing.T) (TournamentService, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	svc := NewTournamentService(
		repositories.NewMemoryStateRepository(),
		notifier,
		discardLogger(),
		TournamentServiceConfig{
			Room:         "tournament_test",
			Rand:         fixedRand{},
			RandomRounds: 1,
			Now:          func() time.Time { return fixedNow },
		},
	)
	return svc, notifier
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func initTournament(t *testing.T, svc TournamentService, participants, prelim, elim int, names ...string) *models.TournamentState {
	t.Helper()
	state, err := svc.Init(context.Background(), InitInput{
		Name:                 "Spring Open",
		NumParticipants:      participants,
		NumPreliminaryRounds: prelim,
		NumEliminationRounds: elim,
		Names:                names,
	})
	require.NoError(t, err)
	return state
}

func pair(t *testing.T, svc TournamentService, round int) *PairRoundResult {
	t.Helper()
	result, err := svc.PairRound(context.Background(), round)
	require.NoError(t, err)
	return result
}

func report(t *testing.T, svc TournamentService, matchID int, outcome models.Outcome) *ReportOutcome {
	t.Helper()
	out, err := svc.ReportResult(context.Background(), ReportInput{MatchID: matchID, Outcome: outcome})
	require.NoError(t, err)
	return out
}

// reportAll вносит победу стороны A во все матчи раунда, кроме баев.
func reportAll(t *testing.T, svc TournamentService, round int) {
	t.Helper()
	pending, err := svc.PendingMatches(context.Background(), round)
	require.NoError(t, err)
	for _, m := range pending {
		report(t, svc, m.ID, models.OutcomeRoleAWin)
	}
}

func scoreOf(t *testing.T, svc TournamentService, id int) float64 {
	t.Helper()
	state, err := svc.State(context.Background())
	require.NoError(t, err)
	p := state.ParticipantByID(id)
	require.NotNil(t, p)
	return p.Score
}

func intPtr(i int) *int {
	return &i
}

func pairIDs(m *models.Match) [2]int {
	a, b := m.RoleAParticipantID, m.RoleBParticipantID
	if b >= 0 && b < a {
		a, b = b, a
	}
	return [2]int{a, b}
}
