package brackets

import (
	"testing"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLog() []*models.Match {
	return []*models.Match{
		played(1, 1, 0, 1, models.OutcomeRoleAWin),
		played(2, 1, 2, 3, models.OutcomeRoleBWin),
		bye(3, 1, 4),
		played(4, 2, 3, 0, models.OutcomeRoleBWin),
		played(5, 2, 1, 4, models.OutcomeRoleAWin),
		bye(6, 2, 2),
		played(7, 3, 0, 2, ""),
	}
}

func TestRecompute_Totals(t *testing.T) {
	ps := newField(5)
	Recompute(sampleLog(), ps)

	p0 := ps[0]
	assert.Equal(t, 2.0, p0.Score)
	assert.Equal(t, 2, p0.WinCount)
	assert.Equal(t, 1, p0.RoleACount)
	assert.Equal(t, 1, p0.RoleBCount)
	assert.Equal(t, models.RoleB, p0.LastRole)
	assert.Equal(t, []int{1, 3}, p0.OpponentHistory)
	assert.Equal(t, []models.MatchResult{models.ResultWin, models.ResultWin}, p0.ResultHistory)
	assert.Equal(t, []models.Role{models.RoleB}, p0.RolesAgainst(3))

	p4 := ps[4]
	assert.Equal(t, 1.0, p4.Score)
	assert.Equal(t, []int{models.ByeSentinel, 1}, p4.OpponentHistory)
	assert.Equal(t, 0, p4.RoleACount)
	assert.Equal(t, 1, p4.RoleBCount)
	assert.Equal(t, 1, p4.ByeCount())
}

func TestRecompute_RoleCountsBalance(t *testing.T) {
	ps := newField(5)
	log := sampleLog()
	Recompute(log, ps)

	games := 0
	for _, m := range log {
		if m.IsReported() && !m.IsBye() {
			games++
		}
	}
	sumA, sumB, results := 0, 0, 0
	for _, p := range ps {
		sumA += p.RoleACount
		sumB += p.RoleBCount
		results += len(p.ResultHistory)
		assert.Equal(t, len(p.ResultHistory), len(p.OpponentHistory))
	}
	assert.Equal(t, games, sumA)
	assert.Equal(t, games, sumB)
	assert.Equal(t, 2*games+2, results, "two byes")
}

func TestRecompute_Idempotent(t *testing.T) {
	ps := newField(5)
	log := sampleLog()

	Recompute(log, ps)
	first := models.CloneParticipants(ps)
	Recompute(log, ps)
	assert.Equal(t, first, ps)
}

func TestRecompute_OrderIndependent(t *testing.T) {
	log := sampleLog()
	reversed := make([]*models.Match, len(log))
	for i, m := range log {
		reversed[len(log)-1-i] = m
	}

	a, b := newField(5), newField(5)
	Recompute(log, a)
	Recompute(reversed, b)
	assert.Equal(t, a, b)
}

func TestRecompute_SkipsSupersededAndUnreported(t *testing.T) {
	ps := newField(2)
	old := played(1, 1, 0, 1, models.OutcomeRoleAWin)
	old.Superseded = true
	Recompute([]*models.Match{old, played(2, 1, 1, 0, "")}, ps)

	for _, p := range ps {
		assert.Zero(t, p.Score)
		assert.Empty(t, p.OpponentHistory)
		assert.Equal(t, models.RoleNone, p.LastRole)
	}
}

func TestRecompute_ResetsStaleFields(t *testing.T) {
	ps := newField(2)
	ps[0].Score = 10
	ps[0].OpponentHistory = []int{1, 1, 1}

	Recompute(nil, ps)
	assert.Zero(t, ps[0].Score)
	assert.Empty(t, ps[0].OpponentHistory)
}

func TestRecompute_UnknownParticipantPanics(t *testing.T) {
	ps := newField(2)
	assert.Panics(t, func() {
		Recompute([]*models.Match{played(1, 1, 0, 7, models.OutcomeRoleAWin)}, ps)
	})
}

func TestPreliminaryStandings(t *testing.T) {
	ps := newField(5)
	log := append(sampleLog(), played(8, 3, 4, 3, models.OutcomeRoleAWin))
	Recompute(log, ps)
	before := models.CloneParticipants(ps)

	prelim := PreliminaryStandings(log, ps, 1)
	require.Len(t, prelim, 5)
	assert.Equal(t, 1.0, prelim[0].Score)
	assert.Equal(t, 1.0, prelim[4].Score)
	assert.Zero(t, prelim[2].Score)
	assert.Equal(t, before, ps, "originals untouched")
}

func TestBuildStandings(t *testing.T) {
	ps := newField(5)
	Recompute(sampleLog(), ps)

	rows := BuildStandings(ps)
	require.Len(t, rows, 5)
	assert.Equal(t, 0, rows[0].ParticipantID)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 2, rows[0].Wins)
	assert.Equal(t, 0, rows[0].Losses)

	for _, r := range rows {
		if r.ParticipantID == 4 {
			assert.Equal(t, 1, r.Byes)
			assert.Equal(t, 0, r.Wins)
			assert.Equal(t, 1, r.Losses)
		}
	}
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].Score, rows[i].Score)
	}
}
