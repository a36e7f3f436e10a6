package brackets

import (
	"testing"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/stretchr/testify/assert"
)

func TestTieBreakScores(t *testing.T) {
	ps := newField(5)
	matches := []*models.Match{
		played(1, 1, 0, 1, models.OutcomeRoleAWin),
		played(2, 1, 2, 3, models.OutcomeRoleBWin),
		bye(3, 1, 4),
		played(4, 2, 0, 3, models.OutcomeRoleAWin),
		played(5, 2, 4, 1, models.OutcomeRoleBWin),
		bye(6, 2, 2),
	}
	Recompute(matches, ps)

	// Очки: 0=2, 1=1, 2=1, 3=1, 4=1.
	assert.Equal(t, 2.0, ps[0].Score)
	scores := TieBreakScores(ps)
	assert.Equal(t, map[int]float64{
		0: 2, // 1 + 3
		1: 3, // 0 + 4
		2: 1, // 3, бай не считается
		3: 3, // 2 + 0
		4: 1, // 1, бай не считается
	}, scores)

	for _, p := range ps {
		assert.Equal(t, scores[p.ID], p.TieBreakScore, "participant %d", p.ID)
	}
}

func TestTieBreakScores_DoesNotMutate(t *testing.T) {
	ps := newField(2)
	Recompute([]*models.Match{played(1, 1, 0, 1, models.OutcomeRoleAWin)}, ps)
	ps[0].TieBreakScore = 42

	TieBreakScores(ps)
	assert.Equal(t, 42.0, ps[0].TieBreakScore)
}
