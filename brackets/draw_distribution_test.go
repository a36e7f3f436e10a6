package brackets

import (
	"testing"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Жеребьёвка случайна, поэтому здесь проверяются частоты на многих прогонах
// с фиксированным seed. Допуски - около пяти стандартных отклонений.

func opponentOf(pairings []Pairing, id int) (opponent int, roleA bool) {
	for _, p := range pairings {
		switch {
		case p.RoleA.ID == id:
			return p.RoleBID(), true
		case p.RoleB != nil && p.RoleB.ID == id:
			return p.RoleA.ID, false
		}
	}
	return models.ByeSentinel, false
}

func TestDetermineRoles_CoinFlipIsFair(t *testing.T) {
	const trials = 10000
	rng := NewSeededRand(2024)
	ps := newField(2)

	firstGotA := 0
	for i := 0; i < trials; i++ {
		a, _ := DetermineRoles(ps[0], ps[1], false, rng)
		if a.ID == ps[0].ID {
			firstGotA++
		}
	}
	// sd = sqrt(10000 * 0.25) = 50
	assert.InDelta(t, trials/2, firstGotA, 250)
}

func TestPair_OpeningRoundOpponentsUniform(t *testing.T) {
	const runs = 7000
	rng := NewSeededRand(7)
	gen := NewSwissGenerator(rng, 1)
	ps := newField(8)

	opponents := make(map[int]int)
	roleA := 0
	for i := 0; i < runs; i++ {
		opp, asA := opponentOf(gen.Pair(ps, 1, true), 0)
		require.NotEqual(t, models.ByeSentinel, opp)
		opponents[opp]++
		if asA {
			roleA++
		}
	}

	require.Len(t, opponents, 7, "every other participant is drawn against 0")
	// Ожидается 1000 на соперника, sd ~ 29.
	for id, n := range opponents {
		assert.InDelta(t, runs/7, n, 150, "opponent %d", id)
	}
	// sd ~ 42
	assert.InDelta(t, runs/2, roleA, 210)
}

func TestPair_ScoreGroupTiesDrawnAtRandom(t *testing.T) {
	const runs = 6000
	ps := newField(8)
	Recompute([]*models.Match{
		played(1, 1, 0, 1, models.OutcomeRoleAWin),
		played(2, 1, 2, 3, models.OutcomeRoleAWin),
		played(3, 1, 4, 5, models.OutcomeRoleAWin),
		played(4, 1, 6, 7, models.OutcomeRoleAWin),
	}, ps)

	gen := NewSwissGenerator(NewSeededRand(99), 1)
	opponents := make(map[int]int)
	for i := 0; i < runs; i++ {
		opp, _ := opponentOf(gen.Pair(ps, 2, true), 0)
		opponents[opp]++
	}

	// Победители равны по очкам, Бухгольцу и посеву: соперник 0 - любой из них.
	require.Len(t, opponents, 3)
	for _, id := range []int{2, 4, 6} {
		// Ожидается 2000, sd ~ 37.
		assert.InDelta(t, runs/3, opponents[id], 200, "opponent %d", id)
	}
}
