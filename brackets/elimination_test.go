package brackets

import (
	"context"
	"sort"
	"testing"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rankedField: участник i занимает (i+1)-е место.
func rankedField(n int) []*models.Participant {
	ps := newField(n)
	for i, p := range ps {
		p.Score = float64(n - i)
	}
	return ps
}

func TestBracketOrder(t *testing.T) {
	assert.Equal(t, []int{1, 2}, BracketOrder(2))
	assert.Equal(t, []int{1, 4, 2, 3}, BracketOrder(4))
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, BracketOrder(8))
	assert.Equal(t, []int{1, 16, 8, 9, 4, 13, 5, 12, 2, 15, 7, 10, 3, 14, 6, 11}, BracketOrder(16))
}

func TestBracketOrder_Properties(t *testing.T) {
	for size := 2; size <= 64; size *= 2 {
		order := BracketOrder(size)
		require.Len(t, order, size)

		sorted := append([]int(nil), order...)
		sort.Ints(sorted)
		for i, s := range sorted {
			require.Equal(t, i+1, s, "size %d is not a permutation", size)
		}

		for i := 0; i < size; i += 2 {
			assert.Equal(t, size+1, order[i]+order[i+1], "size %d, slot %d", size, i/2)
		}

		half := size / 2
		pos := make(map[int]int, size)
		for i, s := range order {
			pos[s] = i
		}
		assert.NotEqual(t, pos[1] < half, pos[2] < half, "size %d: seeds 1 and 2 in the same half", size)
	}
}

func TestSeedFirstEliminationRound(t *testing.T) {
	pairs, err := SeedFirstEliminationRound(rankedField(10), 8)
	require.NoError(t, err)
	require.Len(t, pairs, 4)

	expected := [][4]int{
		{1, 8, 0, 7},
		{4, 5, 3, 4},
		{2, 7, 1, 6},
		{3, 6, 2, 5},
	}
	for i, bp := range pairs {
		assert.Equal(t, expected[i], [4]int{bp.UpperSeed, bp.LowerSeed, bp.Upper.ID, bp.Lower.ID}, "pair %d", i)
	}
}

func TestSeedFirstEliminationRound_TopSeedsMeetInFinal(t *testing.T) {
	ps := rankedField(16)
	pairs, err := SeedFirstEliminationRound(ps, 16)
	require.NoError(t, err)

	// Всегда побеждает более высокий посев.
	round := make([]*models.Match, 0, len(pairs))
	for i, bp := range pairs {
		round = append(round, played(i+1, 1, bp.Upper.ID, bp.Lower.ID, models.OutcomeRoleAWin))
	}
	nextID := len(round) + 1
	for r := 2; len(round) > 1; r++ {
		next, err := SeedNextEliminationRound(round, ps)
		require.NoError(t, err)

		round = round[:0:0]
		for _, bp := range next {
			upper, lower := bp.Upper, bp.Lower
			if lower.ID < upper.ID {
				upper, lower = lower, upper
			}
			if len(next) > 1 {
				assert.False(t, upper.ID == 0 && lower.ID == 1, "seeds 1 and 2 met in round %d", r)
			}
			round = append(round, played(nextID, r, upper.ID, lower.ID, models.OutcomeRoleAWin))
			nextID++
		}
	}

	require.Len(t, round, 1)
	assert.Equal(t, 0, round[0].RoleAParticipantID)
	assert.Equal(t, 1, round[0].RoleBParticipantID)
}

func TestRankForSeeding(t *testing.T) {
	ps := newField(4)
	ps[3].Score, ps[3].TieBreakScore = 2, 5
	ps[2].Score, ps[2].TieBreakScore = 2, 3
	ps[1].Score, ps[1].SeedRank = 1, 1
	ps[0].Score, ps[0].SeedRank = 1, 2

	ranked := RankForSeeding(ps)
	ids := make([]int, len(ranked))
	for i, p := range ranked {
		ids[i] = p.ID
	}
	assert.Equal(t, []int{3, 2, 1, 0}, ids)
}

func TestSeedFirstEliminationRound_Errors(t *testing.T) {
	_, err := SeedFirstEliminationRound(rankedField(8), 6)
	assert.ErrorIs(t, err, ErrInvalidBracketSize)

	_, err = SeedFirstEliminationRound(rankedField(3), 4)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
}

func TestSeedNextEliminationRound(t *testing.T) {
	ps := newField(8)
	previous := []*models.Match{
		played(13, 4, 6, 7, models.OutcomeRoleBWin),
		played(10, 4, 0, 1, models.OutcomeRoleAWin),
		played(12, 4, 4, 5, models.OutcomeRoleAWin),
		played(11, 4, 2, 3, models.OutcomeRoleBWin),
	}

	pairs, err := SeedNextEliminationRound(previous, ps)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, 0, pairs[0].Upper.ID)
	assert.Equal(t, 3, pairs[0].Lower.ID)
	assert.Equal(t, 4, pairs[1].Upper.ID)
	assert.Equal(t, 7, pairs[1].Lower.ID)
}

func TestSeedNextEliminationRound_Errors(t *testing.T) {
	ps := newField(4)

	_, err := SeedNextEliminationRound([]*models.Match{played(1, 2, 0, 1, models.OutcomeRoleAWin)}, ps)
	assert.ErrorIs(t, err, ErrBracketComplete)

	_, err = SeedNextEliminationRound([]*models.Match{
		played(1, 1, 0, 1, models.OutcomeRoleAWin),
		played(2, 1, 2, 3, ""),
	}, ps)
	assert.ErrorIs(t, err, ErrIncompleteRound)
}

func TestEliminationRoles(t *testing.T) {
	t.Run("first meeting uses side preference", func(t *testing.T) {
		ps := newField(3)
		Recompute([]*models.Match{played(1, 1, 0, 2, models.OutcomeRoleAWin)}, ps)

		a, b := EliminationRoles(ps[0], ps[1], stubRand{f: 0.1})
		assert.Equal(t, 1, a.ID)
		assert.Equal(t, 0, b.ID)
	})

	t.Run("second meeting swaps sides", func(t *testing.T) {
		ps := newField(2)
		Recompute([]*models.Match{played(1, 1, 1, 0, models.OutcomeRoleAWin)}, ps)

		for _, f := range []float64{0.1, 0.9} {
			a, b := EliminationRoles(ps[1], ps[0], stubRand{f: f})
			assert.Equal(t, 0, a.ID)
			assert.Equal(t, 1, b.ID)

			a, _ = EliminationRoles(ps[0], ps[1], stubRand{f: f})
			assert.Equal(t, 0, a.ID)
		}
	})

	t.Run("third meeting is a coin flip", func(t *testing.T) {
		ps := newField(2)
		Recompute([]*models.Match{
			played(1, 1, 1, 0, models.OutcomeRoleAWin),
			played(2, 2, 0, 1, models.OutcomeRoleAWin),
		}, ps)

		a, _ := EliminationRoles(ps[0], ps[1], stubRand{f: 0.1})
		assert.Equal(t, 0, a.ID)
		a, _ = EliminationRoles(ps[0], ps[1], stubRand{f: 0.9})
		assert.Equal(t, 1, a.ID)
	})
}

func TestEliminationGenerator_GenerateRound(t *testing.T) {
	g := NewEliminationGenerator(stubRand{f: 0.1})
	assert.Equal(t, "SingleElimination", g.GetName())

	ps := rankedField(6)
	pairings, err := g.GenerateRound(context.Background(), GenerateRoundParams{
		Round:        4,
		Participants: ps,
		Standings:    ps,
		BracketSize:  4,
	})
	require.NoError(t, err)
	require.Len(t, pairings, 2)
	assert.Equal(t, [2]int{0, 3}, pairKey(pairings[0]))
	assert.Equal(t, [2]int{1, 2}, pairKey(pairings[1]))

	_, err = g.GenerateRound(context.Background(), GenerateRoundParams{
		Round:         6,
		Participants:  ps,
		PreviousRound: []*models.Match{played(9, 5, 0, 1, models.OutcomeRoleAWin)},
		BracketSize:   4,
	})
	assert.ErrorIs(t, err, ErrBracketComplete)
}
