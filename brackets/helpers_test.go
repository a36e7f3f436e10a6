package brackets

import (
	"fmt"

	"github.com/Dosada05/swiss-tournament/models"
)

// stubRand не перемешивает и всегда возвращает f из Float64.
type stubRand struct{ f float64 }

func (s stubRand) Shuffle(n int, swap func(i, j int)) {}
func (s stubRand) Float64() float64                   { return s.f }

func newField(n int) []*models.Participant {
	ps := make([]*models.Participant, n)
	for i := range ps {
		ps[i] = models.NewParticipant(i, fmt.Sprintf("Team %d", i+1), 0)
	}
	return ps
}

func played(id, round, a, b int, outcome models.Outcome) *models.Match {
	m := &models.Match{ID: id, RoundNumber: round, RoleAParticipantID: a, RoleBParticipantID: b}
	if outcome != "" {
		m.SetResult(outcome)
	}
	return m
}

func bye(id, round, a int) *models.Match {
	return played(id, round, a, models.ByeSentinel, models.OutcomeRoleAWin)
}

// toMatches превращает пары раунда в матчи, где всегда побеждает сторона A.
func toMatches(pairings []Pairing, round, firstID int) []*models.Match {
	out := make([]*models.Match, 0, len(pairings))
	for i, p := range pairings {
		out = append(out, played(firstID+i, round, p.RoleA.ID, p.RoleBID(), models.OutcomeRoleAWin))
	}
	return out
}

func pairKey(p Pairing) [2]int {
	a, b := p.RoleA.ID, p.RoleBID()
	if b >= 0 && b < a {
		a, b = b, a
	}
	return [2]int{a, b}
}
