// swiss-tournament/brackets/elimination.go
package brackets

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/swiss-tournament/models"
)

var (
	ErrInvalidBracketSize    = errors.New("bracket size must be a power of two and at least 2")
	ErrNotEnoughParticipants = errors.New("not enough participants for the bracket")
	ErrIncompleteRound       = errors.New("previous elimination round is not fully reported")
	ErrBracketComplete       = errors.New("elimination bracket is already complete")
)

// BracketPair - пара плей-офф до распределения сторон.
// В первом раунде Upper - более высокий посев, дальше - победитель матча с меньшим id.
type BracketPair struct {
	Upper     *models.Participant
	Lower     *models.Participant
	UpperSeed int
	LowerSeed int
}

// RankForSeeding сортирует участников для посева: очки и Бухгольц по убыванию, затем seedRank и id.
func RankForSeeding(participants []*models.Participant) []*models.Participant {
	out := make([]*models.Participant, len(participants))
	copy(out, participants)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TieBreakScore != b.TieBreakScore {
			return a.TieBreakScore > b.TieBreakScore
		}
		if a.SeedRank != b.SeedRank {
			return a.SeedRank < b.SeedRank
		}
		return a.ID < b.ID
	})
	return out
}

// BracketOrder возвращает номера посева (с 1) в порядке позиций сетки.
// Соседние позиции образуют матч 1-го раунда, посевы 1 и 2 могут встретиться только в финале.
// Для 8: [1 8 4 5 2 7 3 6].
func BracketOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		n := len(order) * 2
		next := make([]int, 0, n)
		for _, s := range order {
			next = append(next, s, n+1-s)
		}
		order = next
	}
	return order
}

func isPowerOfTwo(n int) bool {
	return n >= 2 && n&(n-1) == 0
}

// SeedFirstEliminationRound отбирает bracketSize лучших по таблице отборочных раундов
// и составляет пары "i-й против (size-1-i)-го" в порядке сетки.
func SeedFirstEliminationRound(standings []*models.Participant, bracketSize int) ([]BracketPair, error) {
	if !isPowerOfTwo(bracketSize) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBracketSize, bracketSize)
	}
	if len(standings) < bracketSize {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrNotEnoughParticipants, bracketSize, len(standings))
	}

	seeded := RankForSeeding(standings)[:bracketSize]
	order := BracketOrder(bracketSize)

	pairs := make([]BracketPair, 0, bracketSize/2)
	for i := 0; i < len(order); i += 2 {
		hi, lo := order[i], order[i+1]
		if lo < hi {
			hi, lo = lo, hi
		}
		pairs = append(pairs, BracketPair{
			Upper:     seeded[hi-1],
			Lower:     seeded[lo-1],
			UpperSeed: hi,
			LowerSeed: lo,
		})
	}
	return pairs, nil
}

// SeedNextEliminationRound сводит победителей последовательных пар матчей предыдущего раунда
// (по возрастанию id): победитель 1-го матча против победителя 2-го и т.д.
func SeedNextEliminationRound(previous []*models.Match, participants []*models.Participant) ([]BracketPair, error) {
	if len(previous) == 1 {
		return nil, ErrBracketComplete
	}
	if len(previous) == 0 || len(previous)%2 != 0 {
		return nil, fmt.Errorf("cannot advance bracket from %d matches", len(previous))
	}

	byID := make(map[int]*models.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	ordered := make([]*models.Match, len(previous))
	copy(ordered, previous)
	models.SortMatches(ordered)

	winners := make([]*models.Participant, 0, len(ordered))
	for _, m := range ordered {
		id, ok := m.WinnerID()
		if !ok {
			return nil, fmt.Errorf("%w: match %d has no result", ErrIncompleteRound, m.ID)
		}
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("match %d winner %d is not a known participant", m.ID, id)
		}
		winners = append(winners, p)
	}

	pairs := make([]BracketPair, 0, len(winners)/2)
	for i := 0; i < len(winners); i += 2 {
		pairs = append(pairs, BracketPair{Upper: winners[i], Lower: winners[i+1]})
	}
	return pairs, nil
}

// EliminationRoles распределяет стороны в плей-офф: при одной прошлой встрече
// стороны меняются местами, при двух и более - жребий, без встреч - по предпочтению сторон.
func EliminationRoles(t1, t2 *models.Participant, rng RandSource) (roleA, roleB *models.Participant) {
	switch t1.TimesFaced(t2.ID) {
	case 0:
		return DetermineRoles(t1, t2, false, rng)
	case 1:
		if roles := t1.RolesAgainst(t2.ID); len(roles) > 0 && roles[0] == models.RoleA {
			return t2, t1
		}
		return t1, t2
	default:
		if coinFlip(rng) {
			return t1, t2
		}
		return t2, t1
	}
}

type EliminationGenerator struct {
	rng RandSource
}

func NewEliminationGenerator(rng RandSource) *EliminationGenerator {
	return &EliminationGenerator{rng: rng}
}

func (g *EliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateRound: без PreviousRound - посев по Standings, иначе - победители PreviousRound.
// Стороны распределяются по истории из Participants (полная статистика турнира).
func (g *EliminationGenerator) GenerateRound(ctx context.Context, params GenerateRoundParams) ([]Pairing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		pairs []BracketPair
		err   error
	)
	if params.PreviousRound == nil {
		pairs, err = SeedFirstEliminationRound(params.Standings, params.BracketSize)
	} else {
		pairs, err = SeedNextEliminationRound(params.PreviousRound, params.Participants)
	}
	if err != nil {
		return nil, err
	}

	full := make(map[int]*models.Participant, len(params.Participants))
	for _, p := range params.Participants {
		full[p.ID] = p
	}

	pairings := make([]Pairing, 0, len(pairs))
	for _, bp := range pairs {
		upper, lower := full[bp.Upper.ID], full[bp.Lower.ID]
		if upper == nil || lower == nil {
			return nil, fmt.Errorf("bracket pair %d-%d references unknown participant", bp.Upper.ID, bp.Lower.ID)
		}
		a, b := EliminationRoles(upper, lower, g.rng)
		pairings = append(pairings, Pairing{RoleA: a, RoleB: b})
	}
	return pairings, nil
}
