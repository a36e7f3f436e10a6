// swiss-tournament/brackets/swiss.go
package brackets

import (
	"context"
	"errors"
	"sort"

	"github.com/Dosada05/swiss-tournament/models"
)

// DefaultRandomRounds - сколько первых раундов жеребьятся одной группой, без разбиения по очкам.
const DefaultRandomRounds = 2

type SwissGenerator struct {
	rng          RandSource
	randomRounds int
}

// NewSwissGenerator создаёт генератор швейцарской системы.
// randomRounds < 0 означает DefaultRandomRounds.
func NewSwissGenerator(rng RandSource, randomRounds int) *SwissGenerator {
	if randomRounds < 0 {
		randomRounds = DefaultRandomRounds
	}
	return &SwissGenerator{rng: rng, randomRounds: randomRounds}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

func (g *SwissGenerator) GenerateRound(ctx context.Context, params GenerateRoundParams) ([]Pairing, error) {
	if len(params.Participants) == 0 {
		return nil, errors.New("cannot pair a round with zero participants")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Pair(params.Participants, params.Round, params.UseTieBreak), nil
}

// Pair распаривает участников на раунд round (нумерация с 1).
// Участники не изменяются. При нечётном числе ровно один участник получает бай.
func (g *SwissGenerator) Pair(participants []*models.Participant, round int, useTieBreak bool) []Pairing {
	var tieBreaks map[int]float64
	if useTieBreak {
		tieBreaks = TieBreakScores(participants)
	}

	pool := make([]*models.Participant, len(participants))
	copy(pool, participants)
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	byScore := round > g.randomRounds
	groups := make(map[float64][]*models.Participant)
	for _, p := range pool {
		key := 0.0
		if byScore {
			key = p.Score
		}
		groups[key] = append(groups[key], p)
	}
	keys := make([]float64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(keys)))

	pairings := make([]Pairing, 0, (len(pool)+1)/2)
	var floaters []*models.Participant

	for _, key := range keys {
		group := make([]*models.Participant, 0, len(floaters)+len(groups[key]))
		group = append(group, floaters...)
		group = append(group, groups[key]...)
		floaters = nil

		if byScore {
			sortGroup(group, tieBreaks)
		}

		for len(group) > 0 {
			first, rest := group[0], group[1:]
			idx, swappable := findBestOpponent(first, rest)
			if idx < 0 {
				floaters = append(floaters, first)
				group = rest
				continue
			}
			opponent := rest[idx]
			group = removeAt(rest, idx)

			a, b := DetermineRoles(first, opponent, swappable, g.rng)
			pairings = append(pairings, Pairing{RoleA: a, RoleB: b})
		}
	}

	for len(floaters) >= 2 {
		a, b := DetermineRoles(floaters[0], floaters[1], false, g.rng)
		pairings = append(pairings, Pairing{RoleA: a, RoleB: b})
		floaters = floaters[2:]
	}
	if len(floaters) == 1 {
		pairings = append(pairings, Pairing{RoleA: floaters[0]})
	}

	return pairings
}

// findBestOpponent возвращает первого кандидата, с которым participant ещё не встречался.
// Если такого нет - первого, против которого остались несыгранные стороны (swappable = true).
// -1, если подходящих нет.
func findBestOpponent(participant *models.Participant, candidates []*models.Participant) (int, bool) {
	swappable := -1
	for i, c := range candidates {
		if !participant.HasFaced(c.ID) {
			return i, false
		}
		if swappable < 0 && canSwap(participant, c) {
			swappable = i
		}
	}
	if swappable >= 0 {
		return swappable, true
	}
	return -1, false
}

func canSwap(participant, opponent *models.Participant) bool {
	return !participant.PlayedRoleAgainst(opponent.ID, models.RoleA) ||
		!participant.PlayedRoleAgainst(opponent.ID, models.RoleB)
}

// sortGroup: очки, Бухгольц (если передан), затем меньший посев - выше.
func sortGroup(group []*models.Participant, tieBreaks map[int]float64) {
	sort.SliceStable(group, func(i, j int) bool {
		a, b := group[i], group[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if tieBreaks != nil && tieBreaks[a.ID] != tieBreaks[b.ID] {
			return tieBreaks[a.ID] > tieBreaks[b.ID]
		}
		return -a.SeedRank > -b.SeedRank
	})
}

func removeAt(ps []*models.Participant, idx int) []*models.Participant {
	out := make([]*models.Participant, 0, len(ps)-1)
	out = append(out, ps[:idx]...)
	return append(out, ps[idx+1:]...)
}
