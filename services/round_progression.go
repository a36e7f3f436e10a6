package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
)

// RoundStatus - состояние раунда в жизненном цикле турнира.
type RoundStatus string

const (
	RoundNotPaired         RoundStatus = "not_paired"
	RoundPaired            RoundStatus = "paired"
	RoundPartiallyReported RoundStatus = "partially_reported"
	RoundReported          RoundStatus = "reported"
)

// StatusOfRound вычисляет состояние раунда. Баи не считаются внесёнными результатами.
func StatusOfRound(state *models.TournamentState, round int) RoundStatus {
	if round < 1 || round > state.PairedRoundCount() {
		return RoundNotPaired
	}
	if state.IsRoundReported(round) {
		return RoundReported
	}
	if hasReportedResults(state, round) {
		return RoundPartiallyReported
	}
	return RoundPaired
}

func hasReportedResults(state *models.TournamentState, round int) bool {
	for _, m := range state.RoundMatches(round) {
		if !m.IsBye() && m.IsReported() {
			return true
		}
	}
	return false
}

// checkCanPair проверяет, можно ли распарить раунд. repair = true, если раунд перепаривается.
func checkCanPair(state *models.TournamentState, round int) (repair bool, err error) {
	total := state.Config.TotalRounds()
	if round < 1 || round > total {
		return false, fmt.Errorf("%w: round %d is outside 1..%d", ErrRoundNotSequential, round, total)
	}

	paired := state.PairedRoundCount()
	switch {
	case round == paired+1:
	case round == paired:
		if state.RoundsPaired[round-1].Repaired {
			return false, fmt.Errorf("%w: round %d has already been re-paired", ErrRoundNotSequential, round)
		}
		if hasReportedResults(state, round) {
			return false, fmt.Errorf("%w: round %d already has results and cannot be re-paired", ErrRoundNotSequential, round)
		}
		repair = true
	default:
		return false, fmt.Errorf("%w: cannot pair round %d, next round to pair is %d", ErrRoundNotSequential, round, paired+1)
	}

	for k := 1; k < round; k++ {
		// Второй отборочный раунд можно жеребить до результатов первого.
		if k == 1 && round == 2 && !state.Config.IsEliminationRound(2) {
			continue
		}
		if ids := state.UnreportedMatchIDs(k); len(ids) > 0 {
			return false, &RoundBlockedError{Err: ErrPreviousRoundIncomplete, Round: round, BlockedBy: k, UnreportedID: ids}
		}
	}
	return repair, nil
}

// advanceCurrentRound продвигает CurrentRound по полностью заполненным раундам и
// возвращает раунды, ставшие заполненными. CurrentRound никогда не уменьшается.
func advanceCurrentRound(state *models.TournamentState) []int {
	var completed []int
	for r := state.CurrentRound + 1; r <= state.PairedRoundCount(); r++ {
		if !state.IsRoundReported(r) {
			break
		}
		state.CurrentRound = r
		completed = append(completed, r)
	}
	return completed
}

func (s *tournamentService) PairRound(ctx context.Context, round int) (*PairRoundResult, error) {
	var result *PairRoundResult
	var completed []int

	err := s.withState(ctx, func(state *models.TournamentState) error {
		repair, err := checkCanPair(state, round)
		if err != nil {
			return err
		}

		if repair {
			for _, m := range state.RoundMatches(round) {
				m.Superseded = true
			}
			brackets.Recompute(state.Matches, state.Participants)
		}

		generator, pairings, err := s.generate(ctx, state, round)
		if err != nil {
			return err
		}

		matches := make([]*models.Match, 0, len(pairings))
		ids := make([]int, 0, len(pairings))
		for _, p := range pairings {
			m := models.NewMatch(state.AllocateMatchID(), round, p.RoleA.ID, p.RoleBID())
			if p.IsBye() {
				m.SetResult(models.OutcomeRoleAWin)
			}
			state.Matches = append(state.Matches, m)
			matches = append(matches, m.Clone())
			ids = append(ids, m.ID)
		}

		record := models.PairedRound{RoundNumber: round, MatchIDs: ids, Repaired: repair}
		if repair {
			state.RoundsPaired[round-1] = record
		} else {
			state.RoundsPaired = append(state.RoundsPaired, record)
		}

		brackets.Recompute(state.Matches, state.Participants)
		completed = advanceCurrentRound(state)

		result = &PairRoundResult{Round: round, Generator: generator, Repaired: repair, Matches: matches}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("round paired",
		slog.Int("round", round),
		slog.String("generator", result.Generator),
		slog.Bool("repaired", result.Repaired),
		slog.Int("matches", len(result.Matches)),
	)
	s.notify(brackets.EventRoundPaired, result)
	for _, r := range completed {
		s.notify(brackets.EventRoundCompleted, map[string]int{"round": r})
	}
	return result, nil
}

func (s *tournamentService) generate(ctx context.Context, state *models.TournamentState, round int) (string, []brackets.Pairing, error) {
	cfg := state.Config
	if !cfg.IsEliminationRound(round) {
		pairings, err := s.swiss.GenerateRound(ctx, brackets.GenerateRoundParams{
			Round:        round,
			Participants: state.Participants,
			UseTieBreak:  cfg.UseTieBreak,
		})
		return s.swiss.GetName(), pairings, err
	}

	params := brackets.GenerateRoundParams{
		Round:        round,
		Participants: state.Participants,
		BracketSize:  cfg.BracketSize(),
	}
	if round == cfg.NumPreliminaryRounds+1 {
		params.Standings = brackets.PreliminaryStandings(state.Matches, state.Participants, cfg.NumPreliminaryRounds)
	} else {
		params.PreviousRound = state.RoundMatches(round - 1)
	}

	pairings, err := s.elimination.GenerateRound(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, brackets.ErrBracketComplete):
			return "", nil, fmt.Errorf("%w: %v", ErrBracketComplete, err)
		case errors.Is(err, brackets.ErrIncompleteRound):
			return "", nil, &RoundBlockedError{
				Err: ErrPreviousRoundIncomplete, Round: round, BlockedBy: round - 1,
				UnreportedID: state.UnreportedMatchIDs(round - 1),
			}
		default:
			return "", nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
	}
	return s.elimination.GetName(), pairings, nil
}
