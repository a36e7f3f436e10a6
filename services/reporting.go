package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
)

type ReportInput struct {
	MatchID int            `json:"match_id"`
	RoleAID *int           `json:"role_a_id,omitempty"`
	RoleBID *int           `json:"role_b_id,omitempty"`
	Round   *int           `json:"round,omitempty"`
	Outcome models.Outcome `json:"outcome"`
	// Override разрешает заменить уже записанный другой результат.
	Override bool `json:"override"`

	// Протокол судьи, необязателен. Пустые баллы не затирают записанные.
	JudgeID       *int                 `json:"judge_id,omitempty"`
	SpeakerPoints models.SpeakerPoints `json:"speaker_points,omitempty"`
}

func (in ReportInput) hasDetails() bool {
	return in.JudgeID != nil || len(in.SpeakerPoints) > 0
}

func (in ReportInput) validateDetails() error {
	if in.JudgeID != nil && *in.JudgeID < 0 {
		return fmt.Errorf("%w: judge id must not be negative, got %d", ErrValidationFailed, *in.JudgeID)
	}
	if err := in.SpeakerPoints.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}

// applyDetails записывает судью и баллы; true, если что-то изменилось.
func applyDetails(m *models.Match, in ReportInput) bool {
	changed := false
	if in.JudgeID != nil && *in.JudgeID != m.JudgeID {
		m.JudgeID = *in.JudgeID
		changed = true
	}
	if len(in.SpeakerPoints) > 0 && !in.SpeakerPoints.Equal(m.SpeakerPoints) {
		m.SpeakerPoints = in.SpeakerPoints.Clone()
		changed = true
	}
	return changed
}

type ReportOutcome struct {
	Match           *models.Match `json:"match"`
	Changed         bool          `json:"changed"`
	Overridden      bool          `json:"overridden"`
	DetailsUpdated  bool          `json:"details_updated,omitempty"`
	CompletedRounds []int         `json:"completed_rounds,omitempty"`
	CurrentRound    int           `json:"current_round"`
}

// applyResult - единая точка проверки и записи результата для всех способов ввода.
// Вызывается под s.mu; при успехе состояние уже пересчитано.
func applyResult(state *models.TournamentState, in ReportInput) (*ReportOutcome, error) {
	if !in.Outcome.Valid() {
		return nil, fmt.Errorf("%w: invalid outcome %q", ErrValidationFailed, in.Outcome)
	}
	if err := in.validateDetails(); err != nil {
		return nil, err
	}

	m := state.MatchByID(in.MatchID)
	if m == nil || m.Superseded {
		return nil, fmt.Errorf("%w: match %d does not exist", ErrMatchNotFound, in.MatchID)
	}

	if (in.RoleAID != nil && *in.RoleAID != m.RoleAParticipantID) ||
		(in.RoleBID != nil && *in.RoleBID != m.RoleBParticipantID) {
		return nil, fmt.Errorf("%w for match %d: recorded %d vs %d, reported %s vs %s",
			ErrTeamMismatch, m.ID, m.RoleAParticipantID, m.RoleBParticipantID, optionalID(in.RoleAID), optionalID(in.RoleBID))
	}

	if m.IsBye() && in.hasDetails() {
		return nil, fmt.Errorf("%w: match %d is a bye and has no judge", ErrByeOverride, m.ID)
	}

	// Тот же исход: счёт не меняется, судья и баллы дописываются.
	if m.Result != nil && *m.Result == in.Outcome {
		updated := applyDetails(m, in)
		return &ReportOutcome{Match: m.Clone(), DetailsUpdated: updated, CurrentRound: state.CurrentRound}, nil
	}

	if m.IsBye() {
		return nil, fmt.Errorf("%w: match %d is a bye for participant %d", ErrByeOverride, m.ID, m.RoleAParticipantID)
	}

	// Конфликт исхода проверяется раньше раунда: без override такой отчёт отклоняется как конфликт.
	if m.Result != nil && !in.Override {
		return nil, fmt.Errorf("%w: match %d is recorded as %s, reported %s (override required)",
			ErrOutcomeConflict, m.ID, m.Result.Token(), in.Outcome.Token())
	}

	if in.Round != nil && *in.Round != m.RoundNumber {
		return nil, fmt.Errorf("%w: match %d is in round %d, not round %d", ErrRoundMismatch, m.ID, m.RoundNumber, *in.Round)
	}

	for k := 1; k < m.RoundNumber; k++ {
		if ids := state.UnreportedMatchIDs(k); len(ids) > 0 {
			return nil, &RoundBlockedError{Err: ErrPreviousRoundIncomplete, Round: m.RoundNumber, BlockedBy: k, UnreportedID: ids}
		}
	}

	overridden := m.Result != nil
	m.SetResult(in.Outcome)
	updated := applyDetails(m, in)
	brackets.Recompute(state.Matches, state.Participants)
	completed := advanceCurrentRound(state)

	return &ReportOutcome{
		Match:           m.Clone(),
		Changed:         true,
		Overridden:      overridden,
		DetailsUpdated:  updated,
		CompletedRounds: completed,
		CurrentRound:    state.CurrentRound,
	}, nil
}

func optionalID(id *int) string {
	if id == nil {
		return "?"
	}
	return fmt.Sprint(*id)
}

func (s *tournamentService) ReportResult(ctx context.Context, input ReportInput) (*ReportOutcome, error) {
	var outcome *ReportOutcome
	err := s.withState(ctx, func(state *models.TournamentState) error {
		var err error
		outcome, err = applyResult(state, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishOutcome(outcome)
	return outcome, nil
}

func (s *tournamentService) publishOutcome(outcome *ReportOutcome) {
	if !outcome.Changed {
		if outcome.DetailsUpdated {
			s.logger.Info("match details updated",
				slog.Int("match_id", outcome.Match.ID),
				slog.Int("judge_id", outcome.Match.JudgeID),
			)
			s.notify(brackets.EventResultReported, outcome.Match)
		}
		return
	}
	s.logger.Info("result reported",
		slog.Int("match_id", outcome.Match.ID),
		slog.Int("round", outcome.Match.RoundNumber),
		slog.String("outcome", string(*outcome.Match.Result)),
		slog.Bool("overridden", outcome.Overridden),
	)
	s.notify(brackets.EventResultReported, outcome.Match)
	for _, r := range outcome.CompletedRounds {
		s.logger.Info("round fully reported", slog.Int("round", r))
		s.notify(brackets.EventRoundCompleted, map[string]int{"round": r})
	}
}
