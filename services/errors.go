package services

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки, используемые сервисом турнира и маппингом HTTP.
var (
	// Ошибки валидации результата
	ErrMatchNotFound           = errors.New("match not found")
	ErrTeamMismatch            = errors.New("team ID mismatch")
	ErrOutcomeConflict         = errors.New("outcome conflicts with the recorded result")
	ErrRoundMismatch           = errors.New("match belongs to a different round")
	ErrRoundNotSequential      = errors.New("round is not the next round to pair")
	ErrPreviousRoundIncomplete = errors.New("previous round is not fully reported")
	ErrDuplicateMatchID        = errors.New("duplicate match ID")
	ErrByeOverride             = errors.New("bye results cannot be changed")

	// Ошибки турнира
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentExists   = errors.New("tournament already exists (use force to overwrite)")
	ErrValidationFailed   = errors.New("validation failed")
	ErrBracketComplete    = errors.New("elimination bracket is complete")

	// Ошибки аутентификации
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RoundBlockedError - переход заблокирован незаполненными матчами более раннего раунда.
type RoundBlockedError struct {
	Err          error // ErrPreviousRoundIncomplete
	Round        int   // раунд, который пытались распарить или в который пытались внести результат
	BlockedBy    int   // незаполненный раунд
	UnreportedID []int
}

func (e *RoundBlockedError) Error() string {
	ids := make([]string, len(e.UnreportedID))
	for i, id := range e.UnreportedID {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("Round %d is not fully reported (cannot proceed with round %d); unreported matches: %s",
		e.BlockedBy, e.Round, strings.Join(ids, ", "))
}

func (e *RoundBlockedError) Unwrap() error {
	return e.Err
}
