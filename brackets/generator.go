package brackets

import (
	"context"

	"github.com/Dosada05/swiss-tournament/models"
)

// Pairing - пара участников в раунде. RoleB == nil означает бай.
type Pairing struct {
	RoleA *models.Participant
	RoleB *models.Participant
}

func (p Pairing) IsBye() bool {
	return p.RoleB == nil
}

// RoleBID возвращает id участника стороны B или ByeSentinel для бая.
func (p Pairing) RoleBID() int {
	if p.RoleB == nil {
		return models.ByeSentinel
	}
	return p.RoleB.ID
}

type GenerateRoundParams struct {
	Round        int
	Participants []*models.Participant
	UseTieBreak  bool

	// Только для плей-офф.
	Standings     []*models.Participant // таблица по отборочным раундам
	PreviousRound []*models.Match       // nil для первого раунда плей-офф
	BracketSize   int
}

type RoundGenerator interface {
	GenerateRound(ctx context.Context, params GenerateRoundParams) ([]Pairing, error)

	GetName() string
}
