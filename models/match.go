package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ByeSentinel - идентификатор "соперника" в матче-бае.
const ByeSentinel = -1

// NoJudge - судья матчу ещё не назначен.
const NoJudge = -1

// Outcome - исход матча. Ничьих нет.
type Outcome string

const (
	OutcomeRoleAWin Outcome = "A"
	OutcomeRoleBWin Outcome = "B"
)

// ParseOutcome разбирает исход из текстового токена.
// Принимает A/AFF и B/N/NEG без учёта регистра.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "AFF":
		return OutcomeRoleAWin, nil
	case "B", "N", "NEG":
		return OutcomeRoleBWin, nil
	default:
		return "", fmt.Errorf("invalid outcome %q (expected A or N)", s)
	}
}

// Token возвращает представление исхода для файлов результатов.
func (o Outcome) Token() string {
	if o == OutcomeRoleBWin {
		return "N"
	}
	return "A"
}

func (o Outcome) Valid() bool {
	return o == OutcomeRoleAWin || o == OutcomeRoleBWin
}

// Match - запись в журнале матчей. После создания меняется только Result
// (и флаг Superseded при перепаривании раунда).
type Match struct {
	ID                 int      `json:"match_id"`
	RoundNumber        int      `json:"round_number"`
	RoleAParticipantID int      `json:"role_a_id"`
	RoleBParticipantID int      `json:"role_b_id"`
	Result             *Outcome `json:"result"`
	Superseded         bool     `json:"superseded,omitempty"`

	// Протокол судьи. На счёт и пары не влияет.
	JudgeID       int           `json:"judge_id"`
	SpeakerPoints SpeakerPoints `json:"speaker_points,omitempty"`
}

// NewMatch создаёт матч без результата и без судьи.
func NewMatch(id, round, roleA, roleB int) *Match {
	return &Match{ID: id, RoundNumber: round, RoleAParticipantID: roleA, RoleBParticipantID: roleB, JudgeID: NoJudge}
}

// UnmarshalJSON подставляет NoJudge, если judge_id в записи нет.
func (m *Match) UnmarshalJSON(data []byte) error {
	type plain Match
	p := plain{JudgeID: NoJudge}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Match(p)
	return nil
}

// SpeakerPoints - баллы спикеров по имени спикера.
type SpeakerPoints map[string]float64

// Validate: имена непустые, баллы конечные и неотрицательные.
func (sp SpeakerPoints) Validate() error {
	for name, pts := range sp {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("speaker name must not be empty")
		}
		if math.IsNaN(pts) || math.IsInf(pts, 0) || pts < 0 {
			return fmt.Errorf("invalid speaker points %v for %q", pts, name)
		}
	}
	return nil
}

func (sp SpeakerPoints) Equal(other SpeakerPoints) bool {
	if len(sp) != len(other) {
		return false
	}
	for name, pts := range sp {
		if v, ok := other[name]; !ok || v != pts {
			return false
		}
	}
	return true
}

func (sp SpeakerPoints) Clone() SpeakerPoints {
	if sp == nil {
		return nil
	}
	c := make(SpeakerPoints, len(sp))
	for name, pts := range sp {
		c[name] = pts
	}
	return c
}

func (m *Match) IsBye() bool {
	return m.RoleBParticipantID == ByeSentinel
}

func (m *Match) IsReported() bool {
	return m.Result != nil
}

// Involves сообщает, участвует ли participantID в матче.
func (m *Match) Involves(participantID int) bool {
	return m.RoleAParticipantID == participantID || m.RoleBParticipantID == participantID
}

// WinnerID возвращает победителя или false, если результата нет.
func (m *Match) WinnerID() (int, bool) {
	if m.Result == nil {
		return 0, false
	}
	if *m.Result == OutcomeRoleAWin {
		return m.RoleAParticipantID, true
	}
	return m.RoleBParticipantID, true
}

// SetResult записывает исход (копируя значение).
func (m *Match) SetResult(o Outcome) {
	v := o
	m.Result = &v
}

func (m *Match) Clone() *Match {
	c := *m
	if m.Result != nil {
		v := *m.Result
		c.Result = &v
	}
	c.SpeakerPoints = m.SpeakerPoints.Clone()
	return &c
}
