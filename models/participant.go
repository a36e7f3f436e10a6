package models

// Role обозначает сторону участника в матче (A = "affirmative", B = "negative").
type Role string

const (
	RoleA    Role = "A"
	RoleB    Role = "B"
	RoleNone Role = ""
)

// Opposite возвращает противоположную сторону. Для RoleNone возвращает RoleNone.
func (r Role) Opposite() Role {
	switch r {
	case RoleA:
		return RoleB
	case RoleB:
		return RoleA
	default:
		return RoleNone
	}
}

// MatchResult - результат матча с точки зрения участника.
type MatchResult string

const (
	ResultWin  MatchResult = "W"
	ResultLoss MatchResult = "L"
)

// Participant - участник турнира. Поля после SeedRank производные:
// их пишет только пересчёт статистики (brackets.Recompute).
type Participant struct {
	ID          int    `json:"id"`
	DisplayName string `json:"display_name"`
	SeedRank    int    `json:"seed_rank"` // 0 = неизвестен

	Score           float64        `json:"score"`
	TieBreakScore   float64        `json:"tie_break_score"`
	WinCount        int            `json:"win_count"`
	RoleACount      int            `json:"role_a_count"`
	RoleBCount      int            `json:"role_b_count"`
	LastRole        Role           `json:"last_role"`
	RoleHistory     map[int][]Role `json:"role_history"`
	ResultHistory   []MatchResult  `json:"result_history"`
	OpponentHistory []int          `json:"opponent_history"`
}

// NewParticipant создаёт участника с пустой статистикой.
func NewParticipant(id int, displayName string, seedRank int) *Participant {
	p := &Participant{ID: id, DisplayName: displayName, SeedRank: seedRank}
	p.ResetDerived()
	return p
}

// ResetDerived обнуляет все производные поля.
func (p *Participant) ResetDerived() {
	p.Score = 0
	p.TieBreakScore = 0
	p.WinCount = 0
	p.RoleACount = 0
	p.RoleBCount = 0
	p.LastRole = RoleNone
	p.RoleHistory = make(map[int][]Role)
	p.ResultHistory = []MatchResult{}
	p.OpponentHistory = []int{}
}

// HasFaced сообщает, встречался ли участник с opponentID (байи не считаются).
func (p *Participant) HasFaced(opponentID int) bool {
	return p.TimesFaced(opponentID) > 0
}

// TimesFaced возвращает количество встреч с opponentID.
func (p *Participant) TimesFaced(opponentID int) int {
	if opponentID == ByeSentinel {
		return 0
	}
	n := 0
	for _, id := range p.OpponentHistory {
		if id == opponentID {
			n++
		}
	}
	return n
}

// RolesAgainst возвращает стороны, которые участник занимал против opponentID, по порядку.
func (p *Participant) RolesAgainst(opponentID int) []Role {
	return p.RoleHistory[opponentID]
}

// PlayedRoleAgainst сообщает, играл ли участник сторону role против opponentID.
func (p *Participant) PlayedRoleAgainst(opponentID int, role Role) bool {
	for _, r := range p.RoleHistory[opponentID] {
		if r == role {
			return true
		}
	}
	return false
}

// ByeCount возвращает количество полученных баев.
func (p *Participant) ByeCount() int {
	n := 0
	for _, id := range p.OpponentHistory {
		if id == ByeSentinel {
			n++
		}
	}
	return n
}

// Clone возвращает глубокую копию участника.
func (p *Participant) Clone() *Participant {
	c := *p
	c.RoleHistory = make(map[int][]Role, len(p.RoleHistory))
	for k, v := range p.RoleHistory {
		c.RoleHistory[k] = append([]Role(nil), v...)
	}
	c.ResultHistory = append([]MatchResult{}, p.ResultHistory...)
	c.OpponentHistory = append([]int{}, p.OpponentHistory...)
	return &c
}

// CloneParticipants копирует срез участников.
func CloneParticipants(ps []*Participant) []*Participant {
	out := make([]*Participant, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}
