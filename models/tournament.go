package models

import (
	"sort"
	"time"
)

// TournamentConfig - неизменяемые параметры турнира.
type TournamentConfig struct {
	NumParticipants      int  `json:"num_participants"`
	NumPreliminaryRounds int  `json:"num_preliminary_rounds"`
	NumEliminationRounds int  `json:"num_elimination_rounds"`
	UseTieBreak          bool `json:"use_tie_break"`
}

// TotalRounds - отборочные раунды плюс раунды плей-офф.
func (c TournamentConfig) TotalRounds() int {
	return c.NumPreliminaryRounds + c.NumEliminationRounds
}

// BracketSize - число участников плей-офф (0, если плей-офф нет).
func (c TournamentConfig) BracketSize() int {
	if c.NumEliminationRounds <= 0 {
		return 0
	}
	return 1 << c.NumEliminationRounds
}

// IsEliminationRound сообщает, относится ли раунд к плей-офф.
func (c TournamentConfig) IsEliminationRound(round int) bool {
	return round > c.NumPreliminaryRounds && round <= c.TotalRounds()
}

// PairedRound - запись о распаренном раунде.
type PairedRound struct {
	RoundNumber int   `json:"round_number"`
	MatchIDs    []int `json:"match_ids"`
	Repaired    bool  `json:"repaired,omitempty"`
}

// TournamentState - полное сохраняемое состояние турнира.
type TournamentState struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Config       TournamentConfig `json:"config"`
	CurrentRound int              `json:"current_round"`
	RoundsPaired []PairedRound    `json:"rounds_paired"`
	Participants []*Participant   `json:"participants"`
	Matches      []*Match         `json:"matches"`
	NextMatchID  int              `json:"next_match_id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ParticipantByID ищет участника по идентификатору.
func (s *TournamentState) ParticipantByID(id int) *Participant {
	for _, p := range s.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// MatchByID ищет матч по идентификатору.
func (s *TournamentState) MatchByID(id int) *Match {
	for _, m := range s.Matches {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// ActiveMatches возвращает неотменённые матчи, отсортированные по (раунд, id).
func (s *TournamentState) ActiveMatches() []*Match {
	out := make([]*Match, 0, len(s.Matches))
	for _, m := range s.Matches {
		if !m.Superseded {
			out = append(out, m)
		}
	}
	SortMatches(out)
	return out
}

// RoundMatches возвращает неотменённые матчи раунда по возрастанию id.
func (s *TournamentState) RoundMatches(round int) []*Match {
	var out []*Match
	for _, m := range s.ActiveMatches() {
		if m.RoundNumber == round {
			out = append(out, m)
		}
	}
	return out
}

// PairedRoundCount - количество распаренных раундов.
func (s *TournamentState) PairedRoundCount() int {
	return len(s.RoundsPaired)
}

// UnreportedMatchIDs возвращает id матчей раунда без результата.
func (s *TournamentState) UnreportedMatchIDs(round int) []int {
	var ids []int
	for _, m := range s.RoundMatches(round) {
		if !m.IsReported() {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// IsRoundReported - раунд распарен и у каждого его матча есть результат.
func (s *TournamentState) IsRoundReported(round int) bool {
	if round < 1 || round > len(s.RoundsPaired) {
		return false
	}
	return len(s.UnreportedMatchIDs(round)) == 0
}

// AllocateMatchID выдаёт следующий глобальный id матча.
func (s *TournamentState) AllocateMatchID() int {
	if s.NextMatchID < 1 {
		s.NextMatchID = 1
	}
	id := s.NextMatchID
	s.NextMatchID++
	return id
}

// Clone возвращает глубокую копию состояния.
func (s *TournamentState) Clone() *TournamentState {
	c := *s
	c.RoundsPaired = make([]PairedRound, len(s.RoundsPaired))
	for i, r := range s.RoundsPaired {
		r.MatchIDs = append([]int(nil), r.MatchIDs...)
		c.RoundsPaired[i] = r
	}
	c.Participants = CloneParticipants(s.Participants)
	c.Matches = make([]*Match, len(s.Matches))
	for i, m := range s.Matches {
		c.Matches[i] = m.Clone()
	}
	return &c
}

// SortMatches сортирует матчи по (раунд, id).
func SortMatches(ms []*Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].RoundNumber != ms[j].RoundNumber {
			return ms[i].RoundNumber < ms[j].RoundNumber
		}
		return ms[i].ID < ms[j].ID
	})
}
