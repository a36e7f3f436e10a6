package brackets

import (
	"fmt"
	"sort"

	"github.com/Dosada05/swiss-tournament/models"
)

// Recompute пересчитывает все производные поля участников по журналу матчей.
// Учитываются только матчи с результатом; отменённые (Superseded) пропускаются.
// Повторный вызов на тех же данных даёт тот же результат.
// Ссылка на неизвестного участника - нарушение целостности данных, паника.
func Recompute(matches []*models.Match, participants []*models.Participant) {
	byID := make(map[int]*models.Participant, len(participants))
	for _, p := range participants {
		p.ResetDerived()
		byID[p.ID] = p
	}

	ordered := make([]*models.Match, len(matches))
	copy(ordered, matches)
	models.SortMatches(ordered)

	lookup := func(m *models.Match, id int) *models.Participant {
		p, ok := byID[id]
		if !ok {
			panic(fmt.Sprintf("match %d (round %d) references unknown participant %d", m.ID, m.RoundNumber, id))
		}
		return p
	}

	for _, m := range ordered {
		if m.Superseded || m.Result == nil {
			continue
		}

		a := lookup(m, m.RoleAParticipantID)
		if m.IsBye() {
			a.Score++
			a.WinCount++
			a.ResultHistory = append(a.ResultHistory, models.ResultWin)
			a.OpponentHistory = append(a.OpponentHistory, models.ByeSentinel)
			continue
		}
		b := lookup(m, m.RoleBParticipantID)

		a.RoleACount++
		b.RoleBCount++
		a.LastRole = models.RoleA
		b.LastRole = models.RoleB
		a.RoleHistory[b.ID] = append(a.RoleHistory[b.ID], models.RoleA)
		b.RoleHistory[a.ID] = append(b.RoleHistory[a.ID], models.RoleB)
		a.OpponentHistory = append(a.OpponentHistory, b.ID)
		b.OpponentHistory = append(b.OpponentHistory, a.ID)

		winner, loser := a, b
		if *m.Result == models.OutcomeRoleBWin {
			winner, loser = b, a
		}
		winner.Score++
		winner.WinCount++
		winner.ResultHistory = append(winner.ResultHistory, models.ResultWin)
		loser.ResultHistory = append(loser.ResultHistory, models.ResultLoss)
	}

	UpdateTieBreaks(participants)
}

// PreliminaryStandings возвращает копии участников, пересчитанные только по раундам 1..lastRound.
// Исходные участники не меняются.
func PreliminaryStandings(matches []*models.Match, participants []*models.Participant, lastRound int) []*models.Participant {
	var prelim []*models.Match
	for _, m := range matches {
		if m.RoundNumber <= lastRound {
			prelim = append(prelim, m)
		}
	}
	clones := models.CloneParticipants(participants)
	Recompute(prelim, clones)
	return clones
}

// SortStandings сортирует участников для таблицы: очки, Бухгольц, победы по убыванию, затем id.
func SortStandings(participants []*models.Participant) []*models.Participant {
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
		if a.WinCount != b.WinCount {
			return a.WinCount > b.WinCount
		}
		return a.ID < b.ID
	})
	return out
}

// BuildStandings формирует строки таблицы.
func BuildStandings(participants []*models.Participant) []models.Standing {
	sorted := SortStandings(participants)
	rows := make([]models.Standing, 0, len(sorted))
	for i, p := range sorted {
		byes := p.ByeCount()
		rows = append(rows, models.Standing{
			Rank:          i + 1,
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Score:         p.Score,
			TieBreakScore: p.TieBreakScore,
			Wins:          p.WinCount - byes,
			Losses:        len(p.ResultHistory) - p.WinCount,
			Byes:          byes,
			RoleACount:    p.RoleACount,
			RoleBCount:    p.RoleBCount,
		})
	}
	return rows
}
