package brackets

import "github.com/Dosada05/swiss-tournament/models"

// TieBreakScores считает коэффициент Бухгольца (сумма текущих очков соперников, баи не учитываются)
// без изменения участников.
func TieBreakScores(participants []*models.Participant) map[int]float64 {
	scores := make(map[int]float64, len(participants))
	for _, p := range participants {
		scores[p.ID] = p.Score
	}

	out := make(map[int]float64, len(participants))
	for _, p := range participants {
		sum := 0.0
		for _, opp := range p.OpponentHistory {
			if opp == models.ByeSentinel {
				continue
			}
			sum += scores[opp]
		}
		out[p.ID] = sum
	}
	return out
}

// UpdateTieBreaks записывает коэффициент Бухгольца каждому участнику.
func UpdateTieBreaks(participants []*models.Participant) {
	scores := TieBreakScores(participants)
	for _, p := range participants {
		p.TieBreakScore = scores[p.ID]
	}
}
