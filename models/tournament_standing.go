package models

// Standing - строка турнирной таблицы.
type Standing struct {
	Rank          int     `json:"rank"`
	ParticipantID int     `json:"participant_id"`
	DisplayName   string  `json:"display_name"`
	Score         float64 `json:"score"`
	TieBreakScore float64 `json:"tie_break_score"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Byes          int     `json:"byes"`
	RoleACount    int     `json:"role_a_count"`
	RoleBCount    int     `json:"role_b_count"`
}
