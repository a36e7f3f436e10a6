package brackets

import "github.com/Dosada05/swiss-tournament/models"

const recencyWeight = 2.0

// SidePreference возвращает предпочтение стороны: положительное значение - участнику
// нужнее сторона A, отрицательное - сторона B.
func SidePreference(p *models.Participant) float64 {
	pref := float64(p.RoleBCount - p.RoleACount)
	switch p.LastRole {
	case models.RoleA:
		pref -= recencyWeight
	case models.RoleB:
		pref += recencyWeight
	}
	return pref
}

// DetermineRoles распределяет стороны между t1 и t2. При повторной встрече
// (swappableRepeat) участники получают стороны, которые ещё не играли друг против друга.
// Иначе сторону A получает тот, кому она нужнее; при равенстве решает жребий.
func DetermineRoles(t1, t2 *models.Participant, swappableRepeat bool, rng RandSource) (roleA, roleB *models.Participant) {
	if swappableRepeat {
		canA := !t1.PlayedRoleAgainst(t2.ID, models.RoleA)
		canB := !t1.PlayedRoleAgainst(t2.ID, models.RoleB)
		if canA && !canB {
			return t1, t2
		}
		if canB && !canA {
			return t2, t1
		}
	}

	p1, p2 := SidePreference(t1), SidePreference(t2)
	switch {
	case p1 > p2:
		return t1, t2
	case p2 > p1:
		return t2, t1
	}
	if coinFlip(rng) {
		return t1, t2
	}
	return t2, t1
}
