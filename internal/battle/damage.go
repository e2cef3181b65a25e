package battle

import "github.com/park285/pokeleague/internal/domain"

// Level is the fixed combat level of every league Pokémon.
const Level = 50

// Damage computes the HP lost by defender when attacker uses mv.
// Status moves and zero-power moves deal nothing; anything else deals at least 1.
func Damage(attacker, defender domain.Pokemon, mv domain.Move) int {
	if mv.Power <= 0 || mv.Category == domain.CategoryStatus {
		return 0
	}
	atk, def := attacker.Attack, defender.Defense
	if mv.Category == domain.CategorySpecial {
		atk, def = attacker.SpecialAttack, defender.SpecialDefense
	}
	atk = max(atk, 1)
	def = max(def, 1)

	// floor(((2L/5+2) * power * atk/def) / 50) + 2, kept in integers
	num := int64(2*Level/5+2) * int64(mv.Power) * int64(atk)
	den := int64(def) * 50
	return max(int(num/den)+2, 1)
}
