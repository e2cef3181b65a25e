package battledto

type Move struct {
	Name     string `json:"name"`
	Power    int    `json:"power"`
	Category string `json:"category"`
}

type Pokemon struct {
	ID             int64  `json:"id"`
	PokemonID      int    `json:"pokemonId"`
	Name           string `json:"name"`
	Nickname       string `json:"nickname,omitempty"`
	Image          string `json:"image,omitempty"`
	HP             int    `json:"hp"`
	CurrentHP      int    `json:"currentHp"`
	Attack         int    `json:"attack"`
	Defense        int    `json:"defense"`
	SpecialAttack  int    `json:"specialAttack"`
	SpecialDefense int    `json:"specialDefense"`
	Speed          int    `json:"speed"`
	Order          int    `json:"order"`
	Moves          []Move `json:"moves,omitempty"`
}

// PlayerState is one side as seen by clients. The pending move name is
// never exposed, only whether one was chosen.
type PlayerState struct {
	TeamID        int64     `json:"teamId"`
	Name          string    `json:"name,omitempty"`
	Connected     bool      `json:"connected"`
	ActivePokemon Pokemon   `json:"activePokemon"`
	MaxHP         int       `json:"maxHp"`
	Team          []Pokemon `json:"team"`
	HasSelected   bool      `json:"hasSelected"`
}

type BattleState struct {
	BattleID  int64                  `json:"battleId"`
	Status    string                 `json:"status"`
	Round     string                 `json:"round"`
	Turn      int64                  `json:"turn"`
	TurnOrder []int64                `json:"turnOrder,omitempty"`
	WinnerID  *int64                 `json:"winnerId,omitempty"`
	Log       []string               `json:"battleLog"`
	Players   map[string]PlayerState `json:"players"`
}
