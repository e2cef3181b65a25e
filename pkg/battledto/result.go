package battledto

import "time"

type TeamResult struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"userId"`
	Name     string    `json:"name,omitempty"`
	Points   int       `json:"points"`
	Pokemons []Pokemon `json:"pokemons"`
}

// BattleResult is the durable view of a battle with both rosters.
type BattleResult struct {
	ID          int64      `json:"id"`
	LeagueID    int64      `json:"leagueId"`
	Status      string     `json:"status"`
	WinnerID    *int64     `json:"winnerId,omitempty"`
	PowerA      float64    `json:"powerA"`
	PowerB      float64    `json:"powerB"`
	CurrentTurn int64      `json:"currentTurn"`
	Log         []string   `json:"log"`
	TrainerA    TeamResult `json:"trainerA"`
	TrainerB    TeamResult `json:"trainerB"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
