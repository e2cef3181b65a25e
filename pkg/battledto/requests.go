package battledto

// Client → server actions carried over the realtime channel.
const (
	ActionRegister      = "register"
	ActionJoinBattle    = "joinBattle"
	ActionSelectMove    = "selectMove"
	ActionSwitchPokemon = "switchPokemon"
)

// ClientMessage is a single realtime request. Which fields are read depends on Type.
type ClientMessage struct {
	Type      string `json:"type"`
	UserID    int64  `json:"userId,omitempty"`
	Token     string `json:"token,omitempty"`
	BattleID  int64  `json:"battleId,omitempty"`
	TeamID    int64  `json:"teamId,omitempty"`
	Move      string `json:"move,omitempty"`
	PokemonID int64  `json:"pokemonId,omitempty"`
}

type CreateBattleRequest struct {
	LeagueID   int64  `json:"leagueId"`
	TrainerAID int64  `json:"trainerAId"`
	TrainerBID int64  `json:"trainerBId"`
	From       string `json:"from,omitempty"`
}

type CreateBattleResponse struct {
	BattleID  int64 `json:"battleId"`
	Delivered bool  `json:"challengeDelivered"`
}

type ChallengeRequest struct {
	OpponentUserID int64  `json:"opponentUserId"`
	From           string `json:"from"`
	BattleID       int64  `json:"battleId"`
}

type ChallengeResponse struct {
	Delivered bool `json:"delivered"`
}

type SimulateRequest struct {
	LeagueID   int64 `json:"leagueId"`
	TrainerAID int64 `json:"trainerAId"`
	TrainerBID int64 `json:"trainerBId"`
}

// SimulateResponse reports a battle decided by team power. WinnerID is null on a draw.
type SimulateResponse struct {
	BattleID int64    `json:"battleId"`
	Status   string   `json:"status"`
	WinnerID *int64   `json:"winnerId"`
	PowerA   float64  `json:"powerA"`
	PowerB   float64  `json:"powerB"`
	Log      []string `json:"log"`
}
