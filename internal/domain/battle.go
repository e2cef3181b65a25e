package domain

import "time"

type BattleStatus string

const (
	StatusPending    BattleStatus = "PENDING"
	StatusInProgress BattleStatus = "IN_PROGRESS"
	StatusCompleted  BattleStatus = "COMPLETED"
	StatusCanceled   BattleStatus = "CANCELED"
)

// Terminal reports whether no further status transition is possible.
func (s BattleStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

type MoveCategory string

const (
	CategoryPhysical MoveCategory = "physical"
	CategorySpecial  MoveCategory = "special"
	CategoryStatus   MoveCategory = "status"
)

type Move struct {
	Name     string       `json:"name"`
	Power    int          `json:"power"`
	Category MoveCategory `json:"category"`
}

// Pokemon is one roster member. CurrentHP only has meaning inside a battle.
type Pokemon struct {
	ID             int64  `json:"id"`
	PokemonID      int    `json:"pokemonId"`
	Name           string `json:"name"`
	Nickname       string `json:"nickname,omitempty"`
	Image          string `json:"image,omitempty"`
	HP             int    `json:"hp"`
	Attack         int    `json:"attack"`
	Defense        int    `json:"defense"`
	SpecialAttack  int    `json:"specialAttack"`
	SpecialDefense int    `json:"specialDefense"`
	Speed          int    `json:"speed"`
	Order          int    `json:"order"`
	TeamID         int64  `json:"teamId"`
	Moves          []Move `json:"moves"`
	CurrentHP      int    `json:"currentHp"`
}

func (p *Pokemon) Fainted() bool { return p.CurrentHP <= 0 }

// FindMove looks a move up by exact name.
func (p *Pokemon) FindMove(name string) (Move, bool) {
	for _, mv := range p.Moves {
		if mv.Name == name {
			return mv, true
		}
	}
	return Move{}, false
}

// Clone returns a copy that shares no slices with p.
func (p Pokemon) Clone() Pokemon {
	if p.Moves != nil {
		p.Moves = append([]Move(nil), p.Moves...)
	}
	return p
}

type Team struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"userId"`
	LeagueID int64     `json:"leagueId"`
	Name     string    `json:"name"`
	Points   int       `json:"points"`
	Pokemons []Pokemon `json:"pokemons"`
}

// Clone deep-copies the team roster.
func (t *Team) Clone() *Team {
	if t == nil {
		return nil
	}
	c := *t
	c.Pokemons = make([]Pokemon, len(t.Pokemons))
	for i, p := range t.Pokemons {
		c.Pokemons[i] = p.Clone()
	}
	return &c
}

// TeamPower is the roster strength summary stored on a new battle.
func TeamPower(pokemons []Pokemon) float64 {
	var total float64
	for _, p := range pokemons {
		total += float64(p.Attack) + float64(p.SpecialAttack) +
			float64(p.Defense+p.SpecialDefense)/2 + float64(p.Speed)/2
	}
	return total
}

// BattleRecord is the durable form of a battle.
type BattleRecord struct {
	ID          int64        `json:"id"`
	LeagueID    int64        `json:"leagueId"`
	TrainerAID  int64        `json:"trainerAId"`
	TrainerBID  int64        `json:"trainerBId"`
	WinnerID    *int64       `json:"winnerId,omitempty"`
	PowerA      float64      `json:"powerA"`
	PowerB      float64      `json:"powerB"`
	Status      BattleStatus `json:"status"`
	CurrentTurn int64        `json:"currentTurn"`
	Log         []string     `json:"log"`
	TurnOrder   []int64      `json:"turnOrder"`
	Snapshot    Snapshot     `json:"snapshot"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	// PointsAwarded is set by the store once the winner's league points
	// have been credited for this battle.
	PointsAwarded bool `json:"pointsAwarded,omitempty"`
}

// Clone deep-copies slices and snapshot state.
func (r *BattleRecord) Clone() *BattleRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.WinnerID != nil {
		w := *r.WinnerID
		c.WinnerID = &w
	}
	c.Log = append([]string(nil), r.Log...)
	c.TurnOrder = append([]int64(nil), r.TurnOrder...)
	c.Snapshot = r.Snapshot.Clone()
	return &c
}
