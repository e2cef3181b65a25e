package battle

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/pokeleague/internal/domain"
	"github.com/park285/pokeleague/internal/obslog"
	"github.com/park285/pokeleague/pkg/battledto"
)

type RoundPhase string

const (
	RoundAwaitingBoth     RoundPhase = "AWAITING_BOTH"
	RoundAwaitingOpponent RoundPhase = "AWAITING_OPPONENT"
	RoundResolving        RoundPhase = "RESOLVING"
)

// Round tracks which side still owes a move this turn.
type Round struct {
	Phase   RoundPhase
	Waiting int64 // team id, set while AwaitingOpponent
}

// Side is one trainer's live state. The active combatant is an index into
// Team, so a switch never copies or aliases Pokémon.
type Side struct {
	TeamID    int64
	UserID    int64
	Name      string
	SessionID string
	Team      []domain.Pokemon
	Active    int
	MaxHP     int
	Selected  string
}

func (s *Side) active() *domain.Pokemon { return &s.Team[s.Active] }

func (s *Side) indexOf(pokemonID int64) int {
	for i := range s.Team {
		if s.Team[i].ID == pokemonID {
			return i
		}
	}
	return -1
}

// wiped reports whether every roster member has fainted.
func (s *Side) wiped() bool {
	for i := range s.Team {
		if !s.Team[i].Fainted() {
			return false
		}
	}
	return true
}

func (s *Side) snapshot() domain.SideSnapshot {
	act := s.active().Clone()
	hp := make(map[int64]int, len(s.Team))
	for _, p := range s.Team {
		hp[p.ID] = p.CurrentHP
	}
	return domain.SideSnapshot{Active: &act, RosterHP: hp, Selected: s.Selected}
}

// newSide builds a side from a roster: sorted by order, first member active,
// everyone at full HP. A persisted snapshot then overrides HP, the active
// combatant and any pending move. An active combatant that is no longer on
// the roster is dropped and the first member stays active.
func newSide(team *domain.Team, snap domain.SideSnapshot) (*Side, error) {
	if team == nil || len(team.Pokemons) == 0 {
		return nil, ErrEmptyRoster
	}
	roster := make([]domain.Pokemon, len(team.Pokemons))
	for i, p := range team.Pokemons {
		roster[i] = p.Clone()
		roster[i].CurrentHP = p.HP
	}
	sort.SliceStable(roster, func(i, j int) bool { return roster[i].Order < roster[j].Order })

	s := &Side{TeamID: team.ID, UserID: team.UserID, Name: team.Name, Team: roster}
	for id, hp := range snap.RosterHP {
		if i := s.indexOf(id); i >= 0 {
			s.Team[i].CurrentHP = clampHP(hp, s.Team[i].HP)
		}
	}
	if snap.Active != nil {
		act := snap.Active.Clone()
		act.CurrentHP = max(act.CurrentHP, 0)
		if i := s.indexOf(act.ID); i >= 0 {
			s.Team[i] = act
			s.Active = i
		} else {
			obslog.L().Warn("battle_snapshot_active_missing",
				zap.Int64("team_id", team.ID),
				zap.Int64("pokemon_id", act.ID),
			)
		}
	}
	s.MaxHP = s.active().HP
	if snap.Selected != "" {
		if _, ok := s.active().FindMove(snap.Selected); ok && !s.active().Fainted() {
			s.Selected = snap.Selected
		}
	}
	return s, nil
}

func clampHP(hp, maxHP int) int {
	if hp < 0 {
		return 0
	}
	if maxHP > 0 && hp > maxHP {
		return maxHP
	}
	return hp
}

// State is the live, mutable form of one battle. All fields are guarded by mu.
type State struct {
	mu sync.Mutex

	ID        int64
	LeagueID  int64
	Status    domain.BattleStatus
	A, B      *Side
	Turn      int64
	Round     Round
	Log       []string
	TurnOrder []int64
	WinnerID  *int64
	CreatedAt time.Time

	// unsettled marks a terminal battle whose final write has not landed yet.
	unsettled bool
}

func (s *State) sides() [2]*Side { return [2]*Side{s.A, s.B} }

func (s *State) sideByTeam(teamID int64) *Side {
	switch teamID {
	case s.A.TeamID:
		return s.A
	case s.B.TeamID:
		return s.B
	}
	return nil
}

// sideBySession returns the side bound to sessionID and its opponent.
func (s *State) sideBySession(sessionID string) (*Side, *Side) {
	if sessionID == "" {
		return nil, nil
	}
	if s.A.SessionID == sessionID {
		return s.A, s.B
	}
	if s.B.SessionID == sessionID {
		return s.B, s.A
	}
	return nil, nil
}

// syncRound derives the round phase from the pending selections.
func (s *State) syncRound() {
	switch {
	case s.A.Selected == "" && s.B.Selected == "":
		s.Round = Round{Phase: RoundAwaitingBoth}
	case s.A.Selected == "":
		s.Round = Round{Phase: RoundAwaitingOpponent, Waiting: s.A.TeamID}
	case s.B.Selected == "":
		s.Round = Round{Phase: RoundAwaitingOpponent, Waiting: s.B.TeamID}
	default:
		s.Round = Round{Phase: RoundResolving}
	}
}

// order picks who strikes first: higher speed, ties to the turn holder.
func (s *State) order() (first, second *Side) {
	sa, sb := s.A.active().Speed, s.B.active().Speed
	switch {
	case sa > sb:
		return s.A, s.B
	case sb > sa:
		return s.B, s.A
	case s.Turn == s.B.TeamID:
		return s.B, s.A
	default:
		return s.A, s.B
	}
}

func (s *State) appendLog(lines ...string) { s.Log = append(s.Log, lines...) }

func (s *State) record() *domain.BattleRecord {
	rec := &domain.BattleRecord{
		ID:          s.ID,
		LeagueID:    s.LeagueID,
		TrainerAID:  s.A.TeamID,
		TrainerBID:  s.B.TeamID,
		Status:      s.Status,
		CurrentTurn: s.Turn,
		Log:         append([]string(nil), s.Log...),
		TurnOrder:   append([]int64(nil), s.TurnOrder...),
		Snapshot: domain.Snapshot{
			Version: domain.SnapshotVersion,
			A:       s.A.snapshot(),
			B:       s.B.snapshot(),
		},
		CreatedAt: s.CreatedAt,
		UpdatedAt: time.Now(),
	}
	if s.WinnerID != nil {
		w := *s.WinnerID
		rec.WinnerID = &w
	}
	return rec
}

// View returns the client view of the battle.
func (s *State) View() battledto.BattleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *State) view() battledto.BattleState {
	out := battledto.BattleState{
		BattleID:  s.ID,
		Status:    string(s.Status),
		Round:     string(s.Round.Phase),
		Turn:      s.Turn,
		TurnOrder: append([]int64(nil), s.TurnOrder...),
		Log:       append([]string{}, s.Log...),
		Players:   make(map[string]battledto.PlayerState, 2),
	}
	if s.WinnerID != nil {
		w := *s.WinnerID
		out.WinnerID = &w
	}
	for _, side := range s.sides() {
		team := make([]battledto.Pokemon, len(side.Team))
		for i := range side.Team {
			team[i] = PokemonDTO(side.Team[i])
		}
		out.Players[strconv.FormatInt(side.TeamID, 10)] = battledto.PlayerState{
			TeamID:        side.TeamID,
			Name:          side.Name,
			Connected:     side.SessionID != "",
			ActivePokemon: team[side.Active],
			MaxHP:         side.MaxHP,
			Team:          team,
			HasSelected:   side.Selected != "",
		}
	}
	return out
}

// PokemonDTO converts a roster member to its wire form.
func PokemonDTO(p domain.Pokemon) battledto.Pokemon {
	moves := make([]battledto.Move, len(p.Moves))
	for i, mv := range p.Moves {
		moves[i] = battledto.Move{Name: mv.Name, Power: mv.Power, Category: string(mv.Category)}
	}
	return battledto.Pokemon{
		ID:             p.ID,
		PokemonID:      p.PokemonID,
		Name:           p.Name,
		Nickname:       p.Nickname,
		Image:          p.Image,
		HP:             p.HP,
		CurrentHP:      p.CurrentHP,
		Attack:         p.Attack,
		Defense:        p.Defense,
		SpecialAttack:  p.SpecialAttack,
		SpecialDefense: p.SpecialDefense,
		Speed:          p.Speed,
		Order:          p.Order,
		Moves:          moves,
	}
}
