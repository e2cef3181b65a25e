package battlestore

import (
	"context"
	"fmt"
	"io"

	yaml "gopkg.in/yaml.v3"

	"github.com/park285/pokeleague/internal/domain"
)

// TeamWriter is implemented by every store in this package.
type TeamWriter interface {
	PutTeam(ctx context.Context, t *domain.Team) error
}

type seedFile struct {
	Teams []seedTeam `yaml:"teams"`
}

type seedTeam struct {
	ID       int64         `yaml:"id"`
	UserID   int64         `yaml:"userId"`
	LeagueID int64         `yaml:"leagueId"`
	Name     string        `yaml:"name"`
	Points   int           `yaml:"points"`
	Pokemons []seedPokemon `yaml:"pokemons"`
}

type seedPokemon struct {
	ID             int64      `yaml:"id"`
	PokemonID      int        `yaml:"pokemonId"`
	Name           string     `yaml:"name"`
	Nickname       string     `yaml:"nickname"`
	Image          string     `yaml:"image"`
	HP             int        `yaml:"hp"`
	Attack         int        `yaml:"attack"`
	Defense        int        `yaml:"defense"`
	SpecialAttack  int        `yaml:"specialAttack"`
	SpecialDefense int        `yaml:"specialDefense"`
	Speed          int        `yaml:"speed"`
	Order          int        `yaml:"order"`
	Moves          []seedMove `yaml:"moves"`
}

type seedMove struct {
	Name     string `yaml:"name"`
	Power    int    `yaml:"power"`
	Category string `yaml:"category"`
}

// ParseSeed reads a YAML roster file. Moves without a category are physical
// when they have power and status otherwise.
func ParseSeed(r io.Reader) ([]*domain.Team, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	teams := make([]*domain.Team, 0, len(f.Teams))
	for i, st := range f.Teams {
		if st.ID <= 0 {
			return nil, fmt.Errorf("seed team #%d: id is required", i+1)
		}
		t := &domain.Team{ID: st.ID, UserID: st.UserID, LeagueID: st.LeagueID, Name: st.Name, Points: st.Points}
		for _, sp := range st.Pokemons {
			if len(sp.Moves) > 4 {
				return nil, fmt.Errorf("seed team %d: %s knows more than 4 moves", st.ID, sp.Name)
			}
			p := domain.Pokemon{
				ID: sp.ID, PokemonID: sp.PokemonID, Name: sp.Name, Nickname: sp.Nickname, Image: sp.Image,
				HP: sp.HP, Attack: sp.Attack, Defense: sp.Defense,
				SpecialAttack: sp.SpecialAttack, SpecialDefense: sp.SpecialDefense, Speed: sp.Speed,
				Order: sp.Order, TeamID: st.ID,
			}
			for _, sm := range sp.Moves {
				p.Moves = append(p.Moves, domain.Move{Name: sm.Name, Power: sm.Power, Category: moveCategory(sm)})
			}
			t.Pokemons = append(t.Pokemons, p)
		}
		teams = append(teams, t)
	}
	return teams, nil
}

func moveCategory(m seedMove) domain.MoveCategory {
	switch domain.MoveCategory(m.Category) {
	case domain.CategoryPhysical, domain.CategorySpecial, domain.CategoryStatus:
		return domain.MoveCategory(m.Category)
	}
	if m.Power > 0 {
		return domain.CategoryPhysical
	}
	return domain.CategoryStatus
}

// Seed writes every team to w.
func Seed(ctx context.Context, w TeamWriter, teams []*domain.Team) error {
	for _, t := range teams {
		if err := w.PutTeam(ctx, t); err != nil {
			return fmt.Errorf("seed team %d: %w", t.ID, err)
		}
	}
	return nil
}
