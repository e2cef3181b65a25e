package battlestore

import (
	"github.com/park285/pokeleague/internal/domain"
)

func sampleTeam(id, userID int64) *domain.Team {
	return &domain.Team{
		ID:       id,
		UserID:   userID,
		LeagueID: 1,
		Name:     "team",
		Points:   2,
		Pokemons: []domain.Pokemon{
			{ID: id*10 + 1, PokemonID: 25, Name: "pikachu", HP: 35, Attack: 55, Defense: 40, SpecialAttack: 50, SpecialDefense: 50, Speed: 90, Order: 1, TeamID: id,
				Moves: []domain.Move{{Name: "thunderbolt", Power: 90, Category: domain.CategorySpecial}}},
			{ID: id*10 + 2, PokemonID: 1, Name: "bulbasaur", HP: 45, Attack: 49, Defense: 49, SpecialAttack: 65, SpecialDefense: 65, Speed: 45, Order: 0, TeamID: id,
				Moves: []domain.Move{{Name: "tackle", Power: 40, Category: domain.CategoryPhysical}}},
		},
	}
}

func sampleRecord() *domain.BattleRecord {
	return &domain.BattleRecord{
		LeagueID:   1,
		TrainerAID: 1,
		TrainerBID: 2,
		PowerA:     10.5,
		PowerB:     12,
		Status:     domain.StatusPending,
		Log:        []string{},
		TurnOrder:  []int64{},
		Snapshot:   domain.Snapshot{Version: domain.SnapshotVersion},
	}
}

func progressed(rec *domain.BattleRecord) *domain.BattleRecord {
	c := rec.Clone()
	c.Status = domain.StatusInProgress
	c.CurrentTurn = 2
	c.Log = []string{"started", "--- end of turn ---"}
	c.TurnOrder = []int64{2, 1}
	c.LeagueID = 999 // identity fields must not be overwritten by a save
	act := domain.Pokemon{ID: 11, Name: "pikachu", HP: 35, CurrentHP: 7, Speed: 90}
	c.Snapshot = domain.Snapshot{
		Version: domain.SnapshotVersion,
		A:       domain.SideSnapshot{Active: &act, RosterHP: map[int64]int{11: 7, 12: 45}, Selected: "thunderbolt"},
	}
	return c
}

func finished(rec *domain.BattleRecord, winner int64) *domain.BattleRecord {
	c := rec.Clone()
	c.Status = domain.StatusCompleted
	c.WinnerID = &winner
	c.Log = append(c.Log, "done")
	return c
}
