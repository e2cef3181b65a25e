package battle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/pokeleague/internal/domain"
	"github.com/park285/pokeleague/internal/obslog"
	"github.com/park285/pokeleague/pkg/battledto"
)

// Simulate settles a battle without live play by comparing team power.
// The battle is recorded COMPLETED; equal power is a draw with no winner
// and no points.
func (m *Manager) Simulate(ctx context.Context, leagueID, trainerA, trainerB int64) (*battledto.SimulateResponse, error) {
	teamA, teamB, err := m.loadPair(ctx, leagueID, trainerA, trainerB)
	if err != nil {
		return nil, err
	}
	rec := newRecord(leagueID, teamA, teamB)
	rec.Status = domain.StatusCompleted
	nameA, nameB := teamName(teamA.Name, teamA.ID), teamName(teamB.Name, teamB.ID)
	rec.Log = append(rec.Log, m.text("battle.simulated", map[string]any{
		"A": nameA, "B": nameB, "PowerA": rec.PowerA, "PowerB": rec.PowerB,
	}))
	var winner *domain.Team
	switch {
	case rec.PowerA > rec.PowerB:
		winner = teamA
	case rec.PowerB > rec.PowerA:
		winner = teamB
	}
	if winner != nil {
		w := winner.ID
		rec.WinnerID = &w
		rec.Log = append(rec.Log, m.text("battle.winner", map[string]any{"Winner": teamName(winner.Name, winner.ID)}))
	} else {
		rec.Log = append(rec.Log, m.text("battle.draw", nil))
	}

	id, err := m.repo.CreateBattle(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create battle: %w", err)
	}
	rec.ID = id
	if winner != nil {
		err := m.retry(ctx, "finish_battle", id, func(c context.Context) error {
			return m.repo.FinishBattle(c, rec, m.winPoints)
		})
		if err != nil {
			return nil, fmt.Errorf("award points: %w", err)
		}
	}

	obslog.L().Info("battle_simulate",
		zap.Int64("battle_id", id),
		zap.Int64("league_id", leagueID),
		zap.Float64("power_a", rec.PowerA),
		zap.Float64("power_b", rec.PowerB),
		zap.Bool("draw", winner == nil),
	)
	return &battledto.SimulateResponse{
		BattleID: id,
		Status:   string(rec.Status),
		WinnerID: rec.WinnerID,
		PowerA:   rec.PowerA,
		PowerB:   rec.PowerB,
		Log:      rec.Log,
	}, nil
}
