package battle

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/pokeleague/internal/domain"
	"github.com/park285/pokeleague/internal/obslog"
	"github.com/park285/pokeleague/pkg/battledto"
)

// SelectMove records the move of the side bound to sessionID. The side must
// hold the turn flag. When the opponent has already chosen, the turn resolves
// immediately; otherwise the flag passes to the opponent.
func (m *Manager) SelectMove(ctx context.Context, battleID int64, sessionID, moveName string) error {
	st, err := m.store.Get(ctx, battleID)
	if err != nil {
		return m.reject(battleID, sessionID, err)
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.Status != domain.StatusInProgress {
		m.resettle(ctx, st)
		return m.reject(battleID, sessionID, ErrBattleNotActive)
	}
	side, opp := st.sideBySession(sessionID)
	if side == nil {
		return m.reject(battleID, sessionID, ErrNotInBattle)
	}
	act := side.active()
	if act.Fainted() {
		return m.reject(battleID, sessionID, ErrMustSwitch)
	}
	if st.Turn != side.TeamID {
		return m.reject(battleID, sessionID, ErrNotYourTurn)
	}
	mv, ok := act.FindMove(moveName)
	if !ok {
		st.appendLog(m.text("battle.unknown_move", map[string]any{"Pokemon": displayName(act)}))
		m.commit(ctx, st)
		return m.reject(battleID, sessionID, ErrUnknownMove)
	}

	side.Selected = mv.Name
	st.appendLog(m.text("battle.move_selected", map[string]any{"Pokemon": displayName(act)}))
	obslog.L().Debug("battle_move",
		zap.Int64("battle_id", battleID),
		zap.Int64("team_id", side.TeamID),
		zap.String("move", mv.Name),
	)

	if opp.Selected == "" {
		st.Turn = opp.TeamID
		st.syncRound()
		m.commit(ctx, st)
		return nil
	}
	if m.resolveTurn(ctx, st) {
		return nil
	}
	m.commit(ctx, st)
	return nil
}

// SwitchPokemon changes the active combatant of the side bound to sessionID.
// Switching is allowed regardless of the turn flag. A voluntary switch hands
// the flag to the opponent; a forced one (active fainted) keeps it.
func (m *Manager) SwitchPokemon(ctx context.Context, battleID int64, sessionID string, pokemonID int64) error {
	st, err := m.store.Get(ctx, battleID)
	if err != nil {
		return m.reject(battleID, sessionID, err)
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.Status != domain.StatusInProgress {
		m.resettle(ctx, st)
		return m.reject(battleID, sessionID, ErrBattleNotActive)
	}
	side, opp := st.sideBySession(sessionID)
	if side == nil {
		return m.reject(battleID, sessionID, ErrNotInBattle)
	}

	idx := side.indexOf(pokemonID)
	if idx < 0 {
		st.appendLog(m.text("battle.unknown_pokemon", map[string]any{"Team": side.display()}))
		return m.rejectSwitch(ctx, st, side, opp, ErrUnknownPokemon)
	}
	target := &side.Team[idx]
	if target.Fainted() {
		st.appendLog(m.text("battle.fainted_target", map[string]any{"Pokemon": displayName(target)}))
		return m.rejectSwitch(ctx, st, side, opp, ErrFaintedTarget)
	}
	if idx == side.Active {
		return m.reject(battleID, sessionID, ErrAlreadyActive)
	}

	prev := side.active()
	forced := prev.Fainted()
	st.appendLog(m.text("battle.switched", map[string]any{"From": displayName(prev), "To": displayName(target)}))
	side.Active = idx
	side.MaxHP = target.HP
	if !forced {
		// the pending move belonged to the withdrawn Pokémon
		side.Selected = ""
		st.Turn = opp.TeamID
	}
	st.syncRound()
	obslog.L().Debug("battle_switch",
		zap.Int64("battle_id", battleID),
		zap.Int64("team_id", side.TeamID),
		zap.Int64("pokemon_id", pokemonID),
		zap.Bool("forced", forced),
	)
	m.commit(ctx, st)
	return nil
}

// rejectSwitch publishes the logged rejection, ending the battle when the
// side has nothing left to send out.
func (m *Manager) rejectSwitch(ctx context.Context, st *State, side, opp *Side, cause error) error {
	if side.active().Fainted() && side.wiped() {
		st.appendLog(m.text("battle.wiped_out", map[string]any{"Team": side.display()}))
		m.finish(ctx, st, opp, side)
	} else {
		m.commit(ctx, st)
	}
	return m.reject(st.ID, side.SessionID, cause)
}

// resolveTurn plays out one turn once both sides have chosen. It reports
// whether the battle ended. Caller holds st.mu.
func (m *Manager) resolveTurn(ctx context.Context, st *State) bool {
	st.Round = Round{Phase: RoundResolving}
	first, second := st.order()
	st.TurnOrder = []int64{first.TeamID, second.TeamID}

	if m.strike(st, first, second) {
		m.finish(ctx, st, first, second)
		return true
	}
	if !second.active().Fainted() && !first.active().Fainted() {
		if m.strike(st, second, first) {
			m.finish(ctx, st, second, first)
			return true
		}
	}

	first.Selected, second.Selected = "", ""
	st.Turn = first.TeamID
	st.syncRound()
	st.appendLog(m.text("battle.end_of_turn", nil))
	return false
}

// strike applies atk's chosen move to def's active Pokémon and reports a team wipe.
func (m *Manager) strike(st *State, atk, def *Side) bool {
	a, d := atk.active(), def.active()
	if a.Fainted() {
		return false
	}
	mv, ok := a.FindMove(atk.Selected)
	if !ok {
		st.appendLog(m.text("battle.unknown_move", map[string]any{"Pokemon": displayName(a)}))
		return false
	}
	dmg := Damage(*a, *d, mv)
	d.CurrentHP = max(d.CurrentHP-dmg, 0)
	if dmg == 0 {
		st.appendLog(m.text("battle.status_used", map[string]any{"Attacker": displayName(a), "Move": mv.Name}))
	} else {
		st.appendLog(m.text("battle.move_used", map[string]any{
			"Attacker": displayName(a),
			"Move":     mv.Name,
			"Damage":   dmg,
			"Defender": displayName(d),
		}))
	}
	if !d.Fainted() {
		return false
	}
	st.appendLog(m.text("battle.fainted", map[string]any{"Pokemon": displayName(d)}))
	return def.wiped()
}

// finish completes the battle exactly once: winner, final write with points,
// battleEnded to both sides. The state leaves the cache only once the final
// write has landed. Caller holds st.mu.
func (m *Manager) finish(ctx context.Context, st *State, winner, loser *Side) {
	if st.Status == domain.StatusCompleted {
		return
	}
	st.Status = domain.StatusCompleted
	w := winner.TeamID
	st.WinnerID = &w
	st.A.Selected, st.B.Selected = "", ""
	st.syncRound()
	msg := m.text("battle.winner", map[string]any{"Winner": winner.display()})
	st.appendLog(msg)

	settled := m.settle(ctx, st)
	m.broadcast(st)

	ended := battledto.NewEvent(battledto.EventBattleEnded, battledto.BattleEnded{
		BattleID: st.ID,
		WinnerID: winner.TeamID,
		LoserID:  loser.TeamID,
		Message:  msg,
	})
	for _, side := range st.sides() {
		if side.SessionID != "" {
			m.notify.ToSession(side.SessionID, ended)
		}
	}
	obslog.L().Info("battle_end",
		zap.Int64("battle_id", st.ID),
		zap.Int64("winner_id", winner.TeamID),
		zap.Int64("loser_id", loser.TeamID),
		zap.Int("log_lines", len(st.Log)),
		zap.Bool("settled", settled),
	)
}
