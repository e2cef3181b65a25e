package battle_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/pokeleague/internal/battle"
	"github.com/park285/pokeleague/internal/domain"
	"github.com/park285/pokeleague/pkg/battledto"
)

func hyperBeam() domain.Move {
	return domain.Move{Name: "hyper-beam", Power: 200, Category: domain.CategoryPhysical}
}

func TestTurnResolvesFasterFirst(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 100, tackle(40)), mon(12, "raichu", 60, 90, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 50, 50, tackle(40)), mon(22, "vaporeon", 130, 65, tackle(40))},
	)
	id := h.start()

	v := h.view(id)
	require.Equal(t, string(domain.StatusInProgress), v.Status)
	require.Equal(t, teamA, v.Turn)

	require.NoError(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"))
	v = h.view(id)
	assert.Equal(t, teamB, v.Turn)
	assert.Equal(t, string(battle.RoundAwaitingOpponent), v.Round)
	assert.True(t, player(v, teamA).HasSelected)

	require.NoError(t, h.m.SelectMove(h.ctx, id, sessB, "tackle"))
	v = h.view(id)
	assert.Equal(t, 31, player(v, teamA).ActivePokemon.CurrentHP)
	assert.Equal(t, 31, player(v, teamB).ActivePokemon.CurrentHP)
	assert.Equal(t, teamA, v.Turn, "first actor keeps the turn")
	assert.Equal(t, string(battle.RoundAwaitingBoth), v.Round)
	assert.Equal(t, []int64{teamA, teamB}, v.TurnOrder)
	assert.False(t, player(v, teamA).HasSelected)
	assert.False(t, player(v, teamB).HasSelected)

	first := logContains(v.Log, "Pikachu used tackle and dealt 19 damage to Eevee!")
	second := logContains(v.Log, "Eevee used tackle and dealt 19 damage to Pikachu!")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.Contains(t, v.Log[len(v.Log)-1], "end of turn")

	for _, sid := range []string{sessA, sessB} {
		assert.GreaterOrEqual(t, len(h.rec.sessionEvents(sid, battledto.EventUpdateState)), 3, sid)
		assert.Empty(t, h.rec.sessionEvents(sid, battledto.EventBattleError), sid)
	}
}

func TestSpeedTieFavorsTurnHolder(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 70, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 50, 70, tackle(40))},
	)
	id := h.start()
	require.NoError(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"))
	// B holds the flag while submitting, so B strikes first
	require.NoError(t, h.m.SelectMove(h.ctx, id, sessB, "tackle"))
	v := h.view(id)
	assert.Equal(t, []int64{teamB, teamA}, v.TurnOrder)
	assert.Equal(t, teamB, v.Turn)
}

func TestFaintedActiveMustSwitch(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 100, tackle(40)), mon(12, "raichu", 60, 90, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 80, 50, hyperBeam())},
	)
	id := h.start()
	require.NoError(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"))
	require.NoError(t, h.m.SelectMove(h.ctx, id, sessB, "hyper-beam"))

	v := h.view(id)
	require.Equal(t, 0, player(v, teamA).ActivePokemon.CurrentHP)
	require.Equal(t, 61, player(v, teamB).ActivePokemon.CurrentHP)
	require.GreaterOrEqual(t, logContains(v.Log, "Pikachu fainted!"), 0)
	require.Equal(t, string(domain.StatusInProgress), v.Status)
	require.Equal(t, teamA, v.Turn)

	err := h.m.SelectMove(h.ctx, id, sessA, "tackle")
	require.ErrorIs(t, err, battle.ErrMustSwitch)
	errs := h.rec.sessionEvents(sessA, battledto.EventBattleError)
	require.Len(t, errs, 1)
	var payload battledto.BattleError
	require.NoError(t, errs[0].Decode(&payload))
	assert.Equal(t, "must_switch", payload.Code)
	assert.Empty(t, h.rec.sessionEvents(sessB, battledto.EventBattleError))

	require.ErrorIs(t, h.m.SwitchPokemon(h.ctx, id, sessA, 11), battle.ErrFaintedTarget)

	require.NoError(t, h.m.SwitchPokemon(h.ctx, id, sessA, 12))
	v = h.view(id)
	assert.Equal(t, int64(12), player(v, teamA).ActivePokemon.ID)
	assert.Equal(t, 60, player(v, teamA).MaxHP)
	assert.Equal(t, teamA, v.Turn, "forced switch keeps the flag")
	assert.GreaterOrEqual(t, logContains(v.Log, "Pikachu was withdrawn. Go, Raichu!"), 0)
	assert.Equal(t, 0, player(v, teamA).Team[0].CurrentHP, "fainted pokemon stays in its roster slot")

	require.NoError(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"))
	assert.Equal(t, teamB, h.view(id).Turn)
}

func TestTeamWipeEndsBattleOnce(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 30, 50, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 80, 100, hyperBeam())},
	)
	id := h.start()
	require.NoError(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"))
	require.NoError(t, h.m.SelectMove(h.ctx, id, sessB, "hyper-beam"))

	_, live := h.m.Store().Peek(id)
	assert.False(t, live, "finished battle is evicted")

	rec, err := h.repo.LoadBattle(h.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	require.NotNil(t, rec.WinnerID)
	assert.Equal(t, teamB, *rec.WinnerID)
	assert.Equal(t, -1, logContains(rec.Log, "Pikachu used"), "loser never retaliates")
	assert.GreaterOrEqual(t, logContains(rec.Log, "Gary wins the battle!"), 0)

	for _, sid := range []string{sessA, sessB} {
		ended := h.rec.sessionEvents(sid, battledto.EventBattleEnded)
		require.Len(t, ended, 1, sid)
		var payload battledto.BattleEnded
		require.NoError(t, ended[0].Decode(&payload))
		assert.Equal(t, teamB, payload.WinnerID)
		assert.Equal(t, teamA, payload.LoserID)
		assert.NotEmpty(t, payload.Message)
	}

	require.ErrorIs(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"), battle.ErrBattleNotActive)
	require.ErrorIs(t, h.m.SelectMove(h.ctx, id, sessB, "hyper-beam"), battle.ErrBattleNotActive)
	require.ErrorIs(t, h.m.SwitchPokemon(h.ctx, id, sessA, 11), battle.ErrBattleNotActive)

	winner, err := h.repo.LoadTeam(h.ctx, teamB)
	require.NoError(t, err)
	assert.Equal(t, 1, winner.Points)
	loser, _ := h.repo.LoadTeam(h.ctx, teamA)
	assert.Equal(t, 0, loser.Points)
}

func TestChallengeDroppedThenAccepted(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 100, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 50, 50, tackle(40))},
	)
	h.rec.online = map[int64]bool{}

	id, delivered, err := h.m.CreateChallenge(h.ctx, 1, teamA, teamB, "Ash")
	require.NoError(t, err)
	assert.False(t, delivered)
	rec, err := h.repo.LoadBattle(h.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, rec.Status)
	assert.Equal(t, domain.TeamPower([]domain.Pokemon{mon(11, "pikachu", 50, 100)}), rec.PowerA)

	h.rec.setOnline(userA)
	h.rec.setOnline(userB)
	require.True(t, h.m.Challenge(userB, "Ash", id))
	ch := h.rec.userEvents(userB, battledto.EventChallenge)
	require.Len(t, ch, 1)
	var c battledto.Challenge
	require.NoError(t, ch[0].Decode(&c))
	assert.Equal(t, "Ash", c.From)
	assert.Equal(t, id, c.BattleID)

	require.NoError(t, h.m.AcceptBattle(h.ctx, id))
	for _, tc := range []struct {
		user int64
		team int64
	}{{userA, teamA}, {userB, teamB}} {
		acc := h.rec.userEvents(tc.user, battledto.EventBattleAccepted)
		require.Len(t, acc, 1)
		var payload battledto.BattleAccepted
		require.NoError(t, acc[0].Decode(&payload))
		assert.Equal(t, id, payload.BattleID)
		assert.Equal(t, tc.team, payload.MyTeamID)
	}
	require.ErrorIs(t, h.m.AcceptBattle(h.ctx, id), battle.ErrBattleNotPending)
}

func TestRestartRestoresState(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 100, tackle(40)), mon(12, "raichu", 60, 90, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 50, 50, tackle(40))},
	)
	id := h.start()
	require.NoError(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"))
	require.NoError(t, h.m.SelectMove(h.ctx, id, sessB, "tackle"))
	require.NoError(t, h.m.SwitchPokemon(h.ctx, id, sessA, 12))
	before := h.view(id)

	// a fresh process sees the same battle
	m2 := h.newManager()
	after, err := m2.View(h.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.Log, after.Log)
	assert.Equal(t, before.Turn, after.Turn)
	assert.Equal(t, int64(12), player(after, teamA).ActivePokemon.ID)
	assert.Equal(t, 31, player(after, teamA).Team[0].CurrentHP, "benched HP survives the restart")
	assert.Equal(t, 31, player(after, teamB).ActivePokemon.CurrentHP)
	assert.False(t, player(after, teamA).Connected, "session bindings are not durable")
}

func TestPendingMoveSurvivesRestart(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 100, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 50, 50, tackle(40))},
	)
	id := h.start()
	require.NoError(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"))

	m2 := h.newManager()
	require.NoError(t, m2.JoinBattle(h.ctx, id, teamB, userB, sessB))
	require.NoError(t, m2.SelectMove(h.ctx, id, sessB, "tackle"))
	v, err := m2.View(h.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 31, player(v, teamB).ActivePokemon.CurrentHP)
}

func TestSubmissionRejections(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 100, tackle(40)), mon(12, "raichu", 60, 90, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 50, 50, tackle(40))},
	)
	id := h.start()
	logLen := len(h.view(id).Log)

	require.ErrorIs(t, h.m.SelectMove(h.ctx, id, sessB, "tackle"), battle.ErrNotYourTurn)
	require.ErrorIs(t, h.m.SelectMove(h.ctx, id, "stranger", "tackle"), battle.ErrNotInBattle)
	assert.Len(t, h.view(id).Log, logLen, "rejections without log lines leave the log alone")

	require.ErrorIs(t, h.m.SelectMove(h.ctx, id, sessA, "splash"), battle.ErrUnknownMove)
	v := h.view(id)
	assert.GreaterOrEqual(t, logContains(v.Log, "Pikachu tried to use an unknown move."), 0)
	assert.Equal(t, teamA, v.Turn)

	require.ErrorIs(t, h.m.SwitchPokemon(h.ctx, id, sessA, 999), battle.ErrUnknownPokemon)
	assert.GreaterOrEqual(t, logContains(h.view(id).Log, "not on the team"), 0)
	require.ErrorIs(t, h.m.SwitchPokemon(h.ctx, id, sessA, 11), battle.ErrAlreadyActive)
	require.ErrorIs(t, h.m.SwitchPokemon(h.ctx, id, sessA, 21), battle.ErrUnknownPokemon, "opponent's pokemon")

	assert.Len(t, h.rec.sessionEvents(sessB, battledto.EventBattleError), 1)
	assert.Len(t, h.rec.sessionEvents(sessA, battledto.EventBattleError), 4)

	_, err := h.m.View(h.ctx, 999)
	require.ErrorIs(t, err, battle.ErrBattleNotFound)
	require.ErrorIs(t, h.m.SelectMove(h.ctx, 999, sessA, "tackle"), battle.ErrBattleNotFound)
	require.ErrorIs(t, h.m.AcceptBattle(h.ctx, 999), battle.ErrBattleNotFound)
}

func TestVoluntarySwitchPassesTurn(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 100, tackle(40)), mon(12, "raichu", 60, 90, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 50, 50, tackle(40))},
	)
	id := h.start()

	require.NoError(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"))
	require.NoError(t, h.m.SwitchPokemon(h.ctx, id, sessA, 12))
	v := h.view(id)
	assert.Equal(t, teamB, v.Turn)
	assert.False(t, player(v, teamA).HasSelected, "switching drops the pending move")
	assert.Equal(t, 60, player(v, teamA).MaxHP)

	// B moves; A owes a move again so the flag comes back
	require.NoError(t, h.m.SelectMove(h.ctx, id, sessB, "tackle"))
	v = h.view(id)
	assert.Equal(t, teamA, v.Turn)
	assert.Equal(t, string(battle.RoundAwaitingOpponent), v.Round)

	require.NoError(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"))
	v = h.view(id)
	assert.Equal(t, 60-19, player(v, teamA).ActivePokemon.CurrentHP)
	assert.Equal(t, 50-19, player(v, teamB).ActivePokemon.CurrentHP)
}

func TestPendingAndRejectedBattles(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 100, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 50, 50, tackle(40))},
	)
	id, err := h.m.CreateBattle(h.ctx, 1, teamA, teamB)
	require.NoError(t, err)
	require.NoError(t, h.m.JoinBattle(h.ctx, id, teamA, userA, sessA))
	require.ErrorIs(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"), battle.ErrBattleNotActive)

	require.NoError(t, h.m.RejectBattle(h.ctx, id))
	for _, u := range []int64{userA, userB} {
		assert.Len(t, h.rec.userEvents(u, battledto.EventBattleRejected), 1)
	}
	rec, _ := h.repo.LoadBattle(h.ctx, id)
	assert.Equal(t, domain.StatusCanceled, rec.Status)
	require.ErrorIs(t, h.m.AcceptBattle(h.ctx, id), battle.ErrBattleNotPending)
	require.ErrorIs(t, h.m.RejectBattle(h.ctx, id), battle.ErrBattleNotPending)
}

func TestCreateBattleValidation(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 100, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 50, 50, tackle(40))},
	)
	_, err := h.m.CreateBattle(h.ctx, 1, teamA, teamA)
	require.ErrorIs(t, err, battle.ErrSameTrainer)
	_, err = h.m.CreateBattle(h.ctx, 1, teamA, 77)
	require.ErrorIs(t, err, domain.ErrTeamNotFound)
	_, err = h.m.CreateBattle(h.ctx, 5, teamA, teamB)
	require.ErrorIs(t, err, battle.ErrLeagueMismatch)
	_, err = h.m.CreateBattle(h.ctx, 1, 0, teamB)
	require.ErrorIs(t, err, battle.ErrInvalidTrainer)
}

func TestLeaveSessionClearsBinding(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 100, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 50, 50, tackle(40))},
	)
	id := h.start()
	before := len(h.rec.sessionEvents(sessB, battledto.EventUpdateState))
	h.m.LeaveSession(sessA)
	v := h.view(id)
	assert.False(t, player(v, teamA).Connected)
	assert.True(t, player(v, teamB).Connected)
	assert.Len(t, h.rec.sessionEvents(sessB, battledto.EventUpdateState), before+1)
	require.ErrorIs(t, h.m.SelectMove(h.ctx, id, sessA, "tackle"), battle.ErrNotInBattle)
}

func TestBattlesRunConcurrently(t *testing.T) {
	h := newHarness(t,
		[]domain.Pokemon{mon(11, "pikachu", 50, 100, tackle(40))},
		[]domain.Pokemon{mon(21, "eevee", 50, 50, tackle(40))},
	)
	const n = 16
	ids := make([]int64, n)
	for i := range ids {
		id, err := h.m.CreateBattle(h.ctx, 1, teamA, teamB)
		require.NoError(t, err)
		require.NoError(t, h.m.AcceptBattle(h.ctx, id))
		ids[i] = id
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			sa, sb := fmt.Sprintf("a-%d", i), fmt.Sprintf("b-%d", i)
			assert.NoError(t, h.m.JoinBattle(h.ctx, id, teamA, userA, sa))
			assert.NoError(t, h.m.JoinBattle(h.ctx, id, teamB, userB, sb))
			assert.NoError(t, h.m.SelectMove(h.ctx, id, sa, "tackle"))
			assert.NoError(t, h.m.SelectMove(h.ctx, id, sb, "tackle"))
		}(i, id)
	}
	wg.Wait()

	for _, id := range ids {
		v := h.view(id)
		assert.Equal(t, 31, player(v, teamA).ActivePokemon.CurrentHP)
		assert.Equal(t, 31, player(v, teamB).ActivePokemon.CurrentHP)
	}
}
