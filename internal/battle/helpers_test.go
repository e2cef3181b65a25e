package battle_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/park285/pokeleague/internal/battle"
	"github.com/park285/pokeleague/internal/battlestore"
	"github.com/park285/pokeleague/internal/domain"
	"github.com/park285/pokeleague/pkg/battledto"
)

// recorder is an in-memory Broadcaster. Users listed in online receive
// out-of-band events; sessions always accept.
type recorder struct {
	mu       sync.Mutex
	online   map[int64]bool
	sessions map[string][]battledto.Event
	users    map[int64][]battledto.Event
}

func newRecorder(online ...int64) *recorder {
	r := &recorder{
		online:   make(map[int64]bool),
		sessions: make(map[string][]battledto.Event),
		users:    make(map[int64][]battledto.Event),
	}
	for _, u := range online {
		r.online[u] = true
	}
	return r
}

func (r *recorder) ToSession(sessionID string, ev battledto.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = append(r.sessions[sessionID], ev)
	return true
}

func (r *recorder) ToUser(userID int64, ev battledto.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.online[userID] {
		return false
	}
	r.users[userID] = append(r.users[userID], ev)
	return true
}

func (r *recorder) setOnline(userID int64) {
	r.mu.Lock()
	r.online[userID] = true
	r.mu.Unlock()
}

func (r *recorder) sessionEvents(sid, typ string) []battledto.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []battledto.Event
	for _, ev := range r.sessions[sid] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) userEvents(userID int64, typ string) []battledto.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []battledto.Event
	for _, ev := range r.users[userID] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func tackle(power int) domain.Move {
	return domain.Move{Name: "tackle", Power: power, Category: domain.CategoryPhysical}
}

func mon(id int64, name string, hp, speed int, moves ...domain.Move) domain.Pokemon {
	return domain.Pokemon{
		ID: id, PokemonID: int(id), Name: name,
		HP: hp, Attack: 50, Defense: 50, SpecialAttack: 50, SpecialDefense: 50, Speed: speed,
		Order: int(id % 10), Moves: moves,
	}
}

const (
	teamA, teamB = int64(1), int64(2)
	userA, userB = int64(100), int64(200)
	sessA, sessB = "session-a", "session-b"
)

type harness struct {
	t    *testing.T
	ctx  context.Context
	repo *battlestore.Memory
	rec  *recorder
	m    *battle.Manager
}

func newHarness(t *testing.T, rosterA, rosterB []domain.Pokemon) *harness {
	t.Helper()
	ctx := context.Background()
	repo := battlestore.NewMemory()
	require.NoError(t, repo.PutTeam(ctx, &domain.Team{ID: teamA, UserID: userA, LeagueID: 1, Name: "Ash", Pokemons: rosterA}))
	require.NoError(t, repo.PutTeam(ctx, &domain.Team{ID: teamB, UserID: userB, LeagueID: 1, Name: "Gary", Pokemons: rosterB}))
	rec := newRecorder(userA, userB)
	h := &harness{t: t, ctx: ctx, repo: repo, rec: rec}
	h.m = h.newManager()
	return h
}

func (h *harness) newManager() *battle.Manager {
	m, err := battle.NewManager(battle.Config{
		Repo:     h.repo,
		Notifier: h.rec,
		Backoff:  func(int) time.Duration { return 0 },
	})
	require.NoError(h.t, err)
	return m
}

// start creates, accepts and joins a battle with both sessions bound.
func (h *harness) start() int64 {
	h.t.Helper()
	id, err := h.m.CreateBattle(h.ctx, 1, teamA, teamB)
	require.NoError(h.t, err)
	require.NoError(h.t, h.m.AcceptBattle(h.ctx, id))
	require.NoError(h.t, h.m.JoinBattle(h.ctx, id, teamA, userA, sessA))
	require.NoError(h.t, h.m.JoinBattle(h.ctx, id, teamB, userB, sessB))
	return id
}

func (h *harness) view(id int64) battledto.BattleState {
	h.t.Helper()
	v, err := h.m.View(h.ctx, id)
	require.NoError(h.t, err)
	return v
}

func player(v battledto.BattleState, teamID int64) battledto.PlayerState {
	for _, p := range v.Players {
		if p.TeamID == teamID {
			return p
		}
	}
	return battledto.PlayerState{}
}

func logContains(lines []string, sub string) int {
	for i, l := range lines {
		if strings.Contains(l, sub) {
			return i
		}
	}
	return -1
}
