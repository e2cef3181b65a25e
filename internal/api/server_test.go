package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/pokeleague/internal/battle"
	"github.com/park285/pokeleague/internal/battlestore"
	"github.com/park285/pokeleague/internal/domain"
	"github.com/park285/pokeleague/pkg/battledto"
)

func team(id, userID int64) *domain.Team {
	return &domain.Team{
		ID: id, UserID: userID, LeagueID: 1, Name: "team",
		Pokemons: []domain.Pokemon{{
			ID: id * 10, PokemonID: 25, Name: "pikachu", TeamID: id,
			HP: 35, Attack: 55, Defense: 40, SpecialAttack: 50, SpecialDefense: 50, Speed: 90,
			Moves: []domain.Move{{Name: "thunderbolt", Power: 90, Category: domain.CategorySpecial}},
		}},
	}
}

// serve starts h on an in-memory listener and returns a client bound to it.
func serve(t *testing.T, h fasthttp.RequestHandler, opts ...Option) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.ShutdownWithContext(ctx)
	})
	opts = append([]Option{WithDial(func(string) (net.Conn, error) { return ln.Dial() })}, opts...)
	return NewClient("http://battle.test", opts...)
}

func newEngine(t *testing.T) *battle.Manager {
	t.Helper()
	store := battlestore.NewMemory()
	require.NoError(t, store.PutTeam(context.Background(), team(1, 100)))
	require.NoError(t, store.PutTeam(context.Background(), team(2, 200)))
	mgr, err := battle.NewManager(battle.Config{Repo: store})
	require.NoError(t, err)
	return mgr
}

func statusOf(t *testing.T, err error) *StatusError {
	t.Helper()
	var se *StatusError
	require.True(t, errors.As(err, &se), "want StatusError, got %v", err)
	return se
}

func TestBattleLifecycleOverHTTP(t *testing.T) {
	ctx := context.Background()
	c := serve(t, NewServer(newEngine(t), nil).Handler)

	created, err := c.CreateBattle(ctx, battledto.CreateBattleRequest{LeagueID: 1, TrainerAID: 1, TrainerBID: 2, From: "Ash"})
	require.NoError(t, err)
	assert.NotZero(t, created.BattleID)
	assert.False(t, created.Delivered, "nobody is connected")

	res, err := c.Result(ctx, created.BattleID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPending), res.Status)
	assert.Greater(t, res.PowerA, 0.0)
	require.Len(t, res.TrainerB.Pokemons, 1)

	require.NoError(t, c.Accept(ctx, created.BattleID))
	err = c.Accept(ctx, created.BattleID)
	assert.Equal(t, fasthttp.StatusConflict, statusOf(t, err).Status)

	res, err = c.Result(ctx, created.BattleID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusInProgress), res.Status)
	assert.NotEmpty(t, res.Log)
}

func TestSimulateOverHTTP(t *testing.T) {
	ctx := context.Background()
	store := battlestore.NewMemory()
	strong := team(3, 300)
	strong.Name = "Red"
	strong.Pokemons[0].Attack = 120
	for _, tm := range []*domain.Team{team(1, 100), team(2, 200), strong} {
		require.NoError(t, store.PutTeam(ctx, tm))
	}
	mgr, err := battle.NewManager(battle.Config{Repo: store, WinPoints: 3})
	require.NoError(t, err)
	c := serve(t, NewServer(mgr, nil).Handler)

	won, err := c.Simulate(ctx, battledto.SimulateRequest{LeagueID: 1, TrainerAID: 1, TrainerBID: 3})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCompleted), won.Status)
	require.NotNil(t, won.WinnerID)
	assert.Equal(t, int64(3), *won.WinnerID)
	assert.Greater(t, won.PowerB, won.PowerA)
	assert.Contains(t, won.Log[len(won.Log)-1], "Red wins")
	red, _ := store.LoadTeam(ctx, 3)
	assert.Equal(t, 3, red.Points)

	res, err := c.Result(ctx, won.BattleID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCompleted), res.Status)
	assert.Equal(t, 3, res.TrainerB.Points)

	// identical rosters draw: no winner, no points
	draw, err := c.Simulate(ctx, battledto.SimulateRequest{LeagueID: 1, TrainerAID: 1, TrainerBID: 2})
	require.NoError(t, err)
	assert.Nil(t, draw.WinnerID)
	assert.Equal(t, draw.PowerA, draw.PowerB)
	assert.Contains(t, draw.Log, "The battle ended in a draw.")
	for _, id := range []int64{1, 2} {
		tm, _ := store.LoadTeam(ctx, id)
		assert.Equal(t, 0, tm.Points)
	}

	// a simulated battle cannot be accepted afterwards
	err = c.Accept(ctx, draw.BattleID)
	assert.Equal(t, fasthttp.StatusConflict, statusOf(t, err).Status)

	_, err = c.Simulate(ctx, battledto.SimulateRequest{LeagueID: 1, TrainerAID: 1, TrainerBID: 1})
	assert.Equal(t, fasthttp.StatusBadRequest, statusOf(t, err).Status)
	_, err = c.Simulate(ctx, battledto.SimulateRequest{LeagueID: 1, TrainerAID: 1, TrainerBID: 9})
	assert.Equal(t, "team_not_found", statusOf(t, err).Code)
}

func TestErrorMapping(t *testing.T) {
	ctx := context.Background()
	c := serve(t, NewServer(newEngine(t), nil).Handler, WithRetry(1))

	_, err := c.Result(ctx, 999)
	se := statusOf(t, err)
	assert.Equal(t, fasthttp.StatusNotFound, se.Status)
	assert.Equal(t, "not_found", se.Code)

	_, err = c.CreateBattle(ctx, battledto.CreateBattleRequest{LeagueID: 1, TrainerAID: 1, TrainerBID: 1})
	assert.Equal(t, fasthttp.StatusBadRequest, statusOf(t, err).Status)

	_, err = c.CreateBattle(ctx, battledto.CreateBattleRequest{LeagueID: 1, TrainerAID: 1, TrainerBID: 9})
	se = statusOf(t, err)
	assert.Equal(t, fasthttp.StatusNotFound, se.Status)
	assert.Equal(t, "team_not_found", se.Code)

	_, err = c.CreateBattle(ctx, battledto.CreateBattleRequest{LeagueID: 5, TrainerAID: 1, TrainerBID: 2})
	assert.Equal(t, fasthttp.StatusBadRequest, statusOf(t, err).Status)

	err = c.Reject(ctx, 999)
	assert.Equal(t, fasthttp.StatusNotFound, statusOf(t, err).Status)
}

func TestRoutes(t *testing.T) {
	s := NewServer(newEngine(t), nil)
	for _, tc := range []struct {
		method, uri, body string
		status            int
	}{
		{fasthttp.MethodGet, "/healthz", "", fasthttp.StatusOK},
		{fasthttp.MethodGet, "/nope", "", fasthttp.StatusNotFound},
		{fasthttp.MethodGet, "/battles/abc", "", fasthttp.StatusBadRequest},
		{fasthttp.MethodDelete, "/battles/1", "", fasthttp.StatusMethodNotAllowed},
		{fasthttp.MethodPost, "/battles", "{", fasthttp.StatusBadRequest},
		{fasthttp.MethodPost, "/battles/simulate", "{", fasthttp.StatusBadRequest},
		{fasthttp.MethodPost, "/battles/simulate", `{"leagueId":1,"trainerAId":1,"trainerBId":2}`, fasthttp.StatusCreated},
		{fasthttp.MethodGet, "/battles/simulate", "", fasthttp.StatusBadRequest},
		{fasthttp.MethodPost, "/challenge", `{"from":"x"}`, fasthttp.StatusBadRequest},
		{fasthttp.MethodPost, "/challenge", `{"opponentUserId":200,"from":"x","battleId":1}`, fasthttp.StatusOK},
		{fasthttp.MethodGet, "/battles/42/state", "", fasthttp.StatusNotFound},
	} {
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.SetMethod(tc.method)
		ctx.Request.SetRequestURI(tc.uri)
		if tc.body != "" {
			ctx.Request.SetBodyString(tc.body)
		}
		s.Handler(&ctx)
		assert.Equal(t, tc.status, ctx.Response.StatusCode(), "%s %s", tc.method, tc.uri)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(ctx.Response.Body(), &body), "%s %s returns JSON", tc.method, tc.uri)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			ctx.SetBodyString(`{"code":"internal","message":"busy"}`)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString(`{"battleId":3}`)
	}, WithTimeout(time.Second))

	require.NoError(t, c.Accept(context.Background(), 3))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDoesNotRetryCreate(t *testing.T) {
	var calls atomic.Int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
		ctx.SetBodyString("upstream down")
	})
	_, err := c.CreateBattle(context.Background(), battledto.CreateBattleRequest{TrainerAID: 1, TrainerBID: 2})
	se := statusOf(t, err)
	assert.Equal(t, "upstream down", se.Message)
	assert.Equal(t, int32(1), calls.Load())
}
