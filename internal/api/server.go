package api

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/pokeleague/internal/battle"
	"github.com/park285/pokeleague/internal/domain"
	"github.com/park285/pokeleague/internal/msgcat"
	"github.com/park285/pokeleague/internal/obslog"
	"github.com/park285/pokeleague/pkg/battledto"
)

// Engine is what the league app may ask of the battle service over HTTP.
type Engine interface {
	CreateChallenge(ctx context.Context, leagueID, trainerA, trainerB int64, from string) (int64, bool, error)
	AcceptBattle(ctx context.Context, id int64) error
	RejectBattle(ctx context.Context, id int64) error
	Result(ctx context.Context, id int64) (*battledto.BattleResult, error)
	View(ctx context.Context, id int64) (battledto.BattleState, error)
	Challenge(userID int64, from string, battleID int64) bool
	Simulate(ctx context.Context, leagueID, trainerA, trainerB int64) (*battledto.SimulateResponse, error)
}

type Server struct {
	engine  Engine
	cat     *msgcat.Catalog
	timeout time.Duration
}

func NewServer(engine Engine, cat *msgcat.Catalog) *Server {
	if cat == nil {
		cat = msgcat.MustDefault()
	}
	return &Server{engine: engine, cat: cat, timeout: 10 * time.Second}
}

// Handler routes:
//
//	POST /battles               create a PENDING battle and challenge the opponent
//	POST /battles/simulate      decide a battle by team power
//	GET  /battles/{id}          durable record with both rosters
//	GET  /battles/{id}/state    live state as clients see it
//	POST /battles/{id}/accept
//	POST /battles/{id}/reject
//	POST /challenge             re-send a challenge to a user
//	GET  /healthz
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	path := strings.Trim(string(ctx.Path()), "/")
	parts := strings.Split(path, "/")
	method := string(ctx.Method())

	switch {
	case path == "healthz" && method == fasthttp.MethodGet:
		writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	case path == "battles" && method == fasthttp.MethodPost:
		s.createBattle(ctx)
	case path == "battles/simulate" && method == fasthttp.MethodPost:
		s.simulate(ctx)
	case path == "challenge" && method == fasthttp.MethodPost:
		s.challenge(ctx)
	case len(parts) >= 2 && len(parts) <= 3 && parts[0] == "battles":
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id <= 0 {
			s.fail(ctx, fasthttp.StatusBadRequest, "bad_request", "invalid battle id")
			return
		}
		action := ""
		if len(parts) == 3 {
			action = parts[2]
		}
		s.battleRoute(ctx, method, action, id)
	default:
		s.fail(ctx, fasthttp.StatusNotFound, "route_not_found", "no such route")
	}
}

func (s *Server) battleRoute(ctx *fasthttp.RequestCtx, method, action string, id int64) {
	c, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	switch {
	case action == "" && method == fasthttp.MethodGet:
		res, err := s.engine.Result(c, id)
		if err != nil {
			s.fromError(ctx, err)
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, res)
	case action == "state" && method == fasthttp.MethodGet:
		st, err := s.engine.View(c, id)
		if err != nil {
			s.fromError(ctx, err)
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, st)
	case action == "accept" && method == fasthttp.MethodPost:
		if err := s.engine.AcceptBattle(c, id); err != nil {
			s.fromError(ctx, err)
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, map[string]int64{"battleId": id})
	case action == "reject" && method == fasthttp.MethodPost:
		if err := s.engine.RejectBattle(c, id); err != nil {
			s.fromError(ctx, err)
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, map[string]int64{"battleId": id})
	default:
		s.fail(ctx, fasthttp.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (s *Server) createBattle(ctx *fasthttp.RequestCtx) {
	var req battledto.CreateBattleRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.fail(ctx, fasthttp.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	c, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	id, delivered, err := s.engine.CreateChallenge(c, req.LeagueID, req.TrainerAID, req.TrainerBID, req.From)
	if err != nil {
		s.fromError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, battledto.CreateBattleResponse{BattleID: id, Delivered: delivered})
}

func (s *Server) simulate(ctx *fasthttp.RequestCtx) {
	var req battledto.SimulateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.fail(ctx, fasthttp.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	c, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	res, err := s.engine.Simulate(c, req.LeagueID, req.TrainerAID, req.TrainerBID)
	if err != nil {
		s.fromError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, res)
}

func (s *Server) challenge(ctx *fasthttp.RequestCtx) {
	var req battledto.ChallengeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.OpponentUserID <= 0 {
		s.fail(ctx, fasthttp.StatusBadRequest, "bad_request", "opponentUserId is required")
		return
	}
	ok := s.engine.Challenge(req.OpponentUserID, req.From, req.BattleID)
	writeJSON(ctx, fasthttp.StatusOK, battledto.ChallengeResponse{Delivered: ok})
}

var badInput = []error{
	battle.ErrSameTrainer,
	battle.ErrInvalidTrainer,
	battle.ErrLeagueMismatch,
	battle.ErrEmptyRoster,
}

func (s *Server) fromError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, domain.ErrBattleNotFound):
		s.fail(ctx, fasthttp.StatusNotFound, "not_found", s.text("errors.not_found", err))
		return
	case errors.Is(err, domain.ErrTeamNotFound):
		s.fail(ctx, fasthttp.StatusNotFound, "team_not_found", err.Error())
		return
	case errors.Is(err, battle.ErrBattleNotPending):
		s.fail(ctx, fasthttp.StatusConflict, "not_pending", s.text("errors.not_pending", err))
		return
	}
	for _, e := range badInput {
		if errors.Is(err, e) {
			s.fail(ctx, fasthttp.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}
	obslog.L().Error("api_error", zap.String("path", string(ctx.Path())), zap.Error(err))
	s.fail(ctx, fasthttp.StatusInternalServerError, "internal", s.text("errors.internal", err))
}

func (s *Server) text(key string, fallback error) string {
	msg, err := s.cat.Render(key, nil)
	if err != nil {
		return fallback.Error()
	}
	return msg
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, status int, code, msg string) {
	writeJSON(ctx, status, battledto.APIError{Code: code, Message: msg})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
