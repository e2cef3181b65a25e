package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/pokeleague/internal/msgcat"
	"github.com/park285/pokeleague/internal/obslog"
	"github.com/park285/pokeleague/internal/session"
	"github.com/park285/pokeleague/pkg/battledto"
)

const maxMessageBytes = 16 << 10

// Engine is the part of the battle manager the realtime channel drives.
type Engine interface {
	// JoinBattle binds the session to a side owned by userID.
	JoinBattle(ctx context.Context, id, teamID, userID int64, sessionID string) error
	SelectMove(ctx context.Context, battleID int64, sessionID, moveName string) error
	SwitchPokemon(ctx context.Context, battleID int64, sessionID string, pokemonID int64) error
	LeaveSession(sessionID string)
}

type Options struct {
	// AllowedOrigins is passed to the websocket handshake. Empty means same-origin only.
	AllowedOrigins []string
	// JWTSecret enables token verification on register. When empty the
	// claimed userId is trusted.
	JWTSecret string
	Catalog   *msgcat.Catalog
}

// Server accepts realtime sessions and feeds their actions to the engine.
type Server struct {
	engine   Engine
	sessions *session.Registry
	hub      *Hub
	cat      *msgcat.Catalog
	origins  []string
	secret   []byte
}

func NewServer(engine Engine, sessions *session.Registry, hub *Hub, opts Options) *Server {
	s := &Server{
		engine:   engine,
		sessions: sessions,
		hub:      hub,
		cat:      opts.Catalog,
		origins:  opts.AllowedOrigins,
	}
	if opts.JWTSecret != "" {
		s.secret = []byte(opts.JWTSecret)
	}
	if s.cat == nil {
		s.cat = msgcat.MustDefault()
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Debug("ws_accept_error", zap.Error(err))
		return
	}
	ws.SetReadLimit(maxMessageBytes)

	id := uuid.NewString()
	c := s.hub.add(id, ws)
	obslog.L().Info("ws_open", zap.String("session_id", id), zap.String("remote", r.RemoteAddr))

	defer func() {
		c.close(websocket.StatusNormalClosure, "")
		s.hub.remove(id)
		if userID, ok := s.sessions.Unbind(id); ok {
			obslog.L().Debug("session_unbind", zap.Int64("user_id", userID), zap.String("session_id", id))
		}
		s.engine.LeaveSession(id)
		obslog.L().Info("ws_close", zap.String("session_id", id))
	}()

	s.readLoop(r.Context(), c)
}

func (s *Server) readLoop(ctx context.Context, c *conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	var userID int64
	for {
		var msg battledto.ClientMessage
		if err := wsjson.Read(ctx, c.ws, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				obslog.L().Debug("ws_read_error", zap.String("session_id", c.id), zap.Error(err))
			}
			return
		}
		userID = s.dispatch(ctx, c.id, userID, msg)
	}
}

// dispatch handles one client message and returns the session's user id after it.
func (s *Server) dispatch(ctx context.Context, sessionID string, userID int64, msg battledto.ClientMessage) int64 {
	var err error
	switch msg.Type {
	case battledto.ActionRegister:
		id, rerr := s.register(sessionID, msg)
		if rerr != nil {
			s.sendError(sessionID, 0, "unauthorized")
			obslog.L().Info("ws_register_denied", zap.String("session_id", sessionID), zap.Error(rerr))
			return userID
		}
		return id
	case battledto.ActionJoinBattle:
		if userID == 0 {
			s.sendError(sessionID, msg.BattleID, "not_registered")
			return userID
		}
		err = s.engine.JoinBattle(ctx, msg.BattleID, msg.TeamID, userID, sessionID)
	case battledto.ActionSelectMove:
		err = s.engine.SelectMove(ctx, msg.BattleID, sessionID, msg.Move)
	case battledto.ActionSwitchPokemon:
		err = s.engine.SwitchPokemon(ctx, msg.BattleID, sessionID, msg.PokemonID)
	default:
		s.sendError(sessionID, msg.BattleID, "bad_request")
		return userID
	}
	// the engine already answered the session with a scoped battleError
	if err != nil {
		obslog.L().Debug("ws_action_rejected",
			zap.String("session_id", sessionID),
			zap.String("action", msg.Type),
			zap.Int64("battle_id", msg.BattleID),
			zap.Error(err),
		)
	}
	return userID
}

func (s *Server) register(sessionID string, msg battledto.ClientMessage) (int64, error) {
	userID := msg.UserID
	if s.secret != nil {
		id, err := userFromToken(s.secret, msg.Token)
		if err != nil {
			return 0, err
		}
		userID = id
	}
	if userID <= 0 {
		return 0, errBadToken
	}
	s.sessions.Bind(userID, sessionID)
	_ = s.hub.Send(sessionID, battledto.NewEvent(battledto.EventRegistered,
		battledto.Registered{UserID: userID, SessionID: sessionID}))
	return userID, nil
}

func (s *Server) sendError(sessionID string, battleID int64, code string) {
	msg, err := s.cat.Render("errors."+code, nil)
	if err != nil {
		msg = code
	}
	_ = s.hub.Send(sessionID, battledto.NewEvent(battledto.EventBattleError,
		battledto.BattleError{BattleID: battleID, Code: code, Message: msg}))
}
