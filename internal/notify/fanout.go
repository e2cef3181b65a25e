package notify

import (
	"go.uber.org/zap"

	"github.com/park285/pokeleague/internal/obslog"
	"github.com/park285/pokeleague/pkg/battledto"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

// ErrNoSession is returned by a Sender when the session is gone.
const ErrNoSession = staticErr("session not connected")

// Sender writes one event to one transport session.
type Sender interface {
	Send(sessionID string, ev battledto.Event) error
}

// Resolver finds the live session of a user.
type Resolver interface {
	Resolve(userID int64) (string, bool)
}

// Fanout routes battle events to sessions. Anything that cannot be delivered
// is dropped; a client that comes back later reads the state on join.
type Fanout struct {
	sessions Resolver
	sender   Sender
}

func New(sessions Resolver, sender Sender) *Fanout {
	return &Fanout{sessions: sessions, sender: sender}
}

func (f *Fanout) ToSession(sessionID string, ev battledto.Event) bool {
	if f == nil || f.sender == nil || sessionID == "" {
		return false
	}
	if err := f.sender.Send(sessionID, ev); err != nil {
		obslog.L().Debug("notify_drop",
			zap.String("session_id", sessionID),
			zap.String("event", ev.Type),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (f *Fanout) ToUser(userID int64, ev battledto.Event) bool {
	if f == nil || f.sessions == nil {
		return false
	}
	sid, ok := f.sessions.Resolve(userID)
	if !ok {
		obslog.L().Debug("notify_no_session", zap.Int64("user_id", userID), zap.String("event", ev.Type))
		return false
	}
	return f.ToSession(sid, ev)
}
