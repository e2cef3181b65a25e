package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/park285/pokeleague/internal/obslog"
)

// Registry maps a durable user id to the transport session currently serving
// that user. One session per user; a newer registration replaces the older.
// The registry lives only in memory and starts empty on every boot.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]string
	bySess map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[int64]string), bySess: make(map[string]int64)}
}

// Bind records sessionID as the live session of userID.
func (r *Registry) Bind(userID int64, sessionID string) {
	if userID == 0 || sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byUser[userID]; ok && prev != sessionID {
		delete(r.bySess, prev)
	}
	if prevUser, ok := r.bySess[sessionID]; ok && prevUser != userID {
		delete(r.byUser, prevUser)
	}
	r.byUser[userID] = sessionID
	r.bySess[sessionID] = userID
	obslog.L().Debug("session_bind", zap.Int64("user_id", userID), zap.String("session_id", sessionID))
}

// Unbind removes whatever user is bound to sessionID. A session that was
// already replaced by a newer one leaves the newer binding untouched.
func (r *Registry) Unbind(sessionID string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.bySess[sessionID]
	if !ok {
		return 0, false
	}
	delete(r.bySess, sessionID)
	if r.byUser[userID] == sessionID {
		delete(r.byUser, userID)
	}
	return userID, true
}

// Resolve returns the live session of userID.
func (r *Registry) Resolve(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.byUser[userID]
	return sid, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
