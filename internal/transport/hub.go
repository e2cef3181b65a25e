package transport

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/pokeleague/internal/notify"
	"github.com/park285/pokeleague/internal/obslog"
	"github.com/park285/pokeleague/pkg/battledto"
)

const (
	defaultOutboxSize   = 32
	defaultWriteTimeout = 5 * time.Second
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

const errOutboxFull = staticErr("session outbox full")

// conn is one accepted websocket. Writes happen only on the writer goroutine.
type conn struct {
	id        string
	ws        *websocket.Conn
	out       chan battledto.Event
	done      chan struct{}
	closeOnce sync.Once
}

func (c *conn) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close(code, reason)
	})
}

// Hub tracks open sessions and implements notify.Sender.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*conn

	outboxSize   int
	writeTimeout time.Duration
}

func NewHub() *Hub {
	return &Hub{
		conns:        make(map[string]*conn),
		outboxSize:   defaultOutboxSize,
		writeTimeout: defaultWriteTimeout,
	}
}

func (h *Hub) add(id string, ws *websocket.Conn) *conn {
	c := &conn{
		id:   id,
		ws:   ws,
		out:  make(chan battledto.Event, h.outboxSize),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
	go h.writeLoop(c)
	return c
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

// Len reports the number of open sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send queues ev for sessionID. A session that cannot keep up is closed.
func (h *Hub) Send(sessionID string, ev battledto.Event) error {
	h.mu.RLock()
	c, ok := h.conns[sessionID]
	h.mu.RUnlock()
	if !ok {
		return notify.ErrNoSession
	}
	select {
	case <-c.done:
		return notify.ErrNoSession
	default:
	}
	select {
	case c.out <- ev:
		return nil
	default:
		obslog.L().Warn("ws_outbox_full", zap.String("session_id", sessionID), zap.String("event", ev.Type))
		c.close(websocket.StatusPolicyViolation, "slow consumer")
		return errOutboxFull
	}
}

func (h *Hub) writeLoop(c *conn) {
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.out:
			ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
			err := wsjson.Write(ctx, c.ws, ev)
			cancel()
			if err != nil {
				obslog.L().Debug("ws_write_error", zap.String("session_id", c.id), zap.Error(err))
				c.close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// CloseAll closes every open session, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.close(websocket.StatusGoingAway, "server shutdown")
	}
}
