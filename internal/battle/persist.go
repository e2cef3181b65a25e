package battle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/park285/pokeleague/internal/obslog"
)

// backoffDuration doubles from 100ms per attempt and stops growing after the sixth.
func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return 100 * time.Millisecond * time.Duration(1<<(attempt-1))
}

// retry runs fn up to m.retryMax times. Each attempt gets its own deadline and
// survives cancellation of the caller's context, since the in-memory battle has
// already moved on and the durable copy must catch up.
func (m *Manager) retry(ctx context.Context, op string, battleID int64, fn func(context.Context) error) error {
	base := context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= m.retryMax; attempt++ {
		actx, cancel := context.WithTimeout(base, m.writeTimeout)
		err = fn(actx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == m.retryMax {
			break
		}
		obslog.L().Warn("battle_write_retry",
			zap.String("op", op),
			zap.Int64("battle_id", battleID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		time.Sleep(m.backoff(attempt))
	}
	obslog.L().Error("battle_write_error",
		zap.String("op", op),
		zap.Int64("battle_id", battleID),
		zap.Int("attempts", m.retryMax),
		zap.Error(err),
	)
	return err
}

// persist writes the current state back. A failure leaves the in-memory
// state authoritative; the next successful write carries everything.
func (m *Manager) persist(ctx context.Context, st *State) error {
	rec := st.record()
	return m.retry(ctx, "save_battle", st.ID, func(c context.Context) error {
		return m.repo.SaveBattle(c, rec)
	})
}

// settle makes a terminal state durable together with the winner's points and
// evicts it. On failure the state stays cached and flagged, so submissions keep
// seeing the terminal status and the next touch tries again.
func (m *Manager) settle(ctx context.Context, st *State) bool {
	rec := st.record()
	err := m.retry(ctx, "finish_battle", st.ID, func(c context.Context) error {
		return m.repo.FinishBattle(c, rec, m.winPoints)
	})
	if err != nil {
		st.unsettled = true
		return false
	}
	st.unsettled = false
	m.store.Evict(st.ID)
	return true
}

// resettle retries the final write of a terminal battle that is still
// waiting for it. Caller holds st.mu.
func (m *Manager) resettle(ctx context.Context, st *State) {
	if st.unsettled {
		m.settle(ctx, st)
	}
}

// Flush retries the final write of every cached battle that is still owed
// one and reports how many remain unsaved.
func (m *Manager) Flush(ctx context.Context) int {
	left := 0
	for _, st := range m.store.snapshot() {
		st.mu.Lock()
		if st.unsettled && !m.settle(ctx, st) {
			left++
		}
		st.mu.Unlock()
	}
	return left
}
