package battle

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/pokeleague/internal/obslog"
)

// Store owns the live battles of this process, hydrating them lazily from the repository.
type Store struct {
	repo Repository

	mu   sync.Mutex
	live map[int64]*State
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo, live: make(map[int64]*State)}
}

// Get returns the live state for id, loading it on first use. Later calls
// return the same object until Evict. Finished or canceled battles are
// returned but never cached.
func (s *Store) Get(ctx context.Context, id int64) (*State, error) {
	s.mu.Lock()
	st, ok := s.live[id]
	s.mu.Unlock()
	if ok {
		return st, nil
	}

	st, err := s.hydrate(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Status.Terminal() {
		return st, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.live[id]; ok {
		// lost a concurrent hydration race
		return cur, nil
	}
	s.live[id] = st
	obslog.L().Debug("battle_hydrate",
		zap.Int64("battle_id", id),
		zap.String("status", string(st.Status)),
		zap.Int64("turn", st.Turn),
	)
	return st, nil
}

func (s *Store) hydrate(ctx context.Context, id int64) (*State, error) {
	rec, err := s.repo.LoadBattle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load battle %d: %w", id, err)
	}
	teamA, err := s.repo.LoadTeam(ctx, rec.TrainerAID)
	if err != nil {
		return nil, fmt.Errorf("load team %d: %w", rec.TrainerAID, err)
	}
	teamB, err := s.repo.LoadTeam(ctx, rec.TrainerBID)
	if err != nil {
		return nil, fmt.Errorf("load team %d: %w", rec.TrainerBID, err)
	}
	a, err := newSide(teamA, rec.Snapshot.A)
	if err != nil {
		return nil, fmt.Errorf("team %d: %w", rec.TrainerAID, err)
	}
	b, err := newSide(teamB, rec.Snapshot.B)
	if err != nil {
		return nil, fmt.Errorf("team %d: %w", rec.TrainerBID, err)
	}

	st := &State{
		ID:        rec.ID,
		LeagueID:  rec.LeagueID,
		Status:    rec.Status,
		A:         a,
		B:         b,
		Turn:      rec.CurrentTurn,
		Log:       append([]string(nil), rec.Log...),
		TurnOrder: append([]int64(nil), rec.TurnOrder...),
		CreatedAt: rec.CreatedAt,
	}
	if rec.WinnerID != nil {
		w := *rec.WinnerID
		st.WinnerID = &w
	}
	if st.Turn != a.TeamID && st.Turn != b.TeamID {
		st.Turn = a.TeamID
	}
	st.syncRound()
	return st, nil
}

// Peek returns a cached battle without loading it.
func (s *Store) Peek(id int64) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.live[id]
	return st, ok
}

func (s *Store) Evict(id int64) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// snapshot lists the cached battles. Callers lock each State themselves.
func (s *Store) snapshot() []*State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*State, 0, len(s.live))
	for _, st := range s.live {
		out = append(out, st)
	}
	return out
}
