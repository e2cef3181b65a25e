package battlestore

import (
	"context"
	"sync"
	"time"

	"github.com/park285/pokeleague/internal/domain"
)

// Memory keeps battles and teams in process memory. Used for local runs and tests.
type Memory struct {
	mu sync.RWMutex

	nextID  int64
	battles map[int64]*domain.BattleRecord
	teams   map[int64]*domain.Team
}

func NewMemory() *Memory {
	return &Memory{
		battles: make(map[int64]*domain.BattleRecord),
		teams:   make(map[int64]*domain.Team),
	}
}

// PutTeam stores or replaces a team with its roster.
func (m *Memory) PutTeam(_ context.Context, t *domain.Team) error {
	if t == nil || t.ID <= 0 {
		return domain.ErrTeamNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[t.ID] = t.Clone()
	return nil
}

func (m *Memory) CreateBattle(_ context.Context, rec *domain.BattleRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c := rec.Clone()
	c.ID = m.nextID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt
	m.battles[c.ID] = c
	return c.ID, nil
}

func (m *Memory) LoadBattle(_ context.Context, id int64) (*domain.BattleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.battles[id]
	if !ok {
		return nil, domain.ErrBattleNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) SaveBattle(_ context.Context, rec *domain.BattleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.battles[rec.ID]
	if !ok {
		return domain.ErrBattleNotFound
	}
	m.battles[rec.ID] = overlay(cur, rec)
	return nil
}

// FinishBattle saves a terminal record and credits the winner once per battle.
func (m *Memory) FinishBattle(_ context.Context, rec *domain.BattleRecord, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.battles[rec.ID]
	if !ok {
		return domain.ErrBattleNotFound
	}
	award := rec.WinnerID != nil && points > 0 && !cur.PointsAwarded
	var winner *domain.Team
	if award {
		if winner, ok = m.teams[*rec.WinnerID]; !ok {
			return domain.ErrTeamNotFound
		}
	}
	next := overlay(cur, rec)
	if award {
		winner.Points += points
		next.PointsAwarded = true
	}
	m.battles[rec.ID] = next
	return nil
}

// overlay copies the mutable fields of rec over the stored identity fields.
func overlay(cur, rec *domain.BattleRecord) *domain.BattleRecord {
	next := rec.Clone()
	next.LeagueID = cur.LeagueID
	next.TrainerAID = cur.TrainerAID
	next.TrainerBID = cur.TrainerBID
	next.PowerA = cur.PowerA
	next.PowerB = cur.PowerB
	next.CreatedAt = cur.CreatedAt
	next.PointsAwarded = cur.PointsAwarded
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now()
	}
	return next
}

func (m *Memory) LoadTeam(_ context.Context, teamID int64) (*domain.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[teamID]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}
	return t.Clone(), nil
}
