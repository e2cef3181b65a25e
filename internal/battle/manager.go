package battle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/pokeleague/internal/domain"
	"github.com/park285/pokeleague/internal/msgcat"
	"github.com/park285/pokeleague/internal/obslog"
	"github.com/park285/pokeleague/pkg/battledto"
)

type Config struct {
	Repo     Repository
	Notifier Broadcaster
	Catalog  *msgcat.Catalog

	// WinPoints is added to the winner's team once per battle. Default 1.
	WinPoints int
	// PersistRetryMax bounds write attempts per state change. Default 3.
	PersistRetryMax int
	// WriteTimeout bounds each write attempt. Default 5s.
	WriteTimeout time.Duration
	// Backoff overrides the wait between write attempts.
	Backoff func(attempt int) time.Duration
}

// Manager runs every live battle of the process: it validates submissions,
// resolves turns, writes state back and fans the result out.
type Manager struct {
	repo   Repository
	store  *Store
	notify Broadcaster
	cat    *msgcat.Catalog

	winPoints    int
	retryMax     int
	writeTimeout time.Duration
	backoff      func(int) time.Duration
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Repo == nil {
		return nil, errors.New("battle manager requires a repository")
	}
	m := &Manager{
		repo:         cfg.Repo,
		store:        NewStore(cfg.Repo),
		notify:       cfg.Notifier,
		cat:          cfg.Catalog,
		winPoints:    cfg.WinPoints,
		retryMax:     cfg.PersistRetryMax,
		writeTimeout: cfg.WriteTimeout,
		backoff:      cfg.Backoff,
	}
	if m.notify == nil {
		m.notify = nopBroadcaster{}
	}
	if m.cat == nil {
		cat, err := msgcat.New("")
		if err != nil {
			return nil, err
		}
		m.cat = cat
	}
	if m.winPoints <= 0 {
		m.winPoints = 1
	}
	if m.retryMax <= 0 {
		m.retryMax = 3
	}
	if m.writeTimeout <= 0 {
		m.writeTimeout = 5 * time.Second
	}
	if m.backoff == nil {
		m.backoff = backoffDuration
	}
	return m, nil
}

// Store exposes the live battle cache.
func (m *Manager) Store() *Store { return m.store }

// GetBattle returns the live state of a battle, hydrating it if needed.
func (m *Manager) GetBattle(ctx context.Context, id int64) (*State, error) {
	return m.store.Get(ctx, id)
}

// Evict drops a battle from memory. The durable record is untouched.
func (m *Manager) Evict(id int64) { m.store.Evict(id) }

// View returns the client view of a battle.
func (m *Manager) View(ctx context.Context, id int64) (battledto.BattleState, error) {
	st, err := m.store.Get(ctx, id)
	if err != nil {
		return battledto.BattleState{}, err
	}
	return st.View(), nil
}

// CreateBattle records a PENDING battle between two teams and returns its id.
func (m *Manager) CreateBattle(ctx context.Context, leagueID, trainerA, trainerB int64) (int64, error) {
	id, _, err := m.create(ctx, leagueID, trainerA, trainerB)
	return id, err
}

// CreateChallenge creates a battle and notifies the opponent's user.
// delivered is false when the opponent has no live session.
func (m *Manager) CreateChallenge(ctx context.Context, leagueID, trainerA, trainerB int64, from string) (id int64, delivered bool, err error) {
	id, opp, err := m.create(ctx, leagueID, trainerA, trainerB)
	if err != nil {
		return 0, false, err
	}
	return id, m.Challenge(opp.UserID, from, id), nil
}

func (m *Manager) create(ctx context.Context, leagueID, trainerA, trainerB int64) (int64, *domain.Team, error) {
	teamA, teamB, err := m.loadPair(ctx, leagueID, trainerA, trainerB)
	if err != nil {
		return 0, nil, err
	}
	id, err := m.repo.CreateBattle(ctx, newRecord(leagueID, teamA, teamB))
	if err != nil {
		return 0, nil, fmt.Errorf("create battle: %w", err)
	}
	obslog.L().Info("battle_create",
		zap.Int64("battle_id", id),
		zap.Int64("league_id", leagueID),
		zap.Int64("trainer_a", trainerA),
		zap.Int64("trainer_b", trainerB),
	)
	return id, teamB, nil
}

// loadPair validates the two trainers and loads their teams.
func (m *Manager) loadPair(ctx context.Context, leagueID, trainerA, trainerB int64) (*domain.Team, *domain.Team, error) {
	if trainerA <= 0 || trainerB <= 0 {
		return nil, nil, ErrInvalidTrainer
	}
	if trainerA == trainerB {
		return nil, nil, ErrSameTrainer
	}
	teamA, err := m.repo.LoadTeam(ctx, trainerA)
	if err != nil {
		return nil, nil, fmt.Errorf("load team %d: %w", trainerA, err)
	}
	teamB, err := m.repo.LoadTeam(ctx, trainerB)
	if err != nil {
		return nil, nil, fmt.Errorf("load team %d: %w", trainerB, err)
	}
	if len(teamA.Pokemons) == 0 || len(teamB.Pokemons) == 0 {
		return nil, nil, ErrEmptyRoster
	}
	if leagueID != 0 && ((teamA.LeagueID != 0 && teamA.LeagueID != leagueID) || (teamB.LeagueID != 0 && teamB.LeagueID != leagueID)) {
		return nil, nil, ErrLeagueMismatch
	}
	return teamA, teamB, nil
}

// newRecord is a PENDING battle with both team powers filled in.
func newRecord(leagueID int64, teamA, teamB *domain.Team) *domain.BattleRecord {
	now := time.Now()
	return &domain.BattleRecord{
		LeagueID:   leagueID,
		TrainerAID: teamA.ID,
		TrainerBID: teamB.ID,
		PowerA:     domain.TeamPower(teamA.Pokemons),
		PowerB:     domain.TeamPower(teamB.Pokemons),
		Status:     domain.StatusPending,
		Log:        []string{},
		TurnOrder:  []int64{},
		Snapshot:   domain.Snapshot{Version: domain.SnapshotVersion},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Challenge sends a challenge notice to a user's live session, if any.
func (m *Manager) Challenge(userID int64, from string, battleID int64) bool {
	from = strings.TrimSpace(from)
	if from == "" {
		from = m.text("challenge.default_from", nil)
	}
	ok := m.notify.ToUser(userID, battledto.NewEvent(battledto.EventChallenge, battledto.Challenge{From: from, BattleID: battleID}))
	obslog.L().Debug("battle_challenge",
		zap.Int64("battle_id", battleID),
		zap.Int64("user_id", userID),
		zap.Bool("delivered", ok),
	)
	return ok
}

// AcceptBattle starts a PENDING battle and tells each side's user which team is theirs.
func (m *Manager) AcceptBattle(ctx context.Context, id int64) error {
	st, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.Status != domain.StatusPending {
		m.resettle(ctx, st)
		return ErrBattleNotPending
	}
	st.Status = domain.StatusInProgress
	st.syncRound()
	st.appendLog(m.text("battle.started", map[string]any{"A": st.A.display(), "B": st.B.display()}))
	_ = m.persist(ctx, st)

	for _, side := range st.sides() {
		m.notify.ToUser(side.UserID, battledto.NewEvent(battledto.EventBattleAccepted,
			battledto.BattleAccepted{BattleID: st.ID, MyTeamID: side.TeamID}))
	}
	m.broadcast(st)
	obslog.L().Info("battle_accept", zap.Int64("battle_id", st.ID))
	return nil
}

// RejectBattle cancels a PENDING battle. It leaves memory once the
// cancellation is durable.
func (m *Manager) RejectBattle(ctx context.Context, id int64) error {
	st, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.Status != domain.StatusPending {
		m.resettle(ctx, st)
		return ErrBattleNotPending
	}
	st.Status = domain.StatusCanceled
	st.appendLog(m.text("battle.canceled", nil))
	settled := m.settle(ctx, st)

	ev := battledto.NewEvent(battledto.EventBattleRejected, battledto.BattleRejected{BattleID: st.ID})
	for _, side := range st.sides() {
		m.notify.ToUser(side.UserID, ev)
	}
	obslog.L().Info("battle_reject", zap.Int64("battle_id", st.ID), zap.Bool("settled", settled))
	return nil
}

// JoinBattle binds a session to one side and pushes the current state.
// userID is the user registered on the session and must own the team.
func (m *Manager) JoinBattle(ctx context.Context, id, teamID, userID int64, sessionID string) error {
	st, err := m.store.Get(ctx, id)
	if err != nil {
		return m.reject(id, sessionID, err)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	side := st.sideByTeam(teamID)
	if side == nil || side.UserID != userID {
		return m.reject(id, sessionID, ErrNotInBattle)
	}
	side.SessionID = sessionID
	m.broadcast(st)
	obslog.L().Debug("battle_join",
		zap.Int64("battle_id", id),
		zap.Int64("team_id", teamID),
		zap.Int64("user_id", userID),
		zap.String("session_id", sessionID),
	)
	return nil
}

// LeaveSession clears every side bound to a closed session.
func (m *Manager) LeaveSession(sessionID string) {
	if sessionID == "" {
		return
	}
	for _, st := range m.store.snapshot() {
		st.mu.Lock()
		changed := false
		for _, side := range st.sides() {
			if side.SessionID == sessionID {
				side.SessionID = ""
				changed = true
			}
		}
		if changed {
			m.broadcast(st)
		}
		st.mu.Unlock()
	}
}

// Result loads the durable record of a battle with both rosters.
func (m *Manager) Result(ctx context.Context, id int64) (*battledto.BattleResult, error) {
	rec, err := m.repo.LoadBattle(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &battledto.BattleResult{
		ID:          rec.ID,
		LeagueID:    rec.LeagueID,
		Status:      string(rec.Status),
		WinnerID:    rec.WinnerID,
		PowerA:      rec.PowerA,
		PowerB:      rec.PowerB,
		CurrentTurn: rec.CurrentTurn,
		Log:         append([]string{}, rec.Log...),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	for _, t := range []struct {
		id  int64
		dst *battledto.TeamResult
	}{{rec.TrainerAID, &out.TrainerA}, {rec.TrainerBID, &out.TrainerB}} {
		team, err := m.repo.LoadTeam(ctx, t.id)
		if err != nil {
			return nil, fmt.Errorf("load team %d: %w", t.id, err)
		}
		*t.dst = teamResult(team)
	}
	return out, nil
}

func teamResult(t *domain.Team) battledto.TeamResult {
	out := battledto.TeamResult{ID: t.ID, UserID: t.UserID, Name: t.Name, Points: t.Points}
	out.Pokemons = make([]battledto.Pokemon, len(t.Pokemons))
	for i, p := range t.Pokemons {
		p.CurrentHP = p.HP
		out.Pokemons[i] = PokemonDTO(p)
	}
	return out
}

// commit writes the state back, then pushes it to both sides. Caller holds st.mu.
func (m *Manager) commit(ctx context.Context, st *State) {
	_ = m.persist(ctx, st)
	m.broadcast(st)
}

// broadcast pushes the full state to every side with a live session. Caller holds st.mu.
func (m *Manager) broadcast(st *State) {
	ev := battledto.NewEvent(battledto.EventUpdateState, st.view())
	for _, side := range st.sides() {
		if side.SessionID != "" {
			m.notify.ToSession(side.SessionID, ev)
		}
	}
}

// reject sends a scoped battleError to the submitting session and returns err.
func (m *Manager) reject(battleID int64, sessionID string, err error) error {
	code := ErrorCode(err)
	if sessionID != "" {
		m.notify.ToSession(sessionID, battledto.NewEvent(battledto.EventBattleError, battledto.BattleError{
			BattleID: battleID,
			Code:     code,
			Message:  m.text("errors."+code, nil),
		}))
	}
	if code == "internal" {
		obslog.L().Warn("battle_action_error", zap.Int64("battle_id", battleID), zap.Error(err))
	}
	return err
}

func (m *Manager) text(key string, data map[string]any) string {
	s, err := m.cat.Render(key, data)
	if err != nil {
		obslog.L().Warn("battle_text_error", zap.String("key", key), zap.Error(err))
		return key
	}
	return s
}
