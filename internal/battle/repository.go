package battle

import (
	"context"

	"github.com/park285/pokeleague/internal/domain"
	"github.com/park285/pokeleague/pkg/battledto"
)

//go:generate mockgen -destination=mock/mock_battle.go -package=battlemock github.com/park285/pokeleague/internal/battle Broadcaster,Repository

// Repository is the durable system of record for battles and team rosters.
// Lookups of unknown ids return domain.ErrBattleNotFound / domain.ErrTeamNotFound.
type Repository interface {
	CreateBattle(ctx context.Context, rec *domain.BattleRecord) (int64, error)
	LoadBattle(ctx context.Context, id int64) (*domain.BattleRecord, error)
	// SaveBattle writes the mutable battle state: status, winner, turn,
	// log, turn order and the side snapshots.
	SaveBattle(ctx context.Context, rec *domain.BattleRecord) error
	// LoadTeam returns the team with its roster.
	LoadTeam(ctx context.Context, teamID int64) (*domain.Team, error)
	// FinishBattle writes a terminal record and, when it has a winner, adds
	// points to the winner's team in the same atomic write. Points are
	// credited at most once per battle, so the call may be repeated.
	FinishBattle(ctx context.Context, rec *domain.BattleRecord, points int) error
}

// Broadcaster delivers events to live sessions. Both methods report whether
// a session was found; undeliverable events are dropped.
type Broadcaster interface {
	ToSession(sessionID string, ev battledto.Event) bool
	ToUser(userID int64, ev battledto.Event) bool
}

type nopBroadcaster struct{}

func (nopBroadcaster) ToSession(string, battledto.Event) bool { return false }
func (nopBroadcaster) ToUser(int64, battledto.Event) bool     { return false }
