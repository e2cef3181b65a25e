package battlestore

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/pokeleague/internal/domain"
)

const keyPrefix = "pokeleague:"

func battleKey(id int64) string { return keyPrefix + "battle:" + strconv.FormatInt(id, 10) }
func teamKey(id int64) string   { return keyPrefix + "team:" + strconv.FormatInt(id, 10) }

const (
	battleSeqKey  = keyPrefix + "battle:seq"
	teamPointsKey = keyPrefix + "team:points"
)

// Redis stores battles as JSON documents and league points in one hash.
// A finished battle and its point increment commit in one MULTI.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration // 0 keeps documents forever
}

func NewRedis(redisURL string) (*Redis, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

// WithTTL expires finished battle documents after d.
func (r *Redis) WithTTL(d time.Duration) *Redis {
	r.ttl = d
	return r
}

func (r *Redis) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

// battleDoc is the stored layout. Side states are kept raw so documents
// written before the v2 snapshot layout still decode.
type battleDoc struct {
	ID            int64               `json:"id"`
	LeagueID      int64               `json:"leagueId"`
	TrainerAID    int64               `json:"trainerAId"`
	TrainerBID    int64               `json:"trainerBId"`
	WinnerID      *int64              `json:"winnerId,omitempty"`
	PowerA        float64             `json:"powerA"`
	PowerB        float64             `json:"powerB"`
	Status        domain.BattleStatus `json:"status"`
	CurrentTurn   int64               `json:"currentTurn"`
	Log           []string            `json:"log"`
	TurnOrder     []int64             `json:"turnOrder"`
	StateVersion  int                 `json:"stateVersion,omitempty"`
	PokemonAState json.RawMessage     `json:"pokemonAState,omitempty"`
	PokemonBState json.RawMessage     `json:"pokemonBState,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	PointsAwarded bool                `json:"pointsAwarded,omitempty"`
}

func docFromRecord(rec *domain.BattleRecord) (*battleDoc, error) {
	version, a, b, err := encodeSides(rec.Snapshot)
	if err != nil {
		return nil, err
	}
	return &battleDoc{
		ID:            rec.ID,
		LeagueID:      rec.LeagueID,
		TrainerAID:    rec.TrainerAID,
		TrainerBID:    rec.TrainerBID,
		WinnerID:      rec.WinnerID,
		PowerA:        rec.PowerA,
		PowerB:        rec.PowerB,
		Status:        rec.Status,
		CurrentTurn:   rec.CurrentTurn,
		Log:           rec.Log,
		TurnOrder:     rec.TurnOrder,
		StateVersion:  version,
		PokemonAState: a,
		PokemonBState: b,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
		PointsAwarded: rec.PointsAwarded,
	}, nil
}

func (d *battleDoc) record() (*domain.BattleRecord, error) {
	version := d.StateVersion
	if version == 0 {
		version = 1
	}
	snap, err := decodeSides(version, d.PokemonAState, d.PokemonBState)
	if err != nil {
		return nil, fmt.Errorf("battle %d: %w", d.ID, err)
	}
	return &domain.BattleRecord{
		ID:          d.ID,
		LeagueID:    d.LeagueID,
		TrainerAID:  d.TrainerAID,
		TrainerBID:  d.TrainerBID,
		WinnerID:    d.WinnerID,
		PowerA:      d.PowerA,
		PowerB:      d.PowerB,
		Status:      d.Status,
		CurrentTurn: d.CurrentTurn,
		Log:         d.Log,
		TurnOrder:   d.TurnOrder,
		Snapshot:    snap,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,

		PointsAwarded: d.PointsAwarded,
	}, nil
}

func (r *Redis) CreateBattle(ctx context.Context, rec *domain.BattleRecord) (int64, error) {
	id, err := r.rdb.Incr(ctx, battleSeqKey).Result()
	if err != nil {
		return 0, err
	}
	c := rec.Clone()
	c.ID = id
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt
	doc, err := docFromRecord(c)
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	if err := r.rdb.Set(ctx, battleKey(id), raw, 0).Err(); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Redis) LoadBattle(ctx context.Context, id int64) (*domain.BattleRecord, error) {
	doc, err := r.getDoc(ctx, r.rdb, id)
	if err != nil {
		return nil, err
	}
	return doc.record()
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *Redis) getDoc(ctx context.Context, g getter, id int64) (*battleDoc, error) {
	raw, err := g.Get(ctx, battleKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrBattleNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc battleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode battle %d: %w", id, err)
	}
	return &doc, nil
}

// SaveBattle overlays the mutable fields under WATCH so identity columns
// written at creation are never clobbered.
func (r *Redis) SaveBattle(ctx context.Context, rec *domain.BattleRecord) error {
	return r.write(ctx, rec, 0)
}

// FinishBattle saves a terminal record and, in the same MULTI, credits the
// winner unless the stored document already carries pointsAwarded.
func (r *Redis) FinishBattle(ctx context.Context, rec *domain.BattleRecord, points int) error {
	return r.write(ctx, rec, points)
}

func (r *Redis) write(ctx context.Context, rec *domain.BattleRecord, points int) error {
	key := battleKey(rec.ID)
	return r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := r.getDoc(ctx, tx, rec.ID)
		if err != nil {
			return err
		}
		version, a, b, err := encodeSides(rec.Snapshot)
		if err != nil {
			return err
		}
		award := rec.WinnerID != nil && points > 0 && !cur.PointsAwarded
		if award {
			n, err := tx.Exists(ctx, teamKey(*rec.WinnerID)).Result()
			if err != nil {
				return err
			}
			if n == 0 {
				return domain.ErrTeamNotFound
			}
			cur.PointsAwarded = true
		}
		cur.Status = rec.Status
		cur.WinnerID = rec.WinnerID
		cur.CurrentTurn = rec.CurrentTurn
		cur.Log = rec.Log
		cur.TurnOrder = rec.TurnOrder
		cur.StateVersion = version
		cur.PokemonAState = a
		cur.PokemonBState = b
		cur.UpdatedAt = rec.UpdatedAt
		if cur.UpdatedAt.IsZero() {
			cur.UpdatedAt = time.Now()
		}
		raw, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		ttl := time.Duration(0)
		if cur.Status.Terminal() {
			ttl = r.ttl
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, ttl)
			if award {
				pipe.HIncrBy(ctx, teamPointsKey, strconv.FormatInt(*rec.WinnerID, 10), int64(points))
			}
			return nil
		})
		return err
	}, key)
}

// PutTeam stores a roster and seeds its points.
func (r *Redis) PutTeam(ctx context.Context, t *domain.Team) error {
	if t == nil || t.ID <= 0 {
		return domain.ErrTeamNotFound
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, teamKey(t.ID), raw, 0)
		pipe.HSet(ctx, teamPointsKey, strconv.FormatInt(t.ID, 10), t.Points)
		return nil
	})
	return err
}

func (r *Redis) LoadTeam(ctx context.Context, teamID int64) (*domain.Team, error) {
	raw, err := r.rdb.Get(ctx, teamKey(teamID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	var t domain.Team
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode team %d: %w", teamID, err)
	}
	pts, err := r.rdb.HGet(ctx, teamPointsKey, strconv.FormatInt(teamID, 10)).Int()
	switch {
	case err == nil:
		t.Points = pts
	case !errors.Is(err, redis.Nil):
		return nil, err
	}
	return &t, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: u.Host, Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
