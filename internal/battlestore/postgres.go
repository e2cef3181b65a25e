package battlestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/pokeleague/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is the production system of record.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an open handle.
func NewPostgresFromDB(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Migrate applies the embedded schema. Statements are idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) CreateBattle(ctx context.Context, rec *domain.BattleRecord) (int64, error) {
	version, a, b, err := encodeSides(rec.Snapshot)
	if err != nil {
		return 0, err
	}
	logRaw, turnRaw, err := encodeLists(rec)
	if err != nil {
		return 0, err
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	const q = `INSERT INTO battles (
        league_id, trainer_a_id, trainer_b_id, power_a, power_b, status,
        current_turn, log, turn_order, state_version, pokemon_a_state, pokemon_b_state,
        created_at, updated_at, winner_id
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13,$14)
      RETURNING id`
	var id int64
	err = p.db.QueryRowContext(ctx, q,
		rec.LeagueID, rec.TrainerAID, rec.TrainerBID, rec.PowerA, rec.PowerB, string(rec.Status),
		rec.CurrentTurn, logRaw, turnRaw, version, string(a), string(b),
		created, nullID(rec.WinnerID),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert battle: %w", err)
	}
	return id, nil
}

func (p *Postgres) LoadBattle(ctx context.Context, id int64) (*domain.BattleRecord, error) {
	const q = `SELECT id, league_id, trainer_a_id, trainer_b_id, winner_id, power_a, power_b,
        status, current_turn, log, turn_order, state_version, pokemon_a_state, pokemon_b_state,
        created_at, updated_at, points_awarded
      FROM battles WHERE id = $1`
	var (
		rec             domain.BattleRecord
		winner          sql.NullInt64
		status          string
		logRaw, turnRaw []byte
		version         int
		aState, bState  []byte
	)
	err := p.db.QueryRowContext(ctx, q, id).Scan(
		&rec.ID, &rec.LeagueID, &rec.TrainerAID, &rec.TrainerBID, &winner, &rec.PowerA, &rec.PowerB,
		&status, &rec.CurrentTurn, &logRaw, &turnRaw, &version, &aState, &bState,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.PointsAwarded,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBattleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select battle: %w", err)
	}
	rec.Status = domain.BattleStatus(status)
	if winner.Valid {
		w := winner.Int64
		rec.WinnerID = &w
	}
	if err := json.Unmarshal(logRaw, &rec.Log); err != nil {
		return nil, fmt.Errorf("decode battle %d log: %w", id, err)
	}
	if err := json.Unmarshal(turnRaw, &rec.TurnOrder); err != nil {
		return nil, fmt.Errorf("decode battle %d turn order: %w", id, err)
	}
	if rec.Snapshot, err = decodeSides(version, aState, bState); err != nil {
		return nil, fmt.Errorf("battle %d: %w", id, err)
	}
	return &rec, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (p *Postgres) SaveBattle(ctx context.Context, rec *domain.BattleRecord) error {
	return updateBattle(ctx, p.db, rec)
}

// FinishBattle writes the terminal row and credits the winner in one
// transaction. points_awarded flips at most once, so a retried call after a
// lost commit acknowledgement does not add points twice.
func (p *Postgres) FinishBattle(ctx context.Context, rec *domain.BattleRecord, points int) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := updateBattle(ctx, tx, rec); err != nil {
		return err
	}
	if rec.WinnerID != nil && points > 0 {
		res, err := tx.ExecContext(ctx,
			`UPDATE battles SET points_awarded = TRUE WHERE id = $1 AND NOT points_awarded`, rec.ID)
		if err != nil {
			return fmt.Errorf("mark points awarded: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			res, err := tx.ExecContext(ctx, `UPDATE teams SET points = points + $2 WHERE id = $1`, *rec.WinnerID, points)
			if err != nil {
				return fmt.Errorf("update points: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return domain.ErrTeamNotFound
			}
		}
	}
	return tx.Commit()
}

func updateBattle(ctx context.Context, ex execer, rec *domain.BattleRecord) error {
	version, a, b, err := encodeSides(rec.Snapshot)
	if err != nil {
		return err
	}
	logRaw, turnRaw, err := encodeLists(rec)
	if err != nil {
		return err
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	const q = `UPDATE battles SET
        status = $2, winner_id = $3, current_turn = $4, log = $5, turn_order = $6,
        state_version = $7, pokemon_a_state = $8, pokemon_b_state = $9,
        active_pokemon_a_id = $10, active_pokemon_b_id = $11, updated_at = $12
      WHERE id = $1`
	res, err := ex.ExecContext(ctx, q,
		rec.ID, string(rec.Status), nullID(rec.WinnerID), rec.CurrentTurn, logRaw, turnRaw,
		version, string(a), string(b),
		nullID(activeID(rec.Snapshot.A)), nullID(activeID(rec.Snapshot.B)), updated,
	)
	if err != nil {
		return fmt.Errorf("update battle: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrBattleNotFound
	}
	return nil
}

func (p *Postgres) LoadTeam(ctx context.Context, teamID int64) (*domain.Team, error) {
	var t domain.Team
	err := p.db.QueryRowContext(ctx,
		`SELECT id, user_id, league_id, name, points FROM teams WHERE id = $1`, teamID,
	).Scan(&t.ID, &t.UserID, &t.LeagueID, &t.Name, &t.Points)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select team: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, `SELECT id, pokemon_id, name, nickname, image, hp, attack, defense,
        special_attack, special_defense, speed, "order", team_id, moves
      FROM pokemon WHERE team_id = $1 ORDER BY "order", id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("select roster: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pk    domain.Pokemon
			moves []byte
		)
		if err := rows.Scan(&pk.ID, &pk.PokemonID, &pk.Name, &pk.Nickname, &pk.Image, &pk.HP, &pk.Attack, &pk.Defense,
			&pk.SpecialAttack, &pk.SpecialDefense, &pk.Speed, &pk.Order, &pk.TeamID, &moves); err != nil {
			return nil, fmt.Errorf("scan pokemon: %w", err)
		}
		if err := json.Unmarshal(moves, &pk.Moves); err != nil {
			return nil, fmt.Errorf("decode moves of pokemon %d: %w", pk.ID, err)
		}
		t.Pokemons = append(t.Pokemons, pk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &t, nil
}

// PutTeam inserts a team with its roster, keeping the given ids. Used by seeding and tests.
func (p *Postgres) PutTeam(ctx context.Context, t *domain.Team) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO teams (id, user_id, league_id, name, points) VALUES ($1,$2,$3,$4,$5)
      ON CONFLICT (id) DO UPDATE SET user_id=EXCLUDED.user_id, league_id=EXCLUDED.league_id,
        name=EXCLUDED.name, points=EXCLUDED.points`,
		t.ID, t.UserID, t.LeagueID, t.Name, t.Points); err != nil {
		return fmt.Errorf("upsert team: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pokemon WHERE team_id = $1`, t.ID); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}
	for _, pk := range t.Pokemons {
		moves, err := json.Marshal(pk.Moves)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO pokemon (id, pokemon_id, name, nickname, image, hp, attack, defense,
            special_attack, special_defense, speed, "order", team_id, moves)
          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			pk.ID, pk.PokemonID, pk.Name, pk.Nickname, pk.Image, pk.HP, pk.Attack, pk.Defense,
			pk.SpecialAttack, pk.SpecialDefense, pk.Speed, pk.Order, t.ID, string(moves)); err != nil {
			return fmt.Errorf("insert pokemon %d: %w", pk.ID, err)
		}
	}
	return tx.Commit()
}

func encodeLists(rec *domain.BattleRecord) (logRaw, turnRaw string, err error) {
	lines := rec.Log
	if lines == nil {
		lines = []string{}
	}
	order := rec.TurnOrder
	if order == nil {
		order = []int64{}
	}
	l, err := json.Marshal(lines)
	if err != nil {
		return "", "", err
	}
	o, err := json.Marshal(order)
	if err != nil {
		return "", "", err
	}
	return string(l), string(o), nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
