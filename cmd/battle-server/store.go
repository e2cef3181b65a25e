package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/park285/pokeleague/internal/battle"
	"github.com/park285/pokeleague/internal/battlestore"
	"github.com/park285/pokeleague/internal/config"
	"github.com/park285/pokeleague/internal/obslog"
)

type store interface {
	battle.Repository
	battlestore.TeamWriter
}

// openStore builds the configured backend. The returned func releases it.
func openStore(cfg *config.AppConfig) (store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pg, err := battlestore.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	case config.BackendRedis:
		rd, err := battlestore.NewRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return rd.WithTTL(cfg.RedisBattleTTL), func() { _ = rd.Close() }, nil
	default:
		return battlestore.NewMemory(), func() {}, nil
	}
}

func seedFromFile(ctx context.Context, w battlestore.TeamWriter, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	teams, err := battlestore.ParseSeed(f)
	if err != nil {
		return err
	}
	if err := battlestore.Seed(ctx, w, teams); err != nil {
		return err
	}
	obslog.L().Info("seed_loaded", zap.String("path", path), zap.Int("teams", len(teams)))
	return nil
}
