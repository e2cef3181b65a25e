package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/pokeleague/internal/battlestore"
	"github.com/park285/pokeleague/internal/config"
	"github.com/park285/pokeleague/internal/obslog"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		pg, err := battlestore.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		obslog.L().Info("migrate_done")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load teams from a YAML roster file into the configured store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.StoreBackend == config.BackendMemory {
			return errors.New("seed needs a durable STORE_BACKEND; use serve --seed for the memory store")
		}
		repo, closeRepo, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeRepo()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return seedFromFile(ctx, repo, args[0])
	},
}
