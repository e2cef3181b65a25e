package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/pokeleague/internal/api"
	"github.com/park285/pokeleague/internal/battle"
	"github.com/park285/pokeleague/internal/config"
	"github.com/park285/pokeleague/internal/msgcat"
	"github.com/park285/pokeleague/internal/notify"
	"github.com/park285/pokeleague/internal/obslog"
	"github.com/park285/pokeleague/internal/session"
	"github.com/park285/pokeleague/internal/transport"
)

var serveSeed string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the websocket and HTTP servers",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveSeed, "seed", "", "YAML roster file loaded into the store before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	defer closeRepo()
	if serveSeed != "" {
		if err := seedFromFile(ctx, repo, serveSeed); err != nil {
			return err
		}
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("message catalog: %w", err)
	}

	sessions := session.NewRegistry()
	hub := transport.NewHub()
	mgr, err := battle.NewManager(battle.Config{
		Repo:            repo,
		Notifier:        notify.New(sessions, hub),
		Catalog:         cat,
		WinPoints:       cfg.WinPoints,
		PersistRetryMax: cfg.PersistRetryMax,
		WriteTimeout:    cfg.WriteTimeout,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", transport.NewServer(mgr, sessions, hub, transport.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.AuthJWTSecret,
		Catalog:        cat,
	}))
	wsSrv := &http.Server{Addr: cfg.WSAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	apiSrv := &fasthttp.Server{
		Handler:      api.NewServer(mgr, cat).Handler,
		Name:         "pokeleague",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		obslog.L().Info("ws_listen", zap.String("addr", cfg.WSAddr))
		if err := wsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ws server: %w", err)
		}
	}()
	go func() {
		obslog.L().Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		if err := apiSrv.ListenAndServe(cfg.HTTPAddr); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		obslog.L().Info("shutdown_signal")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	hub.CloseAll()
	if err := wsSrv.Shutdown(shutdownCtx); err != nil {
		obslog.L().Warn("ws_shutdown_error", zap.Error(err))
	}
	if err := apiSrv.ShutdownWithContext(shutdownCtx); err != nil {
		obslog.L().Warn("http_shutdown_error", zap.Error(err))
	}
	if left := mgr.Flush(shutdownCtx); left > 0 {
		obslog.L().Error("shutdown_unsaved_battles", zap.Int("count", left))
	}
	obslog.L().Info("shutdown_complete", zap.Int("live_battles", mgr.Store().Len()))
	_ = obslog.L().Sync()
	return nil
}
