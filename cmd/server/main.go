package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dartopia/darts-server/internal/config"
	"github.com/dartopia/darts-server/internal/history"
	"github.com/dartopia/darts-server/internal/httpapi"
	"github.com/dartopia/darts-server/internal/registry"
	"github.com/dartopia/darts-server/internal/session"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()

	var recorder session.Recorder
	if cfg.DatabaseURL != "" {
		store, err := history.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("opening history store", zap.Error(err))
		}
		recorder = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New(ctx, registry.Options{
		IdleTimeout: cfg.IdleTimeout,
		Recorder:    recorder,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(reg, cfg.Origins, log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
