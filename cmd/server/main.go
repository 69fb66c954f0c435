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

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/cyberwar-backend/internal/config"
	"github.com/DoyleJ11/cyberwar-backend/internal/httpapi"
	"github.com/DoyleJ11/cyberwar-backend/internal/hub"
	"github.com/DoyleJ11/cyberwar-backend/internal/logging"
	"github.com/DoyleJ11/cyberwar-backend/internal/registry"
	"github.com/DoyleJ11/cyberwar-backend/internal/session"
	"github.com/DoyleJ11/cyberwar-backend/internal/ws"
)

const shutdownGrace = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, ignoreSyncErr(log.Sync())) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, log.Named("hub"))
	room := session.New(ctx, h, session.Options{
		Rules:        cfg.Rules(),
		EndOnAbandon: cfg.AbandonPolicy == config.AbandonEnd,
		Seed:         cfg.SpawnSeed,
		Log:          log.Named("session").With(zap.String("room", cfg.RoomID)),
	})
	reg := registry.New(h, room, log.Named("registry"))

	handler := httpapi.SetupRoutes(httpapi.Deps{
		RoomID:      cfg.RoomID,
		Room:        room,
		Hub:         h,
		Connections: reg.Len,
		WS: ws.Handler(reg, room, ws.Options{
			OriginPatterns: cfg.OriginPatterns,
			RateLimit:      cfg.RateLimit,
			RateBurst:      cfg.RateBurst,
			Log:            log.Named("ws"),
		}),
		Log: log.Named("http"),
	})
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("room", cfg.RoomID),
			zap.Int("capacity", cfg.Capacity),
			zap.Int("duration", cfg.MatchDuration))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		room.Shutdown()
		h.Shutdown()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// Sync on a terminal stderr reports EINVAL or ENOTTY; neither is a real failure.
func ignoreSyncErr(err error) error {
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
