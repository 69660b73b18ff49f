package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	router "github.com/dkeye/webcat/internal/adapters/http"
	"github.com/dkeye/webcat/internal/adapters/rtc"
	"github.com/dkeye/webcat/internal/adapters/signal"
	"github.com/dkeye/webcat/internal/app"
	"github.com/dkeye/webcat/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

func serve(ctx context.Context, opts *rootOptions) error {
	store, cfg, err := opts.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	iceServers, err := rtc.ICEServers(cfg.ICEServers)
	if err != nil {
		return err
	}
	policy, err := signal.PolicyByName(cfg.Backpressure)
	if err != nil {
		return err
	}
	hub := signal.NewHub(signal.Options{
		QueueSize: cfg.SendQueue,
		ReadLimit: cfg.ReadLimit,
		Policy:    policy,
	})

	env := &core.Env{
		Directory:      hub,
		Store:          store,
		Catalog:        core.NewCatalog(),
		Videos:         app.NewVideoChannelManager(),
		ICEServers:     iceServers,
		PingPeriod:     cfg.PingPeriod,
		MaxMissedPings: cfg.MaxMissedPings,
	}
	users := app.NewUserManager(env)
	tasks := app.NewTaskManager(cfg.TaskPollInterval)
	svc := &app.Service{
		Env:             env,
		Users:           users,
		Tasks:           tasks,
		Limiter:         app.NewLoginRateLimiter(cfg.LoginRateLimit, cfg.LoginRateInterval),
		SystemInfoDelay: cfg.SystemInfoDelay,
	}
	for topic, fn := range svc.TopicHandlers() {
		hub.Handle(topic, fn)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.SetupRouter(ctx, cfg, svc, hub),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("webcat server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return users.RunPingLoop(ctx, cfg.PingPeriod) })
	g.Go(func() error { return tasks.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	err = g.Wait()
	log.Info().Msg("Server exited gracefully")
	return err
}
