package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/watchparty/internal/adapters/events"
	router "github.com/dkeye/watchparty/internal/adapters/http"
	"github.com/dkeye/watchparty/internal/app"
	"github.com/dkeye/watchparty/internal/config"
)

func run(ctx context.Context, f *flags) error {
	cfg, err := config.Load(f.Env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.Port != 0 {
		cfg.Port = f.Port
	}

	var policy app.Policy = app.SkipPolicy{}
	if cfg.KickSlow {
		policy = app.KickPolicy{}
	}

	var sink app.EventSink = app.NopSink{}
	if cfg.NatsURL != "" {
		nc, err := events.Connect(cfg.NatsURL)
		if err != nil {
			return err
		}
		defer nc.Close()
		sink = events.NewNATSSink(nc, cfg.NatsSubject)
		log.Info().Str("url", cfg.NatsURL).Str("subject", cfg.NatsSubject).Msg("publishing playback changes")
	}

	relay := app.NewRelay(app.NewRegistry(clockwork.NewRealClock()), app.NewRoomManager(), policy, sink)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           withCORS(cfg, router.SetupRouter(ctx, cfg, relay)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		wg       conc.WaitGroup
		serveErr error
	)
	wg.Go(func() {
		defer stop()
		log.Info().Str("addr", srv.Addr).Msg("watchparty server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	})

	wg.Go(func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
	})

	wg.Wait()
	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}

func withCORS(cfg *config.Config, h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(h)
}
