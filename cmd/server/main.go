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

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	router "github.com/dkeye/Chat/internal/adapters/http"
	"github.com/dkeye/Chat/internal/adapters/ratelimit"
	wsignal "github.com/dkeye/Chat/internal/adapters/signal"
	"github.com/dkeye/Chat/internal/adapters/storage"
	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/auth"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/metrics"
)

const sweepPeriod = time.Minute

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Mode == "debug" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func openStore(cfg *config.Config) (core.RoomStore, func(), error) {
	if cfg.Store.Driver != config.StoreBadger {
		return app.NewMemoryStore(), func() {}, nil
	}
	db, err := badger.Open(badger.DefaultOptions(cfg.Store.Path).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, nil, fmt.Errorf("open badger at %s: %w", cfg.Store.Path, err)
	}
	store, err := storage.NewBadgerStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("close badger")
		}
	}
	return store, closeFn, nil
}

// sweep drops idle rate limiters until ctx ends.
func sweep(ctx context.Context, httpPool *ratelimit.Pool, wsLimiter *wsignal.UserRateLimiter) {
	ticker := time.NewTicker(sweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := httpPool.Sweep() + wsLimiter.Sweep()
			log.Debug().Int("removed", n).Msg("rate limiters swept")
		}
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console output until the config says otherwise.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	reg := app.NewRegistry()
	dispatcher := app.NewDispatcher(reg, app.SimplePolicy{}, m)
	o := &orch.Orchestrator{
		Registry:     reg,
		Engine:       app.NewEngine(store, dispatcher, m),
		Events:       dispatcher,
		Store:        store,
		HistoryLimit: cfg.History.DefaultLimit,
		Metrics:      m,
	}

	authority := auth.NewJWTAuthority(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	httpPool := ratelimit.NewPool(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)
	wsLimiter := wsignal.NewUserRateLimiter(cfg.RateLimit.RPS*4, cfg.RateLimit.Burst)
	ctl := wsignal.NewSignalWSController(o, authority, wsLimiter, m, wsignal.Options{
		ReadLimit:      cfg.ReadLimit,
		PingPeriod:     cfg.PingPeriod,
		SendBuffer:     cfg.SendBuffer,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:      o,
		Directory: auth.NewDirectory(cfg.Auth.AdminUsernames),
		Issuer:    authority,
		Verifier:  authority,
		Signal:    ctl,
		Limiter:   httpPool,
		Metrics:   m,
		Gatherer:  promReg,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		log.Info().Str("addr", addr).Str("store", cfg.Store.Driver).Msg("Chat server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	})
	wg.Go(func() { sweep(ctx, httpPool, wsLimiter) })

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	wg.Wait()
	log.Info().Msg("Server exited gracefully")
}
