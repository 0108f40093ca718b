package http

import (
	"context"

	"github.com/dkeye/Chat/internal/adapters/ratelimit"
	"github.com/dkeye/Chat/internal/adapters/signal"
	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/auth"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Deps is everything the routes need. Gatherer may be nil to hide /metrics.
type Deps struct {
	Orch      *orch.Orchestrator
	Directory *auth.Directory
	Issuer    auth.Issuer
	Verifier  auth.Verifier
	Signal    *signal.SignalWSController
	Limiter   *ratelimit.Pool
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: int(cfg.Auth.TokenTTL.Seconds()), HttpOnly: true})
	r.Use(sessions.Sessions("ChatSessions", store))

	h := &handlers{deps: deps}

	r.GET("/healthz", h.health)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api", RateLimitMiddleware(deps.Limiter, deps.Metrics))
	api.POST("/login", h.login)
	api.GET("/rooms", h.rooms)
	api.GET("/rooms/:roomId/messages", h.messages)
	api.POST("/rooms/:roomId/messages/:messageId/react", h.react)
	api.GET("/presence", h.presence)

	r.GET("/ws", func(c *gin.Context) {
		deps.Signal.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
