package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	apikeydomain "github.com/roamkit/roamkit/internal/apikey/domain"
	authdomain "github.com/roamkit/roamkit/internal/auth/domain"
	"github.com/roamkit/roamkit/internal/cache"
	"github.com/roamkit/roamkit/internal/config"
	"github.com/roamkit/roamkit/internal/observability"
	obslogger "github.com/roamkit/roamkit/internal/observability/logger"
	obsmetrics "github.com/roamkit/roamkit/internal/observability/metrics"
	obstracing "github.com/roamkit/roamkit/internal/observability/tracing"
	placedomain "github.com/roamkit/roamkit/internal/place/domain"
	"github.com/roamkit/roamkit/internal/quota"
	"github.com/roamkit/roamkit/internal/ratelimit"
	usagedomain "github.com/roamkit/roamkit/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	authSvc    authdomain.Service
	apiKeySvc  apikeydomain.Service
	placeSvc   placedomain.Service
	usageSvc   usagedomain.Service
	gate       *quota.Gate
	respCache  *cache.ResponseCache
	apiLimiter *ratelimit.APILimiter
	metrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	AuthSvc    authdomain.Service
	APIKeySvc  apikeydomain.Service
	PlaceSvc   placedomain.Service
	UsageSvc   usagedomain.Service
	Gate       *quota.Gate
	RespCache  *cache.ResponseCache
	APILimiter *ratelimit.APILimiter `optional:"true"`
	Metrics    *obsmetrics.Metrics   `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		authSvc:    p.AuthSvc,
		apiKeySvc:  p.APIKeySvc,
		placeSvc:   p.PlaceSvc,
		usageSvc:   p.UsageSvc,
		gate:       p.Gate,
		respCache:  p.RespCache,
		apiLimiter: p.APILimiter,
		metrics:    p.Metrics,
	}

	s.engine.Use(s.ErrorHandlingMiddleware())

	s.registerAuthRoutes()
	s.registerAdminRoutes()
	s.registerWidgetRoutes()
	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.AuthRequired(), s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired())

	admin.GET("/api-keys", s.ListAPIKeys)
	admin.POST("/api-keys", s.IssueAPIKey)
	admin.DELETE("/api-keys/:id", s.RevokeAPIKey)

	admin.GET("/places", s.ListPlaces)
	admin.POST("/places", s.CreatePlace)
	admin.PUT("/places/:id", s.UpdatePlace)
	admin.DELETE("/places/:id", s.DeletePlace)

	admin.GET("/usage/summary", s.UsageSummary)
}

func (s *Server) registerWidgetRoutes() {
	widget := s.engine.Group("/widget", s.APIKeyRequired(), s.ConsumeOpening())

	widget.GET("/config", s.RecordWidgetUsage("index"), s.CacheResponse(), s.WidgetConfig)
	widget.GET("/countries", s.RecordWidgetUsage("index"), s.CacheResponse(), s.WidgetCountries)
	widget.GET("/countries/:country/places", s.RecordWidgetUsage("country"), s.CacheResponse(), s.WidgetCountryPlaces)
	widget.GET("/places/:place", s.RecordWidgetUsage("place"), s.CacheResponse(), s.WidgetPlace)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.APIKeyRequired(), s.RateLimit(), s.RecordAPIUsage())

	api.GET("/countries", s.APICountries)
	api.GET("/places", s.APIPlaces)
}
