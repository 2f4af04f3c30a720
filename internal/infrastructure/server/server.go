package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/aedmark/OopisOS-sub001/internal/api/http"
	"github.com/aedmark/OopisOS-sub001/internal/api/middleware"
	"github.com/aedmark/OopisOS-sub001/internal/api/ws"
	"github.com/aedmark/OopisOS-sub001/internal/app"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/config"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/logging"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/monitoring"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/tracing"
)

// Options carries dependencies that tests replace.
type Options struct {
	Logger   *logging.Logger
	Registry *prometheus.Registry
}

// Server wraps the HTTP server and the shell runtime behind it.
type Server struct {
	router  *gin.Engine
	http    *http.Server
	app     *app.App
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	stop    chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewServer creates a server instance.
func NewServer(ctx context.Context, cfg *config.Config, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	logger.Info("Initializing OopisOS server",
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
	)

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	metrics := monitoring.NewMetricsWith(reg)
	tracer := tracing.New("oopis", logger.Component("trace"))

	runtime, err := app.New(ctx, cfg, logger.Component("shell"), metrics)
	if err != nil {
		tracer.Close()
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics, "/metrics"))
	router.Use(middleware.CORS(middleware.CORSForOrigins(cfg.Server.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limit.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limit))
	}

	handlers := apihttp.NewHandlers(runtime.Sessions, logger.Component("http"))
	breaker, _ := runtime.Store.(apihttp.BreakerReporter)
	aggregator := apihttp.NewMetricsAggregator(metrics, runtime.Sessions, cfg.Storage.Backend, breaker)
	wsHandler := ws.NewHandler(runtime.Sessions, metrics, tracer, logger.Component("ws"), cfg.Server.AllowedOrigins)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	router.POST("/sessions/:user/exec", handlers.Exec)
	router.POST("/sessions/:user/save", handlers.Save)
	router.GET("/sessions/:user/jobs", handlers.Jobs)
	router.DELETE("/sessions/:user", handlers.Remove)

	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	router.GET("/metrics/json", aggregator.GetAggregatedMetrics)
	router.Any("/log/level", gin.WrapH(logger.LevelHandler()))

	stop := make(chan struct{})
	go metrics.RunUptime(stop)

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		app:     runtime,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		stop:    stop,
	}, nil
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Close is called.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close drains HTTP traffic, saves every session and closes storage.
// Later calls return the first call's result.
func (s *Server) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { s.closeErr = s.shutdown(ctx) })
	return s.closeErr
}

func (s *Server) shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to stop HTTP server", zap.Error(err))
		errs = append(errs, err)
	}
	close(s.stop)

	if err := s.app.Close(ctx); err != nil {
		s.logger.Error("Failed to close shell runtime", zap.Error(err))
		errs = append(errs, err)
	}
	s.tracer.Close()

	s.logger.Sync()
	return errors.Join(errs...)
}
