// Package server wires the control plane together: loop, directory,
// broker, desktop, theme registry, and the HTTP/WebSocket surfaces.
package server

import (
	"context"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lumen-os/lumen/server/internal/api/http"
	"github.com/lumen-os/lumen/server/internal/api/middleware"
	"github.com/lumen-os/lumen/server/internal/api/ws"
	"github.com/lumen-os/lumen/server/internal/domain/desktop"
	"github.com/lumen-os/lumen/server/internal/domain/theme"
	"github.com/lumen-os/lumen/server/internal/gfx"
	"github.com/lumen-os/lumen/server/internal/infrastructure/config"
	"github.com/lumen-os/lumen/server/internal/infrastructure/logging"
	"github.com/lumen-os/lumen/server/internal/infrastructure/monitoring"
	"github.com/lumen-os/lumen/server/internal/session"
	"github.com/lumen-os/lumen/server/internal/shm"
)

// maintenanceInterval paces lease expiry and gauge refresh.
const maintenanceInterval = time.Second

// Server owns the process-wide state of the display server.
type Server struct {
	router    *gin.Engine
	loop      *session.Loop
	directory *session.Directory
	desktop   *desktop.Desktop
	broker    *shm.Broker
	themes    *theme.Registry
	logger    *zap.Logger
	config    *config.Config
	metrics   *monitoring.Metrics

	httpServer *nethttp.Server
	stopMaint  chan struct{}
}

// NewServer creates a server instance from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info("initializing display server",
		zap.String("port", cfg.Server.Port),
		zap.Int("screen_width", cfg.Screen.Width),
		zap.Int("screen_height", cfg.Screen.Height),
	)

	metrics := monitoring.NewMetrics()
	loop := session.NewLoop(logger)
	broker := shm.NewBroker(cfg.Broker.LeaseTTL)

	themes := theme.NewRegistry()
	if cfg.Themes.Dir != "" {
		if err := themes.LoadDir(cfg.Themes.Dir); err != nil {
			logger.Warn("failed to load theme directory",
				zap.String("dir", cfg.Themes.Dir), zap.Error(err))
		}
	}
	if !themes.SetActive(cfg.Themes.Active) {
		logger.Warn("unknown active theme, keeping default",
			zap.String("theme", cfg.Themes.Active))
	}

	screen := gfx.MakeRect(0, 0, cfg.Screen.Width, cfg.Screen.Height)
	desk := desktop.New(screen, broker, desktop.NopCompositor{}, logger)
	wallpapers := desktop.NewWallpaperLoader(loop.Post, logger)
	directory := session.NewDirectory(loop, logger, metrics)

	deps := session.Deps{
		Desktop:    desk,
		Broker:     broker,
		Themes:     themes,
		Wallpapers: wallpapers,
		Logger:     logger,
		Metrics:    metrics,
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := http.NewHandlers(loop, directory, desk, broker, themes)
	wsHandler := ws.NewHandler(loop, directory, deps, metrics, logger)

	router.GET("/health", handlers.Health)
	router.GET("/stats", handlers.Stats)
	router.GET("/sessions", handlers.Sessions)
	router.GET("/themes", handlers.Themes)
	router.GET("/themes/:name", handlers.Theme)
	router.GET("/session", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("server initialized")

	return &Server{
		router:    router,
		loop:      loop,
		directory: directory,
		desktop:   desk,
		broker:    broker,
		themes:    themes,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
		stopMaint: make(chan struct{}),
	}, nil
}

// Run starts the control loop, the maintenance ticker, and the HTTP
// listener. It blocks until the listener stops.
func (s *Server) Run() error {
	s.loop.Start()
	go s.maintain()

	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("listening", zap.String("addr", addr))

	s.httpServer = &nethttp.Server{
		Addr:    addr,
		Handler: s.router,
	}
	err := s.httpServer.ListenAndServe()
	if err == nethttp.ErrServerClosed {
		return nil
	}
	return err
}

// maintain expires buffer leases and refreshes the control plane
// gauges on a fixed tick. The desktop read runs as a loop task.
func (s *Server) maintain() {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			expired := s.broker.ExpireLeases(time.Now())
			if expired > 0 {
				s.metrics.LeasesExpired.Add(float64(expired))
				s.logger.Debug("expired buffer leases", zap.Int("count", expired))
			}
			stats := s.broker.Stats()
			s.metrics.BuffersLive.Set(float64(stats.Buffers))
			s.metrics.LeasesLive.Set(float64(stats.Leases))
			s.loop.Post(func() {
				s.metrics.WindowsLive.Set(float64(s.desktop.Stats().Windows))
			})
		case <-s.stopMaint:
			return
		}
	}
}

// Close gracefully shuts the server down: stop accepting connections,
// then stop the maintenance ticker and drain the control loop.
func (s *Server) Close() error {
	s.logger.Info("shutting down")

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("http shutdown failed", zap.Error(err))
		}
	}
	close(s.stopMaint)
	s.loop.Stop()
	s.logger.Info("shutdown complete")
	_ = s.logger.Sync()
	return nil
}
