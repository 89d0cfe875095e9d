// Package http serves the public chat through which users talk to the model.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"station/internal/config"
	"station/internal/logging"
	"station/internal/metrics"
	"station/internal/store"
)

// Deps are the collaborators of the chat server.
type Deps struct {
	Stores   *store.Stores
	Settings config.Settings
	Metrics  *metrics.Metrics
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   logging.Logger
	Clock    func() time.Time
}

// Server is the chat web server.
type Server struct {
	deps    Deps
	engine  *gin.Engine
	logger  logging.Logger
	now     func() time.Time
	limiter *rateLimiter
}

// NewServer builds the gin engine and registers every route.
func NewServer(deps Deps) (*Server, error) {
	if deps.Stores == nil {
		return nil, errors.New("chat server: stores are required")
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	engine.Use(gin.Recovery())
	engine.Use(cors.New(corsConfig(deps.Settings.Website.AllowedOrigins)))

	s := &Server{
		deps:   deps,
		engine: engine,
		logger: logging.Component(deps.Logger, "chat-server"),
		now:    now,
		limiter: newRateLimiter(RateLimitConfig{
			RequestsPerMinute: deps.Settings.Website.RateLimit.PerMinute,
			Burst:             deps.Settings.Website.RateLimit.Burst,
		}, now),
	}
	engine.Use(s.observe())
	s.routes()
	return s, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type"}
	allowAll := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) routes() {
	s.engine.GET("/hashcode", s.handleHashcode)
	s.engine.GET("/chat", s.handleChat)
	s.engine.GET("/settings", s.handleSettings)
	s.engine.POST("/message", s.rateLimit(), s.handleMessage)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.deps.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	addr := fmt.Sprintf(":%d", s.deps.Settings.Website.ServerPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Web server listening on port %d [http://localhost%s]", s.deps.Settings.Website.ServerPort, addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("chat server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("chat server shutdown: %w", err)
	}
	s.logger.Info("Web server stopped")
	return <-errCh
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := s.now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.deps.Metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), s.now().Sub(started))
	}
}
