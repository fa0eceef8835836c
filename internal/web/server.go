// Package web serves the cost dashboard: JSON endpoints over the combined
// cost series, a credential-injecting proxy to the provider APIs, and an
// optional single-page UI.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/murata-lab/costwatch/internal/cache"
	"github.com/murata-lab/costwatch/internal/costs"
)

// CostSource is the combined cost service the API reads from.
type CostSource interface {
	Availability() costs.Availability
	DailyCosts(ctx context.Context, days int) costs.DailyResult
	MonthlyCosts(ctx context.Context, months int) costs.MonthlyResult
	CurrentMonthSummary(ctx context.Context) costs.Summary
	ModelBreakdown(ctx context.Context, start, end time.Time) ([]costs.ModelCost, error)
}

// Server is the dashboard HTTP server.
type Server struct {
	e       *echo.Echo
	src     CostSource
	cache   cache.Cache
	ttl     time.Duration
	uiDir   string
	proxies []ProxyTarget
	// per client IP across all proxy routes
	proxyRate  rate.Limit
	proxyBurst int
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Option configures Server.
type Option func(*Server)

// WithCache memoizes API responses in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Server) {
		s.cache = c
		s.ttl = ttl
	}
}

// WithUIDir serves a built single-page app from dir.
func WithUIDir(dir string) Option {
	return func(s *Server) {
		s.uiDir = dir
	}
}

// WithProxy forwards /proxy/<name>/* to the target with credentials.
func WithProxy(t ProxyTarget) Option {
	return func(s *Server) {
		s.proxies = append(s.proxies, t)
	}
}

// WithProxyRateLimit limits each client to perSecond proxied requests with
// the given burst. A non-positive perSecond disables the limit.
func WithProxyRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.proxyRate = rate.Limit(perSecond)
		s.proxyBurst = burst
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithNowFunc sets a custom time source (for testing).
func WithNowFunc(f func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = f
	}
}

// New creates a Server with all routes registered.
func New(src CostSource, opts ...Option) *Server {
	s := &Server{
		e:       echo.New(),
		src:     src,
		ttl:        cache.DefaultTTL,
		proxyRate:  defaultProxyRate,
		proxyBurst: defaultProxyBurst,
		logger:     slog.Default(),
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")

	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s.routes()
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler { return s.e }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", "addr", addr, "providers", s.src.Availability().Signature())
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) routes() {
	s.e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := s.e.Group("/api")
	api.GET("/providers", s.handleProviders)
	api.GET("/costs/summary", s.handleSummary)
	api.GET("/costs/daily", s.handleDaily)
	api.GET("/costs/monthly", s.handleMonthly)
	api.GET("/anthropic/models", s.handleModels)

	if len(s.proxies) > 0 {
		limit := s.proxyLimiter()
		for _, t := range s.proxies {
			s.registerProxy(t, limit)
		}
	}

	s.registerUI()
}

// registerUI serves a built Vite app when uiDir holds index.html. Unknown
// non-API paths fall back to index.html for client-side routing.
func (s *Server) registerUI() {
	if s.uiDir == "" {
		return
	}
	indexPath := filepath.Join(s.uiDir, "index.html")
	if fi, err := os.Stat(indexPath); err != nil || fi.IsDir() {
		s.logger.Warn("ui directory has no index.html, not serving UI", "dir", s.uiDir)
		return
	}

	s.e.Static("/", s.uiDir)
	s.e.GET("/", func(c echo.Context) error { return c.File(indexPath) })

	s.e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusNotFound {
			p := c.Request().URL.Path
			if !strings.HasPrefix(p, "/api") && !strings.HasPrefix(p, "/proxy") {
				_ = c.File(indexPath)
				return
			}
		}
		s.e.DefaultHTTPErrorHandler(err, c)
	}
}
