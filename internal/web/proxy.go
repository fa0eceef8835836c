package web

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	openAIAPI       = "https://api.openai.com"
	anthropicAPI    = "https://api.anthropic.com"
	anthropicAPIVer = "2023-06-01"

	defaultProxyRate  = 5
	defaultProxyBurst = 20
)

// strippedHeaders never reach the upstream from the browser.
var strippedHeaders = []string{"Authorization", "X-Api-Key", "Cookie"}

// ProxyTarget is an upstream API reachable under /proxy/<Name>/ with
// credentials injected server-side.
type ProxyTarget struct {
	Name    string
	URL     *url.URL
	Headers map[string]string
}

// OpenAIProxy returns the proxy target for the OpenAI API. An empty
// baseURL selects the public API.
func OpenAIProxy(baseURL, apiKey string) (ProxyTarget, error) {
	u, err := parseBase(baseURL, openAIAPI)
	if err != nil {
		return ProxyTarget{}, err
	}
	return ProxyTarget{
		Name:    "openai",
		URL:     u,
		Headers: map[string]string{"Authorization": "Bearer " + apiKey},
	}, nil
}

// AnthropicProxy returns the proxy target for the Anthropic API. An empty
// baseURL selects the public API.
func AnthropicProxy(baseURL, apiKey string) (ProxyTarget, error) {
	u, err := parseBase(baseURL, anthropicAPI)
	if err != nil {
		return ProxyTarget{}, err
	}
	return ProxyTarget{
		Name: "anthropic",
		URL:  u,
		Headers: map[string]string{
			"X-Api-Key":         apiKey,
			"Anthropic-Version": anthropicAPIVer,
		},
	}, nil
}

func parseBase(baseURL, def string) (*url.URL, error) {
	if baseURL == "" {
		baseURL = def
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy target %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy target %q must be an absolute URL", baseURL)
	}
	return u, nil
}

// proxyLimiter returns the shared per-client limiter for proxy routes, or a
// pass-through middleware when limiting is disabled.
func (s *Server) proxyLimiter() echo.MiddlewareFunc {
	if s.proxyRate <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      s.proxyRate,
		Burst:     s.proxyBurst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, id string, err error) error {
			s.logger.Warn("proxy rate limit exceeded", "client", id, "path", c.Request().URL.Path)
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

func (s *Server) registerProxy(t ProxyTarget, limit echo.MiddlewareFunc) {
	prefix := "/proxy/" + t.Name
	s.e.Group(prefix,
		limit,
		injectCredentials(t),
		middleware.ProxyWithConfig(middleware.ProxyConfig{
			Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{{Name: t.Name, URL: t.URL}}),
			Rewrite:  map[string]string{prefix + "/*": "/$1"},
		}),
	)
	s.logger.Info("proxy enabled", "prefix", prefix, "target", t.URL.Host)
}

// injectCredentials replaces any client credential headers with the
// server-held ones and points Host at the upstream.
func injectCredentials(t ProxyTarget) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			for _, h := range strippedHeaders {
				req.Header.Del(h)
			}
			for k, v := range t.Headers {
				req.Header.Set(k, v)
			}
			req.Host = t.URL.Host
			return next(c)
		}
	}
}
