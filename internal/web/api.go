package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/murata-lab/costwatch/internal/cache"
	"github.com/murata-lab/costwatch/internal/costs"
)

const (
	defaultDays   = 30
	maxDays       = 180
	defaultMonths = 6
	maxMonths     = 24
)

type modelsResponse struct {
	Configured bool              `json:"configured"`
	Models     []costs.ModelCost `json:"models"`
}

func (s *Server) handleProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, s.src.Availability())
}

func (s *Server) handleSummary(c echo.Context) error {
	return s.cached(c, "summary", "", func(ctx context.Context) (any, bool, error) {
		sum := s.src.CurrentMonthSummary(ctx)
		return sum, sum.Faults.Any(), nil
	})
}

func (s *Server) handleDaily(c echo.Context) error {
	days, err := boundedInt(c, "days", defaultDays, maxDays)
	if err != nil {
		return badRequest(c, err)
	}
	return s.cached(c, "daily", fmt.Sprintf("days=%d", days), func(ctx context.Context) (any, bool, error) {
		res := s.src.DailyCosts(ctx, days)
		return res, res.Faults.Any(), nil
	})
}

func (s *Server) handleMonthly(c echo.Context) error {
	months, err := boundedInt(c, "months", defaultMonths, maxMonths)
	if err != nil {
		return badRequest(c, err)
	}
	return s.cached(c, "monthly", fmt.Sprintf("months=%d", months), func(ctx context.Context) (any, bool, error) {
		res := s.src.MonthlyCosts(ctx, months)
		return res, res.Faults.Any(), nil
	})
}

func (s *Server) handleModels(c echo.Context) error {
	days, err := boundedInt(c, "days", defaultDays, maxDays)
	if err != nil {
		return badRequest(c, err)
	}
	if !s.src.Availability().Anthropic {
		return c.JSON(http.StatusOK, modelsResponse{Configured: false, Models: []costs.ModelCost{}})
	}

	return s.cached(c, "models", fmt.Sprintf("days=%d", days), func(ctx context.Context) (any, bool, error) {
		start, end := costs.DailyWindow(s.nowFunc(), days)
		models, err := s.src.ModelBreakdown(ctx, start, end)
		if errors.Is(err, costs.ErrProviderNotConfigured) {
			return modelsResponse{Configured: false, Models: []costs.ModelCost{}}, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return modelsResponse{Configured: true, Models: models}, false, nil
	})
}

// cached serves the response for (period, params, availability) from the
// cache, computing and storing it on a miss. Degraded responses are
// served but not stored so a recovered provider shows up on the next
// request.
func (s *Server) cached(c echo.Context, period, params string, compute func(ctx context.Context) (any, bool, error)) error {
	ctx := c.Request().Context()
	key := cache.Key(period, params, s.src.Availability().Signature())

	if s.cache != nil {
		b, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache get failed", "key", key, "error", err)
		} else if ok {
			c.Response().Header().Set("X-Cache", "hit")
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	v, degraded, err := compute(ctx)
	if err != nil {
		s.logger.Warn("upstream fetch failed", "period", period, "error", err)
		return c.JSON(http.StatusBadGateway, map[string]any{
			"error":   err.Error(),
			"message": "upstream provider request failed",
		})
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if s.cache != nil && !degraded {
		if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
			s.logger.Warn("cache set failed", "key", key, "error", err)
		}
	}
	c.Response().Header().Set("X-Cache", "miss")
	return c.JSONBlob(http.StatusOK, b)
}

// boundedInt reads an integer query parameter in [1, max], using def when
// absent.
func boundedInt(c echo.Context, name string, def, max int) (int, error) {
	v := def
	if err := echo.QueryParamsBinder(c).Int(name, &v).BindError(); err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < 1 || v > max {
		return 0, fmt.Errorf("%s must be between 1 and %d", name, max)
	}
	return v, nil
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, map[string]any{
		"error":   err.Error(),
		"message": "invalid query parameter",
	})
}
