package handler

import (
	"context"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler reports each named dependency; the service is healthy only when all
// of them answer.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	code := http.StatusOK
	overall := statusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			c.Logger().Warnf("health check %s failed: %v", name, err)
			results[name] = statusFail
			code = http.StatusServiceUnavailable
			overall = statusFail
			continue
		}
		results[name] = statusOK
	}

	return c.JSON(code, map[string]any{
		jsonKeyStatus: overall,
		jsonKeyChecks: results,
	})
}
