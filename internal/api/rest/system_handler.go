package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	app "cropscout/internal/application"
	"cropscout/internal/domain/entity"
	"cropscout/internal/modelcache"
)

// pingTimeout время на проверку хранилища в /health
const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	analyzer *app.Analyzer
	cache    *modelcache.Cache
	db       Pinger
}

func NewSystemHandler(analyzer *app.Analyzer, cache *modelcache.Cache, db Pinger) *SystemHandler {
	return &SystemHandler{analyzer: analyzer, cache: cache, db: db}
}

type modelInfo struct {
	entity.ModelDescriptor
	Loaded bool `json:"loaded"`
}

func (h *SystemHandler) Models(c echo.Context) error {
	models, err := h.analyzer.Models(c.Request().Context())
	if err != nil {
		return entity.NewError(entity.CodeAnalysisFailure, "failed to list models", err)
	}
	out := make([]modelInfo, 0, len(models))
	for _, m := range models {
		out = append(out, modelInfo{ModelDescriptor: m, Loaded: h.cache.Loaded(m.Name)})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"models":       out,
		"total_models": len(out),
		"preference":   h.analyzer.Preference(),
	})
}

// Health 200 при доступном хранилище, иначе 503; список моделей информативный
func (h *SystemHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
	defer cancel()

	status, code, database := "healthy", http.StatusOK, "ok"
	if err := h.db.Ping(ctx); err != nil {
		status, code, database = "degraded", http.StatusServiceUnavailable, err.Error()
	}

	available := []string{}
	loaded := []string{}
	if models, err := h.analyzer.Models(ctx); err == nil {
		for _, m := range models {
			available = append(available, m.Name)
			if h.cache.Loaded(m.Name) {
				loaded = append(loaded, m.Name)
			}
		}
	}

	return c.JSON(code, map[string]any{
		"status":           status,
		"database":         database,
		"available_models": available,
		"loaded_models":    loaded,
	})
}
