// Package rest HTTP API сервиса поверх echo.
package rest

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"cropscout/internal/logger"
	"cropscout/internal/metrics"
)

// MaxBodySize ограничение размера запроса (снимки приходят multipart)
const MaxBodySize = "32M"

type FieldController interface {
	Create(echo.Context) error
	List(echo.Context) error
	Get(echo.Context) error
	Metrics(echo.Context) error
	Delete(echo.Context) error
	Summary(echo.Context) error
	Heatmap(echo.Context) error
}

type SpotController interface {
	Create(echo.Context) error
	Get(echo.Context) error
	Image(echo.Context) error
	Delete(echo.Context) error
	Analyze(echo.Context) error
}

type SystemController interface {
	Models(echo.Context) error
	Health(echo.Context) error
}

// New собирает echo с маршрутами /api и /metrics
func New(log *slog.Logger, fieldCtrl FieldController, spotCtrl SpotController, sysCtrl SystemController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(log)

	e.Use(middleware.Recover())
	e.Use(logger.AccessMiddleware(log))
	e.Use(middleware.BodyLimit(MaxBodySize))

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api")
	api.GET("/health", sysCtrl.Health)
	api.GET("/models", sysCtrl.Models)
	api.POST("/analyze", spotCtrl.Analyze)

	api.POST("/fields", fieldCtrl.Create)
	api.GET("/fields", fieldCtrl.List)

	g := api.Group("/fields/:id")
	g.GET("", fieldCtrl.Get)
	g.DELETE("", fieldCtrl.Delete)
	g.GET("/metrics", fieldCtrl.Metrics)
	g.GET("/analysis-summary", fieldCtrl.Summary)
	g.GET("/heatmap.geojson", fieldCtrl.Heatmap)
	g.POST("/spots", spotCtrl.Create)

	api.GET("/spots/:id", spotCtrl.Get)
	api.GET("/spots/:id/image", spotCtrl.Image)
	api.DELETE("/spots/:id", spotCtrl.Delete)

	return e
}
