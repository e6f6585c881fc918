package container

import (
	"log/slog"

	app "cropscout/internal/application"
	"cropscout/internal/domain/port"
	"cropscout/internal/infrastructure/vision"
	"cropscout/internal/metrics"
	"cropscout/internal/modelcache"
	"cropscout/internal/normalize"
	"cropscout/internal/quality"
)

// Deps внешние адаптеры, из которых собираются сервисы
type Deps struct {
	Spots  port.SpotRepository
	Users  port.UserRepository
	Images port.ImageStore
	Models port.ModelProvider
	Vision vision.Engine

	// нулевые значения заменяются порогами по умолчанию
	Quality          quality.Thresholds
	Analysis         app.AnalyzerConfig
	FindingThreshold float64

	Log *slog.Logger
}

type Container struct {
	Repo     port.SpotRepository
	Cache    *modelcache.Cache
	Analyzer *app.Analyzer

	FieldService    *app.FieldService
	SpotService     *app.SpotService
	SummaryService  *app.SummaryService
	UserService     *app.UserService
	ScoutingService *app.ScoutingService
}

func New(d Deps) *Container {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	cache := modelcache.New(d.Models, modelcache.WithObserver(func(name string, err error) {
		result := "ok"
		if err != nil {
			result = "error"
			log.Error("model load failed", "model", name, "error", err)
		} else {
			log.Info("model loaded", "model", name)
		}
		metrics.ModelLoadsTotal.WithLabelValues(name, result).Inc()
	}))

	thresholds := d.Quality
	if thresholds == (quality.Thresholds{}) {
		thresholds = quality.DefaultThresholds()
	}
	findingThreshold := d.FindingThreshold
	if findingThreshold == 0 {
		findingThreshold = normalize.DefaultThreshold
	}
	analyzer := app.NewAnalyzer(
		quality.NewGate(d.Vision, thresholds),
		d.Models,
		cache,
		d.Vision,
		normalize.New(findingThreshold),
		d.Analysis,
	)

	guard := app.NewFieldGuard()
	fieldService := app.NewFieldService(d.Spots, d.Images, guard, log.With("component", "fields"))
	spotService := app.NewSpotService(d.Spots, d.Images, analyzer, guard, log.With("component", "spots"))
	summaryService := app.NewSummaryService(d.Spots)
	userService := app.NewUserService(d.Users)

	return &Container{
		Repo:            d.Spots,
		Cache:           cache,
		Analyzer:        analyzer,
		FieldService:    fieldService,
		SpotService:     spotService,
		SummaryService:  summaryService,
		UserService:     userService,
		ScoutingService: app.NewScoutingService(userService, fieldService, spotService),
	}
}
