package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cropscout/internal/domain/entity"
	"cropscout/internal/domain/port"
	"cropscout/internal/metrics"
	"cropscout/internal/modelcache"
	"cropscout/internal/modelsel"
	"cropscout/internal/normalize"
	"cropscout/internal/quality"
)

// Analyzer классификация снимка: проверка качества, выбор модели,
// инференс с таймаутом и нормализация результата.
type Analyzer struct {
	gate       *quality.Gate
	models     port.ModelProvider
	cache      *modelcache.Cache
	prep       port.Preprocessor
	norm       *normalize.Normalizer
	preference []string
	timeout    time.Duration
	now        func() time.Time
}

// AnalyzerConfig настройки классификации
type AnalyzerConfig struct {
	Preference       []string
	InferenceTimeout time.Duration
}

// NewAnalyzer собирает классификатор
func NewAnalyzer(gate *quality.Gate, models port.ModelProvider, cache *modelcache.Cache,
	prep port.Preprocessor, norm *normalize.Normalizer, cfg AnalyzerConfig) *Analyzer {
	if cfg.Preference == nil {
		cfg.Preference = modelsel.DefaultPreference
	}
	if cfg.InferenceTimeout <= 0 {
		cfg.InferenceTimeout = 2 * time.Minute
	}
	return &Analyzer{
		gate:       gate,
		models:     models,
		cache:      cache,
		prep:       prep,
		norm:       norm,
		preference: cfg.Preference,
		timeout:    cfg.InferenceTimeout,
		now:        time.Now,
	}
}

// Models список развёрнутых моделей
func (a *Analyzer) Models(ctx context.Context) ([]entity.ModelDescriptor, error) {
	return a.models.ListAvailable(ctx)
}

// Preference действующий порядок предпочтения моделей
func (a *Analyzer) Preference() []string { return a.preference }

// analyze из состояния VALIDATED доводит конвейер до NORMALIZED или QUALITY_REJECTED
func (a *Analyzer) analyze(ctx context.Context, r *run, image []byte, requested, cropType string) (*entity.AnalysisResult, error) {
	start := a.now()
	report := a.gate.Assess(image)

	if !report.Usable {
		r.to(entity.StateQualityRejected)
		r.log.Info("image rejected by quality gate",
			"laplacian_variance", report.LaplacianVariance,
			"mean_brightness", report.MeanBrightness,
		)
		elapsed := a.now().Sub(start).Milliseconds()
		return &entity.AnalysisResult{
			Status:           entity.StatusUnusableImage,
			HealthLabel:      entity.HealthUnknown,
			Confidence:       0,
			Findings:         entity.EmptyFindings(),
			Quality:          report.Flags(),
			ModelVersion:     entity.ModelNone,
			ProcessingTimeMs: &elapsed,
			AnalyzedAt:       a.now().UTC(),
		}, nil
	}
	r.to(entity.StateQualityAccepted)

	available, err := a.models.ListAvailable(ctx)
	if err != nil {
		return nil, r.fail(entity.StateAnalysisFailed, entity.CodeAnalysisFailure, "failed to list models", err)
	}
	name, err := modelsel.SelectRequested(available, requested, a.preference)
	if err != nil {
		if errors.Is(err, modelsel.ErrNoModelsAvailable) {
			return nil, r.fail(entity.StateAnalysisFailed, entity.CodeNoModelsAvailable, "no models available", err)
		}
		return nil, r.fail(entity.StateAnalysisFailed, entity.CodeAnalysisFailure, "model selection failed", err)
	}
	r.to(entity.StateInferring)
	log := r.log.With("model", name)

	ictx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	handle, err := a.cache.Get(ictx, name)
	if err != nil {
		return nil, r.fail(entity.StateAnalysisFailed, entity.CodeAnalysisFailure, "failed to load model", err)
	}
	input, err := a.prep.Preprocess(image)
	if err != nil {
		return nil, r.fail(entity.StateAnalysisFailed, entity.CodeAnalysisFailure, "failed to preprocess image", err)
	}

	inferStart := a.now()
	probs, err := a.infer(ictx, handle, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("inference exceeded %s: %w", a.timeout, err)
		}
		return nil, r.fail(entity.StateAnalysisFailed, entity.CodeAnalysisFailure, "inference failed", err)
	}
	metrics.InferenceDurationMs.WithLabelValues(name).Observe(float64(a.now().Sub(inferStart).Milliseconds()))

	out := a.norm.Normalize(probs, cropType)
	r.to(entity.StateNormalized)
	elapsed := a.now().Sub(start).Milliseconds()
	log.Debug("analysis normalized", "health_label", out.HealthLabel, "confidence", out.Confidence)

	return &entity.AnalysisResult{
		Status:           entity.StatusOK,
		HealthLabel:      out.HealthLabel,
		Confidence:       out.Confidence,
		Findings:         out.Findings,
		Quality:          report.Flags(),
		ModelVersion:     name,
		ProcessingTimeMs: &elapsed,
		AnalyzedAt:       a.now().UTC(),
	}, nil
}

// infer не даёт зависшему провайдеру удержать запрос дольше таймаута
func (a *Analyzer) infer(ctx context.Context, h *entity.ModelHandle, input []byte) (map[string]float64, error) {
	type result struct {
		probs map[string]float64
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := a.models.Infer(ctx, h, input)
		ch <- result{p, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.probs, res.err
	}
}

// AnalyzeImage классифицирует снимок без создания точки
func (a *Analyzer) AnalyzeImage(ctx context.Context, log *slog.Logger, image []byte, model, cropType string) (*entity.AnalysisResult, error) {
	r := newRun(log)
	if len(image) == 0 {
		return nil, r.reject(entity.CodeNoImageProvided, "no image provided", nil)
	}
	r.to(entity.StateValidated)
	return a.analyze(ctx, r, image, model, cropType)
}
