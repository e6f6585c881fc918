package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cropscout/internal/domain/entity"
	"cropscout/internal/domain/port"
	"cropscout/internal/geofence"
	"cropscout/internal/metrics"
)

// CreateSpotInput запрос на создание точки наблюдения
type CreateSpotInput struct {
	FieldID   string
	Latitude  float64
	Longitude float64
	Image     []byte
	ImageName string
	Notes     string
	Device    string
	ModelName string    // пусто: выбор по списку предпочтений
	Timestamp time.Time // пусто: время приёма
}

// SpotService создаёт точки наблюдения: геозона, анализ снимка, сохранение.
// Точка и её анализ сохраняются вместе или не сохраняются вовсе.
type SpotService struct {
	repo     port.SpotRepository
	images   port.ImageStore
	analyzer *Analyzer
	guard    *FieldGuard
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewSpotService создаёт сервис точек
func NewSpotService(repo port.SpotRepository, images port.ImageStore, analyzer *Analyzer, guard *FieldGuard, log *slog.Logger) *SpotService {
	return &SpotService{
		repo:     repo,
		images:   images,
		analyzer: analyzer,
		guard:    guard,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// CreateSpot проводит точку через конвейер состояний. Ошибка всегда *entity.Error
// с кодом и состоянием, в котором конвейер остановился.
func (s *SpotService) CreateSpot(ctx context.Context, in CreateSpotInput) (*entity.Spot, *entity.AnalysisResult, error) {
	spotID := s.newID()
	log := s.log.With("field_id", in.FieldID, "spot_id", spotID)
	r := newRun(log)

	spot, analysis, err := s.createSpot(ctx, r, spotID, in)
	if err != nil {
		metrics.SpotFailuresTotal.WithLabelValues(string(entity.CodeOf(err))).Inc()
		level := slog.LevelInfo
		if !entity.CodeOf(err).IsValidation() {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "spot rejected", "state", r.state, "error", err)
		return nil, nil, err
	}

	r.to(entity.StateResponded)
	metrics.SpotsCreatedTotal.WithLabelValues(string(analysis.Status)).Inc()
	log.Info("spot created", "status", analysis.Status, "health_label", analysis.HealthLabel, "model", analysis.ModelVersion)
	return spot, analysis, nil
}

func (s *SpotService) createSpot(ctx context.Context, r *run, spotID string, in CreateSpotInput) (*entity.Spot, *entity.AnalysisResult, error) {
	point := entity.Point{Lat: in.Latitude, Lng: in.Longitude}
	if err := geofence.ValidatePoint(point); err != nil {
		return nil, nil, r.reject(entity.CodeInvalidCoordinates, "invalid coordinates", err)
	}
	if len(in.Image) == 0 {
		return nil, nil, r.reject(entity.CodeNoImageProvided, "no image provided", nil)
	}

	if !s.guard.Enter(in.FieldID) {
		return nil, nil, r.reject(entity.CodeFieldBusy, "field is being deleted", nil)
	}
	defer s.guard.Leave(in.FieldID)

	field, err := s.repo.FetchField(ctx, in.FieldID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, nil, r.reject(entity.CodeFieldNotFound, "field not found", err)
		}
		return nil, nil, r.reject(entity.CodePersistenceError, "failed to load field", err)
	}

	inside, err := geofence.IsInside(point, field.Polygon)
	if err != nil {
		return nil, nil, r.fail(entity.StateGeofenceRejected, entity.CodeInvalidPolygon, "field polygon is invalid", err)
	}
	if !inside {
		return nil, nil, r.fail(entity.StateGeofenceRejected, entity.CodeGeofenceViolation, "spot coordinates are outside the field boundary", nil)
	}
	r.to(entity.StateValidated)

	analysis, err := s.analyzer.analyze(ctx, r, in.Image, in.ModelName, field.CropType)
	if err != nil {
		return nil, nil, err
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now().UTC()
	}
	spot := &entity.Spot{
		ID:            spotID,
		FieldID:       field.ID,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		ImageFilename: in.ImageName,
		Timestamp:     ts,
		Device:        in.Device,
		Notes:         in.Notes,
	}

	handle, err := s.images.Save(ctx, in.Image, field.ID, spotID, in.ImageName)
	if err != nil {
		return nil, nil, r.fail(entity.StatePersistenceFailed, entity.CodePersistenceError, "failed to store image", err)
	}
	spot.ImageHandle = handle
	analysis.SpotID = spotID

	if err := s.repo.PersistSpotAndAnalysis(ctx, spot, analysis); err != nil {
		// снимок без записи в базе не нужен; откат не должен зависеть от отменённого запроса
		if derr := s.images.Delete(context.WithoutCancel(ctx), handle); derr != nil {
			r.log.Error("failed to roll back stored image", "handle", handle, "error", derr)
		}
		return nil, nil, r.fail(entity.StatePersistenceFailed, entity.CodePersistenceError, "failed to persist spot", err)
	}
	r.to(entity.StatePersisted)

	spot.Analysis = analysis
	return spot, analysis, nil
}

// GetSpot возвращает точку с анализом
func (s *SpotService) GetSpot(ctx context.Context, spotID string) (*entity.Spot, error) {
	spot, err := s.repo.GetSpot(ctx, spotID)
	if err != nil {
		return nil, storageError(err, entity.CodeNotFound, "spot not found")
	}
	return spot, nil
}

// SpotImage возвращает снимок точки
func (s *SpotService) SpotImage(ctx context.Context, spotID string) (*entity.Spot, []byte, error) {
	spot, err := s.GetSpot(ctx, spotID)
	if err != nil {
		return nil, nil, err
	}
	if spot.ImageHandle == "" {
		return nil, nil, entity.NewError(entity.CodeNotFound, "spot has no image", nil)
	}
	data, err := s.images.Load(ctx, spot.ImageHandle)
	if err != nil {
		return nil, nil, entity.NewError(entity.CodeNotFound, "image not available", err)
	}
	return spot, data, nil
}

// DeleteSpot удаляет точку с анализом; снимок удаляется после фиксации транзакции
func (s *SpotService) DeleteSpot(ctx context.Context, spotID string) error {
	spot, err := s.repo.DeleteSpot(ctx, spotID)
	if err != nil {
		return storageError(err, entity.CodeNotFound, "spot not found")
	}
	if spot.ImageHandle != "" {
		if err := s.images.Delete(ctx, spot.ImageHandle); err != nil {
			s.log.Error("failed to delete spot image", "spot_id", spotID, "handle", spot.ImageHandle, "error", err)
		}
	}
	s.log.Info("spot deleted", "spot_id", spotID, "field_id", spot.FieldID)
	return nil
}

// AnalyzeImage классифицирует снимок без сохранения
func (s *SpotService) AnalyzeImage(ctx context.Context, image []byte, model, cropType string) (*entity.AnalysisResult, error) {
	return s.analyzer.AnalyzeImage(ctx, s.log.With("op", "analyze"), image, model, cropType)
}

// storageError переводит ошибку хранилища в ошибку прикладного слоя
func storageError(err error, notFoundCode entity.ErrorCode, msg string) error {
	if errors.Is(err, port.ErrNotFound) {
		return entity.NewError(notFoundCode, msg, err)
	}
	return entity.NewError(entity.CodePersistenceError, "storage failure", err)
}
