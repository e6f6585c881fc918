package app

import (
	"context"
	"log/slog"
	"strings"

	"cropscout/internal/domain/entity"
	"cropscout/internal/domain/port"
	"cropscout/internal/geofence"
)

// CreateFieldInput запрос на создание поля
type CreateFieldInput struct {
	Name     string         `json:"name"`
	CropType string         `json:"crop_type"`
	Polygon  entity.Polygon `json:"polygon_coordinates"`
}

// FieldService управление полями
type FieldService struct {
	repo   port.SpotRepository
	images port.ImageStore
	guard  *FieldGuard
	log    *slog.Logger
}

// NewFieldService создаёт сервис полей
func NewFieldService(repo port.SpotRepository, images port.ImageStore, guard *FieldGuard, log *slog.Logger) *FieldService {
	return &FieldService{repo: repo, images: images, guard: guard, log: log}
}

// CreateField проверяет полигон и сохраняет поле
func (s *FieldService) CreateField(ctx context.Context, in CreateFieldInput) (*entity.Field, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, entity.NewError(entity.CodeInvalidRequest, "name is required", nil)
	}
	if err := geofence.ValidatePolygon(in.Polygon); err != nil {
		return nil, entity.NewError(entity.CodeInvalidPolygon, "invalid polygon", err)
	}
	crop := strings.TrimSpace(in.CropType)
	if crop == "" {
		crop = entity.DefaultCropType
	}

	f := &entity.Field{Name: name, CropType: crop, Polygon: in.Polygon}
	if err := s.repo.CreateField(ctx, f); err != nil {
		return nil, entity.NewError(entity.CodePersistenceError, "failed to create field", err)
	}
	s.log.Info("field created", "field_id", f.ID, "vertices", len(f.Polygon))
	return f, nil
}

// ListFields все поля без точек
func (s *FieldService) ListFields(ctx context.Context) ([]entity.Field, error) {
	fields, err := s.repo.ListFields(ctx)
	if err != nil {
		return nil, entity.NewError(entity.CodePersistenceError, "failed to list fields", err)
	}
	return fields, nil
}

// GetField поле с точками и анализами
func (s *FieldService) GetField(ctx context.Context, fieldID string) (*entity.Field, error) {
	f, err := s.repo.FetchField(ctx, fieldID)
	if err != nil {
		return nil, storageError(err, entity.CodeFieldNotFound, "field not found")
	}
	return f, nil
}

// FieldMetrics площадь, периметр, центроид и габариты поля
func (s *FieldService) FieldMetrics(ctx context.Context, fieldID string) (*entity.FieldMetrics, error) {
	f, err := s.GetField(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	m := geofence.Metrics(f.Polygon)
	return &m, nil
}

// DeleteField удаляет поле вместе с точками и анализами. Пока по полю идёт
// анализ, удаление отклоняется с field_busy.
func (s *FieldService) DeleteField(ctx context.Context, fieldID string) error {
	if !s.guard.BeginDelete(fieldID) {
		return entity.NewError(entity.CodeFieldBusy, "field has analyses in progress", nil)
	}
	defer s.guard.EndDelete(fieldID)

	handles, err := s.repo.DeleteField(ctx, fieldID)
	if err != nil {
		return storageError(err, entity.CodeFieldNotFound, "field not found")
	}
	for _, h := range handles {
		if err := s.images.Delete(ctx, h); err != nil {
			s.log.Error("failed to delete spot image", "field_id", fieldID, "handle", h, "error", err)
		}
	}
	s.log.Info("field deleted", "field_id", fieldID, "spots", len(handles))
	return nil
}
