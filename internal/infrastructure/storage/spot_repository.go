// Package storage адаптеры хранилищ: поля, точки и анализы в SQL, сессии бота в памяти.
package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cropscout/internal/domain/entity"
	"cropscout/internal/domain/port"
)

// SpotRepository хранилище полей, точек и анализов на gorm
type SpotRepository struct {
	db *gorm.DB
}

// NewSpotRepository создаёт репозиторий поверх открытой базы
func NewSpotRepository(db *gorm.DB) *SpotRepository {
	return &SpotRepository{db: db}
}

func (r *SpotRepository) CreateField(ctx context.Context, f *entity.Field) error {
	rec := fieldRecord(f)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error; err != nil {
		return fmt.Errorf("create field: %w", err)
	}
	f.ID, f.CreatedAt, f.UpdatedAt = rec.ID, rec.CreatedAt, rec.UpdatedAt
	return nil
}

func (r *SpotRepository) ListFields(ctx context.Context) ([]entity.Field, error) {
	var recs []FieldRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	out := make([]entity.Field, 0, len(recs))
	for i := range recs {
		out = append(out, *recs[i].entity())
	}
	return out, nil
}

// FetchField читает поле с точками и анализами одним снимком данных
func (r *SpotRepository) FetchField(ctx context.Context, fieldID string) (*entity.Field, error) {
	var rec FieldRecord
	err := r.db.WithContext(ctx).
		Preload("Spots", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp, id") }).
		Preload("Spots.Analysis").
		First(&rec, "id = ?", fieldID).Error
	if err != nil {
		return nil, notFound("fetch field", err)
	}
	f := rec.entity()
	if f.Spots == nil {
		f.Spots = []entity.Spot{}
	}
	return f, nil
}

// PersistSpotAndAnalysis точка и анализ видны читателям только вместе
func (r *SpotRepository) PersistSpotAndAnalysis(ctx context.Context, spot *entity.Spot, analysis *entity.AnalysisResult) error {
	if analysis == nil {
		return errors.New("persist spot: analysis is required")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sr := spotRecord(spot)
		if err := tx.Omit(clause.Associations).Create(sr).Error; err != nil {
			return fmt.Errorf("insert spot: %w", err)
		}
		analysis.SpotID = sr.ID
		if err := tx.Create(analysisRecord(analysis)).Error; err != nil {
			return fmt.Errorf("insert analysis: %w", err)
		}
		spot.ID = sr.ID
		return nil
	})
}

func (r *SpotRepository) GetSpot(ctx context.Context, spotID string) (*entity.Spot, error) {
	var rec SpotRecord
	if err := r.db.WithContext(ctx).Preload("Analysis").First(&rec, "id = ?", spotID).Error; err != nil {
		return nil, notFound("get spot", err)
	}
	return rec.entity(), nil
}

// DeleteSpot удаляет анализ и точку одной транзакцией, возвращает удалённую точку
func (r *SpotRepository) DeleteSpot(ctx context.Context, spotID string) (*entity.Spot, error) {
	var deleted *entity.Spot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec SpotRecord
		if err := tx.First(&rec, "id = ?", spotID).Error; err != nil {
			return notFound("delete spot", err)
		}
		if err := tx.Where("spot_id = ?", spotID).Delete(&AnalysisRecord{}).Error; err != nil {
			return fmt.Errorf("delete analysis: %w", err)
		}
		if err := tx.Delete(&rec).Error; err != nil {
			return fmt.Errorf("delete spot: %w", err)
		}
		deleted = rec.entity()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// DeleteField каскадно удаляет анализы, точки и поле
func (r *SpotRepository) DeleteField(ctx context.Context, fieldID string) ([]string, error) {
	var handles []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec FieldRecord
		if err := tx.Select("id").First(&rec, "id = ?", fieldID).Error; err != nil {
			return notFound("delete field", err)
		}
		if err := tx.Model(&SpotRecord{}).
			Where("field_id = ? AND image_handle <> ''", fieldID).
			Pluck("image_handle", &handles).Error; err != nil {
			return fmt.Errorf("collect images: %w", err)
		}
		spots := tx.Model(&SpotRecord{}).Select("id").Where("field_id = ?", fieldID)
		if err := tx.Where("spot_id IN (?)", spots).Delete(&AnalysisRecord{}).Error; err != nil {
			return fmt.Errorf("delete analyses: %w", err)
		}
		if err := tx.Where("field_id = ?", fieldID).Delete(&SpotRecord{}).Error; err != nil {
			return fmt.Errorf("delete spots: %w", err)
		}
		if err := tx.Delete(&FieldRecord{}, "id = ?", fieldID).Error; err != nil {
			return fmt.Errorf("delete field: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handles, nil
}

func (r *SpotRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, port.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ port.SpotRepository = (*SpotRepository)(nil)
