package storage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cropscout/internal/domain/entity"
)

// FieldRecord строка таблицы fields
type FieldRecord struct {
	ID        string         `gorm:"size:36;primaryKey"`
	Name      string         `gorm:"size:200;not null"`
	CropType  string         `gorm:"size:50;not null;default:coffee"`
	Polygon   entity.Polygon `gorm:"serializer:json;not null"` // [[lat, lng], ...]
	CreatedAt time.Time
	UpdatedAt time.Time

	Spots []SpotRecord `gorm:"foreignKey:FieldID;constraint:OnDelete:CASCADE"`
}

func (FieldRecord) TableName() string { return "fields" }

func (f *FieldRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return
}

// SpotRecord строка таблицы spots
type SpotRecord struct {
	ID            string    `gorm:"size:36;primaryKey"`
	FieldID       string    `gorm:"size:36;not null;index:idx_spots_field_time,priority:1"`
	Latitude      float64   `gorm:"not null"`
	Longitude     float64   `gorm:"not null"`
	ImageHandle   string    `gorm:"size:512"`
	ImageFilename string    `gorm:"size:255"`
	Timestamp     time.Time `gorm:"not null;index:idx_spots_field_time,priority:2"`
	Device        string    `gorm:"size:100"`
	Notes         string    `gorm:"type:text"`
	CreatedAt     time.Time

	Analysis *AnalysisRecord `gorm:"foreignKey:SpotID;constraint:OnDelete:CASCADE"`
}

func (SpotRecord) TableName() string { return "spots" }

func (s *SpotRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return
}

// AnalysisRecord строка таблицы analyses; списки находок хранятся JSON-текстом
type AnalysisRecord struct {
	ID                   string   `gorm:"size:36;primaryKey"`
	SpotID               string   `gorm:"size:36;not null;uniqueIndex"`
	Status               string   `gorm:"size:32;not null"`
	HealthLabel          string   `gorm:"size:32;not null;index"`
	Confidence           float64  `gorm:"not null"`
	Diseases             []string `gorm:"serializer:json"`
	Pests                []string `gorm:"serializer:json"`
	NutrientDeficiencies []string `gorm:"serializer:json"`
	StressSigns          []string `gorm:"serializer:json"`
	IsBlurry             bool
	IsUnderexposed       bool
	IsOverexposed        bool
	QualityNotes         string `gorm:"type:text"`
	ModelVersion         string `gorm:"size:100;not null"`
	ProcessingTimeMs     *int64
	AnalyzedAt           time.Time `gorm:"not null"`
}

func (AnalysisRecord) TableName() string { return "analyses" }

func (a *AnalysisRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return
}

func fieldRecord(f *entity.Field) *FieldRecord {
	return &FieldRecord{
		ID:        f.ID,
		Name:      f.Name,
		CropType:  f.CropType,
		Polygon:   f.Polygon,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func (r *FieldRecord) entity() *entity.Field {
	f := &entity.Field{
		ID:        r.ID,
		Name:      r.Name,
		CropType:  r.CropType,
		Polygon:   r.Polygon,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Spots != nil {
		f.Spots = make([]entity.Spot, 0, len(r.Spots))
		for i := range r.Spots {
			f.Spots = append(f.Spots, *r.Spots[i].entity())
		}
	}
	return f
}

func spotRecord(s *entity.Spot) *SpotRecord {
	return &SpotRecord{
		ID:            s.ID,
		FieldID:       s.FieldID,
		Latitude:      s.Latitude,
		Longitude:     s.Longitude,
		ImageHandle:   s.ImageHandle,
		ImageFilename: s.ImageFilename,
		Timestamp:     s.Timestamp,
		Device:        s.Device,
		Notes:         s.Notes,
	}
}

func (r *SpotRecord) entity() *entity.Spot {
	s := &entity.Spot{
		ID:            r.ID,
		FieldID:       r.FieldID,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		ImageHandle:   r.ImageHandle,
		ImageFilename: r.ImageFilename,
		Timestamp:     r.Timestamp,
		Device:        r.Device,
		Notes:         r.Notes,
	}
	if r.Analysis != nil {
		s.Analysis = r.Analysis.entity()
	}
	return s
}

func analysisRecord(a *entity.AnalysisResult) *AnalysisRecord {
	return &AnalysisRecord{
		SpotID:               a.SpotID,
		Status:               string(a.Status),
		HealthLabel:          string(a.HealthLabel),
		Confidence:           a.Confidence,
		Diseases:             a.Findings.Diseases,
		Pests:                a.Findings.Pests,
		NutrientDeficiencies: a.Findings.NutrientDeficiencies,
		StressSigns:          a.Findings.StressSigns,
		IsBlurry:             a.Quality.IsBlurry,
		IsUnderexposed:       a.Quality.IsUnderexposed,
		IsOverexposed:        a.Quality.IsOverexposed,
		QualityNotes:         a.Quality.Notes,
		ModelVersion:         a.ModelVersion,
		ProcessingTimeMs:     a.ProcessingTimeMs,
		AnalyzedAt:           a.AnalyzedAt,
	}
}

func (r *AnalysisRecord) entity() *entity.AnalysisResult {
	return &entity.AnalysisResult{
		SpotID:      r.SpotID,
		Status:      entity.AnalysisStatus(r.Status),
		HealthLabel: entity.HealthLabel(r.HealthLabel),
		Confidence:  r.Confidence,
		Findings: entity.Findings{
			Diseases:             nonNil(r.Diseases),
			Pests:                nonNil(r.Pests),
			NutrientDeficiencies: nonNil(r.NutrientDeficiencies),
			StressSigns:          nonNil(r.StressSigns),
		},
		Quality: entity.ImageQuality{
			IsBlurry:       r.IsBlurry,
			IsUnderexposed: r.IsUnderexposed,
			IsOverexposed:  r.IsOverexposed,
			Notes:          r.QualityNotes,
		},
		ModelVersion:     r.ModelVersion,
		ProcessingTimeMs: r.ProcessingTimeMs,
		AnalyzedAt:       r.AnalyzedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
