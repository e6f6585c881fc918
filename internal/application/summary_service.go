package app

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"cropscout/internal/domain/entity"
	"cropscout/internal/domain/port"
	"cropscout/internal/geofence"
)

// SummaryService сводка по полю, всегда по текущему состоянию хранилища
type SummaryService struct {
	repo port.SpotRepository
}

// NewSummaryService создаёт сервис сводок
func NewSummaryService(repo port.SpotRepository) *SummaryService {
	return &SummaryService{repo: repo}
}

// Summarize считает все точки; распределение и тепловая карта строятся
// только по точкам с анализом
func (s *SummaryService) Summarize(ctx context.Context, fieldID string) (*entity.Summary, error) {
	f, err := s.repo.FetchField(ctx, fieldID)
	if err != nil {
		return nil, storageError(err, entity.CodeFieldNotFound, "field not found")
	}
	return Summarize(f), nil
}

// Summarize сводка по уже загруженному полю
func Summarize(f *entity.Field) *entity.Summary {
	out := &entity.Summary{
		FieldID:            f.ID,
		TotalSpots:         len(f.Spots),
		HealthDistribution: make(map[entity.HealthLabel]int),
		Heatmap:            make([]entity.HeatmapEntry, 0, len(f.Spots)),
	}
	for _, sp := range f.Spots {
		if sp.Analysis == nil {
			continue
		}
		out.HealthDistribution[sp.Analysis.HealthLabel]++
		out.Heatmap = append(out.Heatmap, entity.HeatmapEntry{
			Latitude:    sp.Latitude,
			Longitude:   sp.Longitude,
			Severity:    sp.Analysis.Confidence,
			HealthLabel: sp.Analysis.HealthLabel,
		})
	}
	return out
}

// HeatmapGeoJSON тепловая карта поля как FeatureCollection точек; контур поля
// идёт первым объектом
func (s *SummaryService) HeatmapGeoJSON(ctx context.Context, fieldID string) (*geojson.FeatureCollection, error) {
	f, err := s.repo.FetchField(ctx, fieldID)
	if err != nil {
		return nil, storageError(err, entity.CodeFieldNotFound, "field not found")
	}

	fc := geojson.NewFeatureCollection()
	boundary := geojson.NewFeature(orb.Polygon{geofence.Ring(f.Polygon)})
	boundary.Properties["field_id"] = f.ID
	boundary.Properties["name"] = f.Name
	boundary.Properties["kind"] = "boundary"
	fc.Append(boundary)

	for _, e := range Summarize(f).Heatmap {
		pt := geojson.NewFeature(orb.Point{e.Longitude, e.Latitude})
		pt.Properties["kind"] = "spot"
		pt.Properties["severity"] = e.Severity
		pt.Properties["health_label"] = string(e.HealthLabel)
		fc.Append(pt)
	}
	return fc, nil
}
