package port

import (
	"context"
	"errors"

	"cropscout/internal/domain/entity"
)

// ErrNotFound запись не найдена в хранилище
var ErrNotFound = errors.New("record not found")

// SpotRepository интерфейс хранилища полей, точек и результатов анализа
type SpotRepository interface {
	// CreateField сохраняет новое поле
	CreateField(ctx context.Context, f *entity.Field) error

	// ListFields возвращает все поля без точек
	ListFields(ctx context.Context) ([]entity.Field, error)

	// FetchField возвращает полигон поля и его точки вместе с результатами анализа
	FetchField(ctx context.Context, fieldID string) (*entity.Field, error)

	// PersistSpotAndAnalysis атомарно сохраняет точку и её результат анализа
	PersistSpotAndAnalysis(ctx context.Context, spot *entity.Spot, analysis *entity.AnalysisResult) error

	// GetSpot возвращает точку вместе с анализом
	GetSpot(ctx context.Context, spotID string) (*entity.Spot, error)

	// DeleteSpot удаляет точку и её анализ одной транзакцией
	DeleteSpot(ctx context.Context, spotID string) (*entity.Spot, error)

	// DeleteField каскадно удаляет поле, точки и анализы; возвращает ссылки на снимки удалённых точек
	DeleteField(ctx context.Context, fieldID string) ([]string, error)

	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error
}
