package port

import (
	"context"

	"cropscout/internal/domain/entity"
)

// ModelProvider источник моделей классификации
type ModelProvider interface {
	// ListAvailable возвращает развёрнутые модели в порядке обнаружения
	ListAvailable(ctx context.Context) ([]entity.ModelDescriptor, error)

	// Load загружает модель; результат кэшируется вызывающей стороной
	Load(ctx context.Context, name string) (*entity.ModelHandle, error)

	// Infer возвращает вероятности классов для подготовленного снимка
	Infer(ctx context.Context, handle *entity.ModelHandle, image []byte) (map[string]float64, error)
}
