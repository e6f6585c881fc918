package inference

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"

	"cropscout/internal/domain/entity"
)

// StaticProvider локальный провайдер без модельного сервера: модели берутся
// из каталога весов, вероятности детерминированно выводятся из хеша снимка.
// Годится для разработки и тестов, не для реальной диагностики.
type StaticProvider struct {
	dir string

	mu     sync.RWMutex
	models []entity.ModelDescriptor
}

// NewStaticProvider провайдер по каталогу весов; модели появляются после Rescan
func NewStaticProvider(dir string) *StaticProvider {
	return &StaticProvider{dir: dir}
}

// NewStaticProviderWith провайдер с заранее заданным набором моделей
func NewStaticProviderWith(models ...entity.ModelDescriptor) *StaticProvider {
	return &StaticProvider{models: models}
}

// Rescan перечитывает каталог весов, возвращает файлы неизвестных архитектур
func (p *StaticProvider) Rescan() ([]string, error) {
	models, unmatched, err := Scan(p.dir)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.models = models
	p.mu.Unlock()
	return unmatched, nil
}

// ListAvailable возвращает найденные модели
func (p *StaticProvider) ListAvailable(ctx context.Context) ([]entity.ModelDescriptor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]entity.ModelDescriptor, len(p.models))
	copy(out, p.models)
	return out, nil
}

// Load возвращает дескриптор модели как ссылку
func (p *StaticProvider) Load(ctx context.Context, name string) (*entity.ModelHandle, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, m := range p.models {
		if m.Name == name {
			return &entity.ModelHandle{Descriptor: m, Ref: m.Path}, nil
		}
	}
	return nil, fmt.Errorf("model %q is not deployed", name)
}

// Infer распределяет вероятности по классам модели (softmax от хеша)
func (p *StaticProvider) Infer(ctx context.Context, h *entity.ModelHandle, image []byte) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names := h.Descriptor.ClassNames
	if len(names) == 0 {
		return nil, fmt.Errorf("model %q has no class names", h.Descriptor.Name)
	}

	seed := xxhash.Sum64(image)
	logits := make([]float64, len(names))
	var maxLogit float64
	for i := range names {
		d := xxhash.New()
		_, _ = fmt.Fprintf(d, "%d/%s/%d", seed, h.Descriptor.Name, i)
		logits[i] = float64(d.Sum64()%1000) / 250 // 0..4
		maxLogit = math.Max(maxLogit, logits[i])
	}

	var sum float64
	for i := range logits {
		logits[i] = math.Exp(logits[i] - maxLogit)
		sum += logits[i]
	}
	out := make(map[string]float64, len(names))
	for i, n := range names {
		out[n] = logits[i] / sum
	}
	return out, nil
}
