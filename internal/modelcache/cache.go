// Package modelcache хранит загруженные модели процесса, по одной загрузке на имя.
package modelcache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"cropscout/internal/domain/entity"
	"cropscout/internal/domain/port"
)

// LoadObserver вызывается после каждой фактической загрузки
type LoadObserver func(name string, err error)

// Cache ленивый кэш моделей. Загруженные модели только читаются,
// поэтому их можно отдавать любому числу конкурентных вызовов.
type Cache struct {
	provider port.ModelProvider
	onLoad   LoadObserver

	mu     sync.RWMutex
	models map[string]*entity.ModelHandle
	group  singleflight.Group
}

// Option настройка кэша
type Option func(*Cache)

// WithObserver подключает наблюдатель загрузок (метрики, журнал)
func WithObserver(fn LoadObserver) Option {
	return func(c *Cache) { c.onLoad = fn }
}

// New создаёт пустой кэш поверх провайдера
func New(provider port.ModelProvider, opts ...Option) *Cache {
	c := &Cache{
		provider: provider,
		models:   make(map[string]*entity.ModelHandle),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get возвращает загруженную модель или загружает её. Конкурентные вызовы
// для одного имени ждут общую загрузку; каждый ждущий соблюдает свой контекст.
// Неудачные загрузки не кэшируются.
func (c *Cache) Get(ctx context.Context, name string) (*entity.ModelHandle, error) {
	if h, ok := c.lookup(name); ok {
		return h, nil
	}

	ch := c.group.DoChan(name, func() (any, error) {
		if h, ok := c.lookup(name); ok {
			return h, nil
		}
		// загрузка не привязана к контексту первого вызывающего,
		// иначе его отмена сорвала бы загрузку для остальных
		h, err := c.provider.Load(context.WithoutCancel(ctx), name)
		if c.onLoad != nil {
			c.onLoad(name, err)
		}
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.models[name] = h
		c.mu.Unlock()
		return h, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for model %q: %w", name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load model %q: %w", name, res.Err)
		}
		return res.Val.(*entity.ModelHandle), nil
	}
}

// Loaded сообщает, загружена ли модель
func (c *Cache) Loaded(name string) bool {
	_, ok := c.lookup(name)
	return ok
}

// Evict убирает модель из кэша
func (c *Cache) Evict(name string) {
	c.mu.Lock()
	delete(c.models, name)
	c.mu.Unlock()
}

func (c *Cache) lookup(name string) (*entity.ModelHandle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.models[name]
	return h, ok
}
