// Package modelsel выбирает модель классификации по списку предпочтений.
package modelsel

import (
	"errors"
	"strings"

	"cropscout/internal/domain/entity"
)

// ErrNoModelsAvailable ни одной модели не развёрнуто
var ErrNoModelsAvailable = errors.New("no models available")

// DefaultPreference порядок предпочтения моделей по умолчанию
var DefaultPreference = []string{"CustomCNN1", "CustomCNN2", "CustomCNN3", "EfficientNet", "MobileNetV3"}

// Select возвращает первую предпочитаемую модель из доступных. Если ни одна
// не найдена, берётся первая доступная в порядке обнаружения; провайдер
// не обязан гарантировать этот порядок.
func Select(available []entity.ModelDescriptor, preferred []string) (string, error) {
	if len(available) == 0 {
		return "", ErrNoModelsAvailable
	}
	names := make(map[string]struct{}, len(available))
	for _, m := range available {
		names[m.Name] = struct{}{}
	}
	for _, p := range preferred {
		if _, ok := names[p]; ok {
			return p, nil
		}
	}
	return available[0].Name, nil
}

// SelectRequested отдаёт приоритет модели, явно запрошенной клиентом
func SelectRequested(available []entity.ModelDescriptor, requested string, preferred []string) (string, error) {
	if requested != "" {
		for _, m := range available {
			if m.Name == requested {
				return requested, nil
			}
		}
	}
	return Select(available, preferred)
}

// ParsePreference разбирает список через запятую, пустые элементы отбрасываются
func ParsePreference(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
