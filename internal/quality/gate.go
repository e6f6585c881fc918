// Package quality отбраковывает снимки, непригодные для классификации.
package quality

import (
	"errors"
	"fmt"
	"strings"

	"cropscout/internal/domain/entity"
	"cropscout/internal/domain/port"
)

// Thresholds пороги качества; задаются конфигурацией
type Thresholds struct {
	BlurVariance           float64 // дисперсия лапласиана ниже: снимок размыт
	UnusableBlurVariance   float64 // размытый снимок с дисперсией ниже: непригоден
	UnderexposedBrightness float64 // средняя яркость ниже: недоэкспонирован
	OverexposedBrightness  float64 // средняя яркость выше: переэкспонирован
	UnusableMinBrightness  float64 // яркость ниже: непригоден
	UnusableMaxBrightness  float64 // яркость выше: непригоден
}

// DefaultThresholds пороги, с которыми обучались модели
func DefaultThresholds() Thresholds {
	return Thresholds{
		BlurVariance:           100,
		UnusableBlurVariance:   50,
		UnderexposedBrightness: 50,
		OverexposedBrightness:  200,
		UnusableMinBrightness:  20,
		UnusableMaxBrightness:  240,
	}
}

// Report итог проверки качества; формируется всегда
type Report struct {
	IsBlurry          bool    `json:"is_blurry"`
	IsUnderexposed    bool    `json:"is_underexposed"`
	IsOverexposed     bool    `json:"is_overexposed"`
	LaplacianVariance float64 `json:"laplacian_variance"`
	MeanBrightness    float64 `json:"mean_brightness"`
	Usable            bool    `json:"usable"`
	Notes             string  `json:"notes"`
}

// Flags переводит отчёт в флаги качества результата анализа
func (r Report) Flags() entity.ImageQuality {
	return entity.ImageQuality{
		IsBlurry:       r.IsBlurry,
		IsUnderexposed: r.IsUnderexposed,
		IsOverexposed:  r.IsOverexposed,
		Notes:          r.Notes,
	}
}

// Нейтральные метрики на случай, если снимок не удалось разобрать
const (
	fallbackVariance   = 1000
	fallbackBrightness = 128
)

// Gate проверка качества снимка
type Gate struct {
	analyzer port.ImageAnalyzer
	t        Thresholds
}

// NewGate создаёт проверку с заданными порогами
func NewGate(analyzer port.ImageAnalyzer, t Thresholds) *Gate {
	return &Gate{analyzer: analyzer, t: t}
}

// Thresholds возвращает действующие пороги
func (g *Gate) Thresholds() Thresholds { return g.t }

// Assess измеряет снимок и выносит решение. Ошибка разбора не прерывает
// конвейер: возвращается нейтральный отчёт с пометкой. Слишком большой снимок
// непригоден.
func (g *Gate) Assess(data []byte) Report {
	m, err := g.analyzer.Measure(data)
	if errors.Is(err, port.ErrImageTooLarge) {
		return Report{Usable: false, Notes: fmt.Sprintf("Image rejected: %v", err)}
	}
	if err != nil {
		return Report{
			LaplacianVariance: fallbackVariance,
			MeanBrightness:    fallbackBrightness,
			Usable:            true,
			Notes:             fmt.Sprintf("Quality assessment error: %v", err),
		}
	}
	return g.Evaluate(m.LaplacianVariance, m.MeanBrightness)
}

// Evaluate выносит решение по уже посчитанным метрикам
func (g *Gate) Evaluate(variance, brightness float64) Report {
	r := Report{
		LaplacianVariance: variance,
		MeanBrightness:    brightness,
		IsBlurry:          variance < g.t.BlurVariance,
		IsUnderexposed:    brightness < g.t.UnderexposedBrightness,
		IsOverexposed:     brightness > g.t.OverexposedBrightness,
	}
	r.Usable = !g.Unusable(r.IsBlurry, variance, brightness)
	r.Notes = notes(r)
	return r
}

// Unusable снимок непригоден, если он сильно размыт или экстремально тёмный/светлый.
// Сравнения строгие: яркость ровно на пороге ещё пригодна.
func (g *Gate) Unusable(isBlurry bool, variance, brightness float64) bool {
	return (isBlurry && variance < g.t.UnusableBlurVariance) ||
		brightness < g.t.UnusableMinBrightness ||
		brightness > g.t.UnusableMaxBrightness
}

func notes(r Report) string {
	var out []string
	if r.IsBlurry {
		out = append(out, "Image appears blurry")
	}
	if r.IsUnderexposed {
		out = append(out, "Image appears underexposed")
	}
	if r.IsOverexposed {
		out = append(out, "Image appears overexposed")
	}
	if len(out) == 0 {
		return "Image quality acceptable"
	}
	return strings.Join(out, "; ")
}
