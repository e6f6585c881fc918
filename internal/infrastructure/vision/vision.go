// Package vision вычисляет метрики качества снимка и готовит его ко входу модели.
package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"cropscout/internal/domain/port"
)

// InputSize сторона квадратного входа моделей
const InputSize = 224

// DefaultMaxPixels предел размера снимка, 40 Мп
const DefaultMaxPixels = 40_000_000

// ErrDecode снимок не удалось разобрать
var ErrDecode = errors.New("failed to decode image")

// Engine анализатор и препроцессор в одном адаптере
type Engine interface {
	Measure(data []byte) (Measurement, error)
	Preprocess(data []byte) ([]byte, error)
}

// New возвращает OpenCV-реализацию, если сборка с тегом gocv, иначе реализацию на Go.
// maxPixels <= 0 снимает ограничение размера.
func New(size, maxPixels int) Engine {
	if size <= 0 {
		size = InputSize
	}
	if GoCVEnabled {
		return NewGoCVAnalyzer(size, maxPixels)
	}
	return NewAnalyzer(size, maxPixels)
}

// checkPixels читает только заголовок снимка и отклоняет его до полного разбора.
// Формат, неизвестный image, пропускается: ошибку вернёт сам декодер.
func checkPixels(data []byte, maxPixels int) error {
	if maxPixels <= 0 {
		return nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", port.ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}
