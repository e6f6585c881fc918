package port

import "errors"

// ErrImageTooLarge снимок превышает допустимое число пикселей
var ErrImageTooLarge = errors.New("image is too large")

// Measurement сырые метрики качества снимка
type Measurement struct {
	LaplacianVariance float64
	MeanBrightness    float64
	Width             int
	Height            int
}

// ImageAnalyzer вычисляет метрики резкости и яркости
type ImageAnalyzer interface {
	Measure(data []byte) (Measurement, error)
}

// Preprocessor готовит снимок ко входу модели
type Preprocessor interface {
	Preprocess(data []byte) ([]byte, error)
}
