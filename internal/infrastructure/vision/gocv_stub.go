//go:build !gocv
// +build !gocv

package vision

import "errors"

// GoCVEnabled сборка без OpenCV
const GoCVEnabled = false

// ErrGoCVDisabled сборка без тега gocv
var ErrGoCVDisabled = errors.New("gocv build tag is not enabled")

// GoCVAnalyzer заглушка (без OpenCV)
type GoCVAnalyzer struct {
	size      int
	maxPixels int
}

// NewGoCVAnalyzer создаёт заглушку
func NewGoCVAnalyzer(size, maxPixels int) *GoCVAnalyzer {
	return &GoCVAnalyzer{size: size, maxPixels: maxPixels}
}

// Measure возвращает ошибку, если сборка без тега gocv.
func (a *GoCVAnalyzer) Measure(data []byte) (Measurement, error) {
	return Measurement{}, ErrGoCVDisabled
}

// Preprocess возвращает ошибку, если сборка без тега gocv.
func (a *GoCVAnalyzer) Preprocess(data []byte) ([]byte, error) {
	return nil, ErrGoCVDisabled
}
