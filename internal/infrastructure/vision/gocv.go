//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GoCVEnabled сборка с OpenCV
const GoCVEnabled = true

// GoCVAnalyzer метрики и препроцессинг на OpenCV
type GoCVAnalyzer struct {
	size      int
	maxPixels int
}

// NewGoCVAnalyzer создаёт анализатор со стороной входа модели size
func NewGoCVAnalyzer(size, maxPixels int) *GoCVAnalyzer {
	return &GoCVAnalyzer{size: size, maxPixels: maxPixels}
}

// Measure считает дисперсию лапласиана и среднюю яркость серого снимка
func (a *GoCVAnalyzer) Measure(data []byte) (Measurement, error) {
	if err := checkPixels(data, a.maxPixels); err != nil {
		return Measurement{}, err
	}
	gray, err := decodeToMat(data, gocv.IMReadGrayScale)
	if err != nil {
		return Measurement{}, err
	}
	defer gray.Close()

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	lapMean, lapStd := gocv.NewMat(), gocv.NewMat()
	defer lapMean.Close()
	defer lapStd.Close()
	gocv.MeanStdDev(lap, &lapMean, &lapStd)

	grayMean, grayStd := gocv.NewMat(), gocv.NewMat()
	defer grayMean.Close()
	defer grayStd.Close()
	gocv.MeanStdDev(gray, &grayMean, &grayStd)

	std := lapStd.GetDoubleAt(0, 0)
	return Measurement{
		LaplacianVariance: std * std,
		MeanBrightness:    grayMean.GetDoubleAt(0, 0),
		Width:             gray.Cols(),
		Height:            gray.Rows(),
	}, nil
}

// Preprocess приводит снимок к size x size и кодирует в JPEG
func (a *GoCVAnalyzer) Preprocess(data []byte) ([]byte, error) {
	if err := checkPixels(data, a.maxPixels); err != nil {
		return nil, err
	}
	mat, err := decodeToMat(data, gocv.IMReadColor)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(a.size, a.size), 0, 0, gocv.InterpolationLinear)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, resized)
	if err != nil {
		return nil, fmt.Errorf("encode preprocessed image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// decodeToMat превращает байты изображения в gocv.Mat
func decodeToMat(data []byte, flags gocv.IMReadFlag) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(data, flags)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	if err == nil {
		err = errors.New("empty image")
	}
	return gocv.NewMat(), fmt.Errorf("%w: %v", ErrDecode, err)
}
