package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"cropscout/internal/domain/port"
)

// Measurement псевдоним метрик порта, чтобы адаптеры не импортировали port напрямую
type Measurement = port.Measurement

// Analyzer реализация на чистом Go: оттенки серого по BT.601, лапласиан 3x3
// с отражением границ, как cv2.Laplacian с ядром по умолчанию.
type Analyzer struct {
	size      int
	maxPixels int
}

// NewAnalyzer создаёт анализатор со стороной входа модели size
func NewAnalyzer(size, maxPixels int) *Analyzer {
	return &Analyzer{size: size, maxPixels: maxPixels}
}

// Measure считает дисперсию лапласиана и среднюю яркость
func (a *Analyzer) Measure(data []byte) (Measurement, error) {
	if err := checkPixels(data, a.maxPixels); err != nil {
		return Measurement{}, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Measurement{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	gray, w, h := grayscale(img)
	if w == 0 || h == 0 {
		return Measurement{}, fmt.Errorf("%w: empty image", ErrDecode)
	}
	return Measurement{
		LaplacianVariance: laplacianVariance(gray, w, h),
		MeanBrightness:    mean(gray),
		Width:             w,
		Height:            h,
	}, nil
}

// Preprocess приводит снимок к size x size и кодирует в JPEG
func (a *Analyzer) Preprocess(data []byte) ([]byte, error) {
	if err := checkPixels(data, a.maxPixels); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, a.size, a.size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode preprocessed image: %w", err)
	}
	return buf.Bytes(), nil
}

func grayscale(img image.Image) ([]float64, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// 16 бит на канал -> 0..255
			out[y*w+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257
		}
	}
	return out, w, h
}

func laplacianVariance(gray []float64, w, h int) float64 {
	at := func(x, y int) float64 {
		return gray[reflect101(y, h)*w+reflect101(x, w)]
	}
	var sum, sumSq float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += v
			sumSq += v * v
		}
	}
	n := float64(w * h)
	m := sum / n
	return sumSq/n - m*m
}

// reflect101 отражение без повтора крайнего пикселя (gfedcb|abcdefgh|gfedcba)
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func mean(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
