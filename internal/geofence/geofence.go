// Package geofence проверяет принадлежность точки полигону поля.
package geofence

import (
	"errors"
	"fmt"
	"math"

	"cropscout/internal/domain/entity"
)

var (
	ErrInvalidPolygon = errors.New("polygon must have at least 3 vertices")
	ErrInvalidPoint   = errors.New("invalid coordinates")
)

// boundaryEpsilon допуск в градусах, в пределах которого точка считается лежащей на ребре
const boundaryEpsilon = 1e-9

// IsInside проверяет точку методом трассировки луча (чётность пересечений).
// Луч идёт в сторону роста долготы. Точка на ребре или в вершине считается внутренней.
// Для самопересекающихся полигонов результат не гарантируется.
func IsInside(p entity.Point, poly entity.Polygon) (bool, error) {
	if len(poly) < 3 {
		return false, ErrInvalidPolygon
	}
	if OnBoundary(p, poly) {
		return true, nil
	}

	inside := false
	n := len(poly)
	for i := 0; i < n; i++ {
		a, b := poly.Vertex(i), poly.Vertex((i+1)%n)
		if a.Lat == b.Lat {
			continue
		}
		// полуоткрытый интервал: вершина на луче учитывается ровно одним ребром
		if p.Lat <= math.Min(a.Lat, b.Lat) || p.Lat > math.Max(a.Lat, b.Lat) {
			continue
		}
		lng := a.Lng + (p.Lat-a.Lat)*(b.Lng-a.Lng)/(b.Lat-a.Lat)
		if lng >= p.Lng {
			inside = !inside
		}
	}
	return inside, nil
}

// OnBoundary сообщает, лежит ли точка на одном из рёбер замкнутого контура
func OnBoundary(p entity.Point, poly entity.Polygon) bool {
	n := len(poly)
	for i := 0; i < n; i++ {
		if onSegment(p, poly.Vertex(i), poly.Vertex((i+1)%n)) {
			return true
		}
	}
	return false
}

func onSegment(p, a, b entity.Point) bool {
	dx, dy := b.Lng-a.Lng, b.Lat-a.Lat
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.Lng-a.Lng, p.Lat-a.Lat) <= boundaryEpsilon
	}
	cross := dx*(p.Lat-a.Lat) - dy*(p.Lng-a.Lng)
	if math.Abs(cross)/length > boundaryEpsilon {
		return false
	}
	// проекция должна попасть на отрезок
	t := (dx*(p.Lng-a.Lng) + dy*(p.Lat-a.Lat)) / (length * length)
	e := boundaryEpsilon / length
	return t >= -e && t <= 1+e
}

// ValidatePoint проверяет, что координаты конечны и в допустимом диапазоне
func ValidatePoint(p entity.Point) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("%w: latitude and longitude must be numbers", ErrInvalidPoint)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %.6f is out of range [-90, 90]", ErrInvalidPoint, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %.6f is out of range [-180, 180]", ErrInvalidPoint, p.Lng)
	}
	return nil
}

// ValidatePolygon проверяет количество вершин и каждую координату
func ValidatePolygon(poly entity.Polygon) error {
	if len(poly) < 3 {
		return ErrInvalidPolygon
	}
	for i := range poly {
		if err := ValidatePoint(poly.Vertex(i)); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	return nil
}
