package geofence

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"cropscout/internal/domain/entity"
)

const (
	sqmPerHectare = 10000.0
	sqmPerAcre    = 4046.86
)

// Ring переводит полигон поля в замкнутое кольцо orb (X = долгота, Y = широта)
func Ring(poly entity.Polygon) orb.Ring {
	ring := make(orb.Ring, 0, len(poly)+1)
	for _, v := range poly {
		ring = append(ring, orb.Point{v[1], v[0]})
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// Metrics считает площадь, периметр, центроид и габариты поля.
// Для полигона меньше чем из 3 вершин возвращает нулевые метрики.
func Metrics(poly entity.Polygon) entity.FieldMetrics {
	if len(poly) < 3 {
		return entity.FieldMetrics{}
	}
	ring := Ring(poly)

	area := geo.Area(orb.Polygon{ring})
	var perimeter float64
	for i := 0; i+1 < len(ring); i++ {
		perimeter += geo.DistanceHaversine(ring[i], ring[i+1])
	}

	return entity.FieldMetrics{
		AreaSqm:     round(area, 2),
		AreaHectare: round(area/sqmPerHectare, 4),
		AreaAcres:   round(area/sqmPerAcre, 4),
		PerimeterM:  round(perimeter, 2),
		Centroid:    centroid(ring, poly),
		BoundingBox: Bounds(poly),
	}
}

// Bounds возвращает ограничивающий прямоугольник с размерами в метрах
func Bounds(poly entity.Polygon) entity.BoundingBox {
	if len(poly) == 0 {
		return entity.BoundingBox{}
	}
	b := Ring(poly).Bound()
	midLat := (b.Min.Y() + b.Max.Y()) / 2
	midLng := (b.Min.X() + b.Max.X()) / 2
	width := geo.DistanceHaversine(orb.Point{b.Min.X(), midLat}, orb.Point{b.Max.X(), midLat})
	height := geo.DistanceHaversine(orb.Point{midLng, b.Min.Y()}, orb.Point{midLng, b.Max.Y()})
	return entity.BoundingBox{
		MinLat:  round(b.Min.Y(), 6),
		MaxLat:  round(b.Max.Y(), 6),
		MinLng:  round(b.Min.X(), 6),
		MaxLng:  round(b.Max.X(), 6),
		WidthM:  round(width, 2),
		HeightM: round(height, 2),
	}
}

func centroid(ring orb.Ring, poly entity.Polygon) entity.Point {
	c, area := planar.CentroidArea(orb.Polygon{ring})
	if math.Abs(area) < 1e-10 {
		// вырожденный полигон: среднее по вершинам
		var lat, lng float64
		for _, v := range poly {
			lat += v[0]
			lng += v[1]
		}
		n := float64(len(poly))
		return entity.Point{Lat: round(lat/n, 6), Lng: round(lng/n, 6)}
	}
	return entity.Point{Lat: round(c.Lat(), 6), Lng: round(c.Lon(), 6)}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
