package entity

import "time"

// Point географическая точка в градусах WGS84
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Polygon упорядоченный список вершин [lat, lng]; последняя вершина неявно соединена с первой
type Polygon [][2]float64

// Vertex возвращает i-ю вершину как Point
func (p Polygon) Vertex(i int) Point {
	return Point{Lat: p[i][0], Lng: p[i][1]}
}

// DefaultCropType культура поля, если пользователь её не указал
const DefaultCropType = "coffee"

// Field поле, нарисованное пользователем на карте
type Field struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CropType  string    `json:"crop_type"`
	Polygon   Polygon   `json:"polygon_coordinates"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Spots заполняется только при полной загрузке поля
	Spots []Spot `json:"spots,omitempty"`
}

// BoundingBox ограничивающий прямоугольник полигона
type BoundingBox struct {
	MinLat  float64 `json:"min_lat"`
	MaxLat  float64 `json:"max_lat"`
	MinLng  float64 `json:"min_lng"`
	MaxLng  float64 `json:"max_lng"`
	WidthM  float64 `json:"width_m"`
	HeightM float64 `json:"height_m"`
}

// FieldMetrics геометрические характеристики поля
type FieldMetrics struct {
	AreaSqm     float64     `json:"area_sqm"`
	AreaHectare float64     `json:"area_hectares"`
	AreaAcres   float64     `json:"area_acres"`
	PerimeterM  float64     `json:"perimeter_m"`
	Centroid    Point       `json:"centroid"`
	BoundingBox BoundingBox `json:"bounding_box"`
}
