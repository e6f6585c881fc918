package entity

// HeatmapEntry точка тепловой карты, взвешенная уверенностью модели
type HeatmapEntry struct {
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Severity    float64     `json:"severity"`
	HealthLabel HealthLabel `json:"health_label"`
}

// Summary сводка по полю, вычисляется при каждом запросе
type Summary struct {
	FieldID            string              `json:"field_id"`
	TotalSpots         int                 `json:"total_spots"`
	HealthDistribution map[HealthLabel]int `json:"health_distribution"`
	Heatmap            []HeatmapEntry      `json:"disease_heatmap"`
}
