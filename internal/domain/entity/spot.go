package entity

import "time"

// Spot точка наблюдения внутри поля с прикреплённым снимком
type Spot struct {
	ID            string    `json:"id"`
	FieldID       string    `json:"field_id"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	ImageHandle   string    `json:"-"`
	ImageFilename string    `json:"image_filename,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Device        string    `json:"device,omitempty"`
	Notes         string    `json:"notes,omitempty"`

	// Analysis заполняется при чтении из хранилища
	Analysis *AnalysisResult `json:"analysis,omitempty"`
}

// Point возвращает координату точки наблюдения
func (s Spot) Point() Point {
	return Point{Lat: s.Latitude, Lng: s.Longitude}
}

// AnalysisStatus итог анализа снимка
type AnalysisStatus string

const (
	StatusOK            AnalysisStatus = "ok"             // модель отработала
	StatusUnusableImage AnalysisStatus = "unusable_image" // снимок отбракован по качеству
)

// HealthLabel каноническая метка состояния культуры
type HealthLabel string

const (
	HealthHealthy            HealthLabel = "healthy"
	HealthMildlyStressed     HealthLabel = "mildly_stressed"
	HealthDiseased           HealthLabel = "diseased"
	HealthPestDamage         HealthLabel = "pest_damage"
	HealthNutrientDeficiency HealthLabel = "nutrient_deficiency"
	HealthUnknown            HealthLabel = "unknown"
)

// ModelNone записывается в результат, если инференс не запускался
const ModelNone = "none"

// Findings подробные находки анализа; списки никогда не nil
type Findings struct {
	Diseases             []string `json:"diseases_detected"`
	Pests                []string `json:"pests_detected"`
	NutrientDeficiencies []string `json:"nutrient_deficiencies_detected"`
	StressSigns          []string `json:"stress_signs"`
}

// EmptyFindings возвращает находки с пустыми (не nil) списками
func EmptyFindings() Findings {
	return Findings{
		Diseases:             []string{},
		Pests:                []string{},
		NutrientDeficiencies: []string{},
		StressSigns:          []string{},
	}
}

// ImageQuality флаги качества снимка
type ImageQuality struct {
	IsBlurry       bool   `json:"is_blurry"`
	IsUnderexposed bool   `json:"is_underexposed"`
	IsOverexposed  bool   `json:"is_overexposed"`
	Notes          string `json:"notes,omitempty"`
}

// AnalysisResult результат классификации снимка, ровно один на Spot
type AnalysisResult struct {
	SpotID           string         `json:"spot_id"`
	Status           AnalysisStatus `json:"status"`
	HealthLabel      HealthLabel    `json:"health_label"`
	Confidence       float64        `json:"confidence"`
	Findings         Findings       `json:"detailed_findings"`
	Quality          ImageQuality   `json:"image_quality"`
	ModelVersion     string         `json:"model_version"`
	ProcessingTimeMs *int64         `json:"processing_time_ms,omitempty"`
	AnalyzedAt       time.Time      `json:"analyzed_at"`
}
