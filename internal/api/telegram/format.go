package telegram

import (
	"fmt"
	"sort"
	"strings"

	"cropscout/internal/domain/entity"
)

var labelText = map[entity.HealthLabel]string{
	entity.HealthHealthy:            "здоровое",
	entity.HealthMildlyStressed:     "слабый стресс",
	entity.HealthDiseased:           "болезнь",
	entity.HealthPestDamage:         "повреждение вредителями",
	entity.HealthNutrientDeficiency: "дефицит питания",
	entity.HealthUnknown:            "не определено",
}

func label(l entity.HealthLabel) string {
	if s, ok := labelText[l]; ok {
		return s
	}
	return string(l)
}

func formatFields(fields []entity.Field) string {
	if len(fields) == 0 {
		return msgNoFields
	}
	var b strings.Builder
	b.WriteString("🗺 Поля:\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "• %s (%s): /field %s\n", f.Name, f.CropType, f.ID)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatAnalysis(a *entity.AnalysisResult) string {
	if a.Status == entity.StatusUnusableImage {
		return fmt.Sprintf("⚠️ Снимок непригоден для анализа: %s.\nТочка сохранена, переснимите кадр при возможности.", a.Quality.Notes)
	}

	var b strings.Builder
	icon := "🌿"
	if a.HealthLabel != entity.HealthHealthy {
		icon = "🍂"
	}
	fmt.Fprintf(&b, "%s Состояние: %s (уверенность %.0f%%)\n", icon, label(a.HealthLabel), a.Confidence*100)
	fmt.Fprintf(&b, "Модель: %s", a.ModelVersion)

	lines := []struct {
		title string
		items []string
	}{
		{"Болезни", a.Findings.Diseases},
		{"Вредители", a.Findings.Pests},
		{"Дефицит питания", a.Findings.NutrientDeficiencies},
		{"Признаки стресса", a.Findings.StressSigns},
	}
	for _, l := range lines {
		if len(l.items) > 0 {
			fmt.Fprintf(&b, "\n%s: %s", l.title, strings.Join(l.items, ", "))
		}
	}
	if a.Quality.IsBlurry || a.Quality.IsUnderexposed || a.Quality.IsOverexposed {
		fmt.Fprintf(&b, "\n📷 %s", a.Quality.Notes)
	}
	return b.String()
}

func formatSummary(f *entity.Field, s *entity.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s: точек %d", f.Name, s.TotalSpots)
	if len(s.HealthDistribution) == 0 {
		return b.String()
	}

	labels := make([]entity.HealthLabel, 0, len(s.HealthDistribution))
	for l := range s.HealthDistribution {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		ci, cj := s.HealthDistribution[labels[i]], s.HealthDistribution[labels[j]]
		if ci != cj {
			return ci > cj
		}
		return labels[i] < labels[j]
	})
	for _, l := range labels {
		fmt.Fprintf(&b, "\n• %s: %d", label(l), s.HealthDistribution[l])
	}
	return b.String()
}
