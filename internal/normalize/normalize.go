// Package normalize приводит сырые вероятности модели к каноническому результату.
package normalize

import (
	"math"
	"sort"

	"cropscout/internal/domain/entity"
)

// Имена классов, которые выдают развёрнутые модели
const (
	ClassHealthy     = "Healthy"
	ClassNotHealthy  = "Not Healthy"
	ClassCerscospora = "Cerscospora"
	ClassLeafRust    = "Leaf rust"
	ClassPhoma       = "Phoma"
	ClassMiner       = "Miner"
)

const (
	StressGeneral      = "General plant stress detected"
	StressHealthIssues = "Plant health issues detected"
)

// DefaultThreshold минимальная вероятность, при которой класс попадает в находки
const DefaultThreshold = 0.2

// issueConfidence уверенность "Not Healthy", начиная с которой фиксируется проблема
const issueConfidence = 0.7

type category int

const (
	catDisease category = iota
	catPest
	catNutrient
	catStress
)

var labels = map[string]entity.HealthLabel{
	ClassHealthy:     entity.HealthHealthy,
	ClassNotHealthy:  entity.HealthMildlyStressed,
	ClassCerscospora: entity.HealthDiseased,
	ClassLeafRust:    entity.HealthDiseased,
	ClassPhoma:       entity.HealthDiseased,
	ClassMiner:       entity.HealthPestDamage,
}

var findings = map[string][]category{
	ClassCerscospora: {catDisease},
	ClassLeafRust:    {catDisease},
	ClassPhoma:       {catDisease},
	ClassMiner:       {catPest},
	ClassNotHealthy:  {catStress},
}

// Outcome нормализованный результат классификации
type Outcome struct {
	HealthLabel entity.HealthLabel
	Confidence  float64
	Findings    entity.Findings
}

// Normalizer преобразует вероятности по таблицам меток и находок
type Normalizer struct {
	threshold float64
}

// New создаёт нормализатор; порог приводится к [0, 1], при нуле в находки
// попадают все известные классы
func New(threshold float64) *Normalizer {
	if math.IsNaN(threshold) {
		threshold = DefaultThreshold
	}
	return &Normalizer{threshold: clamp(threshold)}
}

type scored struct {
	name string
	p    float64
}

// Normalize строит итог по вероятностям классов и типу культуры
func (n *Normalizer) Normalize(probs map[string]float64, cropType string) Outcome {
	out := Outcome{HealthLabel: entity.HealthUnknown, Findings: entity.EmptyFindings()}
	if len(probs) == 0 {
		return out
	}

	ranked := make([]scored, 0, len(probs))
	for name, p := range probs {
		ranked = append(ranked, scored{name: name, p: clamp(p)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].p != ranked[j].p {
			return ranked[i].p > ranked[j].p
		}
		return ranked[i].name < ranked[j].name
	})

	// класс вне таблицы меток: unknown с нулевой уверенностью
	top := ranked[0]
	if label, ok := labels[top.name]; ok {
		out.HealthLabel = label
		out.Confidence = top.p
	}

	seen := make(map[string]struct{})
	add := func(list *[]string, s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		*list = append(*list, s)
	}

	for _, c := range ranked {
		if c.p < n.threshold {
			break
		}
		for _, cat := range findings[c.name] {
			switch cat {
			case catDisease:
				add(&out.Findings.Diseases, withCrop(c.name, cropType))
			case catPest:
				add(&out.Findings.Pests, withCrop(c.name, cropType))
			case catNutrient:
				add(&out.Findings.NutrientDeficiencies, withCrop(c.name, cropType))
			case catStress:
				add(&out.Findings.StressSigns, StressGeneral)
			}
		}
	}

	if top.name == ClassNotHealthy && top.p >= issueConfidence {
		add(&out.Findings.StressSigns, StressHealthIssues)
	}
	return out
}

func withCrop(name, crop string) string {
	if crop == "" {
		return name
	}
	return name + " (" + crop + ")"
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
