// Package inference адаптеры провайдеров моделей классификации.
package inference

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cropscout/internal/domain/entity"
)

var (
	diseaseClasses = []string{"Cerscospora", "Healthy", "Leaf rust", "Miner", "Phoma"}
	binaryClasses  = []string{"Healthy", "Not Healthy"}
)

// Catalog известные архитектуры и их классы; порядок задаёт приоритет сопоставления
var Catalog = []entity.ModelDescriptor{
	{Name: "ShuffleNet", ClassCount: 5, ClassNames: diseaseClasses},
	{Name: "MobileNetV3", ClassCount: 5, ClassNames: diseaseClasses},
	{Name: "EfficientNet", ClassCount: 5, ClassNames: diseaseClasses},
	{Name: "CustomCNN1", ClassCount: 5, ClassNames: diseaseClasses},
	{Name: "CustomCNN2", ClassCount: 5, ClassNames: diseaseClasses},
	{Name: "CustomCNN3", ClassCount: 5, ClassNames: diseaseClasses},
	{Name: "BinaryCNN_Light", ClassCount: 2, ClassNames: binaryClasses},
	{Name: "BinaryCNN_Deep", ClassCount: 2, ClassNames: binaryClasses},
	{Name: "BinaryCNN_Efficient", ClassCount: 2, ClassNames: binaryClasses},
}

// WeightsExt расширение файлов весов
const WeightsExt = ".pth"

// ModelName имя модели по имени файла весов: CustomCNN1_best.pth -> CustomCNN1
func ModelName(file string) string {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	stem = strings.ReplaceAll(stem, "_best", "")
	return strings.ReplaceAll(stem, "_checkpoint", "")
}

// Match сопоставляет имя файла с архитектурой каталога без учёта регистра:
// сначала точное совпадение, затем вхождение одного имени в другое.
func Match(name string) (entity.ModelDescriptor, bool) {
	n := strings.ToLower(name)
	if n == "" {
		return entity.ModelDescriptor{}, false
	}
	for _, d := range Catalog {
		if strings.ToLower(d.Name) == n {
			return d, true
		}
	}
	for _, d := range Catalog {
		c := strings.ToLower(d.Name)
		if strings.Contains(n, c) || strings.Contains(c, n) {
			return d, true
		}
	}
	return entity.ModelDescriptor{}, false
}

// Scan ищет файлы весов в каталоге и сопоставляет их с каталогом архитектур.
// Каждая архитектура берётся не более одного раза; порядок по имени файла.
// Отсутствующий каталог не ошибка: моделей просто нет.
func Scan(dir string) ([]entity.ModelDescriptor, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("scan models dir %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), WeightsExt) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var (
		out       []entity.ModelDescriptor
		unmatched []string
		seen      = make(map[string]struct{})
	)
	for _, f := range files {
		d, ok := Match(ModelName(f))
		if !ok {
			unmatched = append(unmatched, f)
			continue
		}
		if _, dup := seen[d.Name]; dup {
			continue
		}
		seen[d.Name] = struct{}{}
		d.Path = filepath.Join(dir, f)
		out = append(out, d)
	}
	return out, unmatched, nil
}
