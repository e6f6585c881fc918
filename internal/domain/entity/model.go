package entity

// ModelDescriptor описание развёрнутой модели классификации
type ModelDescriptor struct {
	Name       string   `json:"name"`
	ClassCount int      `json:"num_classes"`
	ClassNames []string `json:"class_names"`
	Path       string   `json:"path,omitempty"`
}

// ModelHandle загруженная модель; только для чтения, безопасна для конкурентного использования
type ModelHandle struct {
	Descriptor ModelDescriptor
	// Ref непрозрачная ссылка провайдера (путь к весам, id на сервере моделей)
	Ref string
}
