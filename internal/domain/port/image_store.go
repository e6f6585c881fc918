package port

import "context"

// ImageStore долговременное хранилище снимков
type ImageStore interface {
	// Save сохраняет снимок под ключом поля и точки, возвращает ссылку
	Save(ctx context.Context, data []byte, fieldID, spotID, filename string) (string, error)

	// Load читает снимок по ссылке
	Load(ctx context.Context, handle string) ([]byte, error)

	// Delete удаляет снимок; используется при откате
	Delete(ctx context.Context, handle string) error
}
