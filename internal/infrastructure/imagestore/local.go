package imagestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Local хранит снимки в каталоге на диске
type Local struct {
	root string
}

// NewLocal создаёт каталог при необходимости
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Local{root: root}, nil
}

// Save записывает снимок атомарно через временный файл
func (s *Local) Save(ctx context.Context, data []byte, fieldID, spotID, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := objectKey(fieldID, spotID, filename)
	if !validKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, key)
	}
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create field directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save file: %w", err)
	}
	return key, nil
}

// Load читает снимок
func (s *Local) Load(ctx context.Context, handle string) ([]byte, error) {
	p, err := s.path(handle)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Delete удаляет снимок; отсутствующий файл не ошибка
func (s *Local) Delete(ctx context.Context, handle string) error {
	p, err := s.path(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	// пустой каталог поля больше не нужен
	_ = os.Remove(filepath.Dir(p))
	return nil
}

func (s *Local) path(handle string) (string, error) {
	if !validKey(handle) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return filepath.Join(s.root, filepath.FromSlash(handle)), nil
}
