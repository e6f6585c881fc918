package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	"cloud.google.com/go/storage"
)

// GCS хранит снимки в бакете Google Cloud Storage
type GCS struct {
	bucket *storage.BucketHandle
	prefix string
}

// NewGCS использует учётные данные окружения (GOOGLE_APPLICATION_CREDENTIALS)
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, func() error, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{bucket: client.Bucket(bucket), prefix: prefix}, client.Close, nil
}

// Save загружает объект и возвращает его ключ
func (s *GCS) Save(ctx context.Context, data []byte, fieldID, spotID, filename string) (string, error) {
	key := objectKey(fieldID, spotID, filename)
	w := s.bucket.Object(s.name(key)).NewWriter(ctx)
	w.ContentType = contentType(key)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// Load скачивает объект
func (s *GCS) Load(ctx context.Context, handle string) ([]byte, error) {
	if !validKey(handle) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	r, err := s.bucket.Object(s.name(handle)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", handle, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Delete удаляет объект; отсутствующий объект не ошибка
func (s *GCS) Delete(ctx context.Context, handle string) error {
	if !validKey(handle) {
		return fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	err := s.bucket.Object(s.name(handle)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", handle, err)
	}
	return nil
}

func (s *GCS) name(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func contentType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}
