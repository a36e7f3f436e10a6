package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// ObjectStorage - хранилище снимков турнира (R2/S3 или память в тестах).
type ObjectStorage interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	// Download возвращает содержимое объекта; ErrObjectNotFound, если его нет.
	Download(ctx context.Context, key string) ([]byte, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
