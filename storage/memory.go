package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

type MemoryStorage struct {
	mu            sync.RWMutex
	objects       map[string][]byte
	publicBaseURL string
}

// NewMemoryStorage - хранилище в памяти, для тестов и локального запуска без R2.
func NewMemoryStorage(publicBaseURL string) *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte), publicBaseURL: publicBaseURL}
}

func (m *MemoryStorage) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read upload body (key: %s): %w", key, err)
	}
	m.mu.Lock()
	m.objects[key] = buf.Bytes()
	m.mu.Unlock()
	return &UploadResult{Key: key, Location: m.GetPublicURL(key)}, nil
}

func (m *MemoryStorage) Download(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) GetPublicURL(key string) string {
	return publicURL(m.publicBaseURL, key)
}

// Keys возвращает ключи с заданным префиксом по возрастанию.
func (m *MemoryStorage) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
