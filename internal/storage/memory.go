package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryStorage is a process local StorageClient used by tests and single node development.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	// UploadErr, when set, is returned by every UploadFile call.
	UploadErr error
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

// UploadFile implements StorageClient.
func (m *MemoryStorage) UploadFile(_ context.Context, objectName string, data io.Reader, contentType string) error {
	if m.UploadErr != nil {
		return m.UploadErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = memoryObject{data: b, contentType: contentType}
	return nil
}

// DownloadFile implements StorageClient.
func (m *MemoryStorage) DownloadFile(_ context.Context, objectName string) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[objectName]
	if !ok {
		return nil, 0, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), int64(len(obj.data)), nil
}

// DeleteFile implements StorageClient.
func (m *MemoryStorage) DeleteFile(_ context.Context, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectName)
	return nil
}

// Objects lists the stored object names.
func (m *MemoryStorage) Objects() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	return names
}

// ContentType returns the content type recorded for objectName.
func (m *MemoryStorage) ContentType(objectName string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[objectName].contentType
}
