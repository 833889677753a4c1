package r2client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// memStore is an in-memory ConditionalStore with monotonically numbered ETags.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	etags   map[string]string
	seq     int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, etags: map[string]string{}}
}

func (m *memStore) put(key string, body []byte) string {
	m.seq++
	etag := fmt.Sprintf("etag-%d", m.seq)
	m.objects[key] = append([]byte(nil), body...)
	m.etags[key] = etag
	return etag
}

func (m *memStore) PutIfAbsent(_ context.Context, key string, body []byte) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return false, "", nil
	}
	return true, m.put(key, body), nil
}

func (m *memStore) PutIfMatch(_ context.Context, key string, body []byte, etag string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.etags[key] != etag {
		return false, "", nil
	}
	return true, m.put(key, body), nil
}

func (m *memStore) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.objects[key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), m.etags[key], nil
}

func (m *memStore) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.etags, key)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
