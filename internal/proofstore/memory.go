package proofstore

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// Memory is an in-process Store used in tests and credential-less dev runs.
type Memory struct {
	mu      sync.Mutex
	objects map[string]memObject
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

// Put seeds an object with an explicit creation time.
func (m *Memory) Put(path, contentType string, data []byte, createdAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = memObject{data: data, contentType: contentType, createdAt: createdAt}
}

func (m *Memory) Upload(_ context.Context, path, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.Put(path, contentType, data, time.Now())
	return nil
}

func (m *Memory) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return "", fmt.Errorf("object %s does not exist", path)
	}
	return fmt.Sprintf("memory://%s?expires=%d", path, time.Now().Add(ttl).Unix()), nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Object
	for path, obj := range m.objects {
		if strings.HasPrefix(path, prefix) {
			out = append(out, Object{Path: path, CreatedAt: obj.createdAt, Size: int64(len(obj.data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *Memory) Remove(_ context.Context, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		delete(m.objects, p)
	}
	return nil
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
