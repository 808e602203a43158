package synctarget

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process target, used in tests and for dry runs.
type Memory struct {
	// MaxSize rejects content larger than this many bytes when positive.
	MaxSize int

	mu    sync.Mutex
	files map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, path string, content []byte) error {
	if m.MaxSize > 0 && len(content) > m.MaxSize {
		return fmt.Errorf("%s is %d bytes: %w", path, len(content), ErrRejected)
	}
	b := make([]byte, len(content))
	copy(b, content)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = b
	return nil
}

func (m *Memory) Get(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
