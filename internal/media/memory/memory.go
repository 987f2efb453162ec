// Package memory is an in-process media.Storage for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/media"
)

type object struct {
	contentType string
	size        int
}

// Storage keeps object metadata in a map. No bytes are retained.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

// New creates an empty store whose URLs are rooted at baseURL.
func New(baseURL string) *Storage {
	return &Storage{objects: make(map[string]object), baseURL: strings.TrimRight(baseURL, "/")}
}

var _ media.Storage = (*Storage)(nil)

// Upload records the object and returns its URL.
func (s *Storage) Upload(_ context.Context, folder string, data []byte, contentType string) (domain.Image, error) {
	id := media.NewPublicID(folder, contentType)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id] = object{contentType: contentType, size: len(data)}

	return domain.Image{PublicID: id, URL: fmt.Sprintf("%s/media/%s", s.baseURL, id)}, nil
}

// Delete forgets the object.
func (s *Storage) Delete(_ context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, publicID)
	return nil
}

// Has reports whether publicID is stored.
func (s *Storage) Has(publicID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[publicID]
	return ok
}

// Len returns the number of stored objects.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
