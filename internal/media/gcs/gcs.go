// Package gcs stores product images in a Google Cloud Storage bucket.
// Objects are expected to be publicly readable through bucket IAM.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/media"
)

// DefaultPublicBaseURL serves objects of public buckets.
const DefaultPublicBaseURL = "https://storage.googleapis.com"

// Storage implements media.Storage on a GCS bucket.
type Storage struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

// New creates a GCS-backed store. An empty publicBaseURL uses
// DefaultPublicBaseURL.
func New(client *storage.Client, bucket, publicBaseURL string) (*Storage, error) {
	if client == nil {
		return nil, errors.New("gcs: storage client is nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("gcs: bucket is empty")
	}
	if publicBaseURL == "" {
		publicBaseURL = DefaultPublicBaseURL
	}
	return &Storage{client: client, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

var _ media.Storage = (*Storage)(nil)

// Upload writes data to a new object under folder.
func (s *Storage) Upload(ctx context.Context, folder string, data []byte, contentType string) (domain.Image, error) {
	id := media.NewPublicID(folder, contentType)

	w := s.client.Bucket(s.bucket).Object(id).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000, immutable"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return domain.Image{}, fmt.Errorf("gcs write %s: %w", id, err)
	}
	if err := w.Close(); err != nil {
		return domain.Image{}, fmt.Errorf("gcs close %s: %w", id, err)
	}
	return domain.Image{PublicID: id, URL: s.PublicURL(id)}, nil
}

// Delete removes the object. A missing object is not an error.
func (s *Storage) Delete(ctx context.Context, publicID string) error {
	err := s.client.Bucket(s.bucket).Object(publicID).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", publicID, err)
	}
	return nil
}

// PublicURL is the URL an object is served from.
func (s *Storage) PublicURL(publicID string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, publicID)
}
