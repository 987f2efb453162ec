// Package media defines the contract for the external image store and the
// helpers shared by its adapters.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

// ProductsFolder is the folder product images are stored under.
const ProductsFolder = "products"

// MaxImageBytes bounds a single decoded image.
const MaxImageBytes = 5 << 20

// Storage uploads and deletes images. Upload returns the image's public id
// and URL; Delete of an unknown public id is not an error.
type Storage interface {
	Upload(ctx context.Context, folder string, data []byte, contentType string) (domain.Image, error)
	Delete(ctx context.Context, publicID string) error
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// DecodeDataURI decodes "data:<type>;base64,<payload>". Only image types
// listed in extensions are accepted.
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", apperrors.InvalidInput("image must be a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", apperrors.InvalidInput("malformed image data URI")
	}
	contentType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return nil, "", apperrors.InvalidInput("image data URI must be base64 encoded")
	}
	if _, ok := extensions[contentType]; !ok {
		return nil, "", apperrors.InvalidInput(fmt.Sprintf("unsupported image type %q", contentType))
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return nil, "", apperrors.InvalidInput("image exceeds 5MB")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", apperrors.InvalidInput("image payload is not valid base64")
	}
	if len(data) == 0 {
		return nil, "", apperrors.InvalidInput("image is empty")
	}
	if len(data) > MaxImageBytes {
		return nil, "", apperrors.InvalidInput("image exceeds 5MB")
	}
	return data, contentType, nil
}

// NewPublicID returns a fresh object name under folder for contentType.
func NewPublicID(folder, contentType string) string {
	return path.Join(folder, uuid.NewString()+extensions[contentType])
}
