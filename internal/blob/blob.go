// Package blob stores complaint images and validates uploads before any
// write happens.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const MaxImageBytes = 10 * 1024 * 1024

var (
	ErrImageTooLarge    = errors.New("image exceeds 10MB")
	ErrUnsupportedImage = errors.New("only jpeg, png, gif and webp images are allowed")
	ErrEmptyImage       = errors.New("image is empty")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store persists an object and returns the URL it will be served from. The
// URL may be relative (local disk) or absolute (object storage).
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Image is an upload that passed validation.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// ValidateImage sniffs the payload instead of trusting the client-declared
// content type.
func ValidateImage(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	if len(data) > MaxImageBytes {
		return Image{}, ErrImageTooLarge
	}
	detected := mimetype.Detect(data)
	base := strings.TrimSpace(strings.SplitN(detected.String(), ";", 2)[0])
	ext, ok := allowedImageTypes[base]
	if !ok {
		return Image{}, fmt.Errorf("%w (got %s)", ErrUnsupportedImage, base)
	}
	return Image{Data: data, ContentType: base, Extension: ext}, nil
}

// ObjectName returns a collision-free name keeping the image extension.
func ObjectName(img Image) string {
	return "complaint-" + uuid.NewString() + img.Extension
}
