// Package storage persists uploaded profile images and returns a stable
// location for them.
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedType is returned for uploads that are not images.
var ErrUnsupportedType = errors.New("only image uploads are allowed")

// Storage accepts an upload of a sniffed content type and returns the path or
// URL it is served from.
type Storage interface {
	Save(ctx context.Context, contentType string, r io.Reader) (string, error)
}

var imageExtensions = map[string]string{
	"image/png":    ".png",
	"image/jpeg":   ".jpg",
	"image/gif":    ".gif",
	"image/webp":   ".webp",
	"image/bmp":    ".bmp",
	"image/x-icon": ".ico",
}

// objectName builds a collision-free file name. The extension comes from the
// sniffed content type, never from the client's file name.
func objectName(contentType string) string {
	ext, ok := imageExtensions[contentType]
	if !ok {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return uuid.New().String() + ext
}

// SniffImage detects the content type of data and rejects anything that is not an image.
func SniffImage(data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedType
	}
	return contentType, nil
}
