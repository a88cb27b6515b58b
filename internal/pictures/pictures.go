// Package pictures stores user-uploaded profile pictures as thumbnails.
package pictures

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/kailas-cloud/seshat/internal/domain"
)

// ThumbnailSize bounds both dimensions of a stored picture.
const ThumbnailSize = 125

// maxUploadBytes caps the size of an uploaded picture.
const maxUploadBytes = 8 << 20

var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Store persists picture files and resolves their public URL.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// Service thumbnails uploads and hands them to a Store.
type Service struct {
	store Store
}

// New creates a Service.
func New(store Store) *Service {
	return &Service{store: store}
}

// URL returns the public URL of a stored picture.
func (s *Service) URL(name string) string {
	return s.store.URL(name)
}

// Save decodes the upload, shrinks it to fit ThumbnailSize and stores it
// under a random name keeping the original extension. Returns the stored name.
func (s *Service) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := allowedExt[ext]
	if !ok {
		return "", invalid("File must be a jpg or png image.")
	}

	img, _, err := image.Decode(io.LimitReader(r, maxUploadBytes))
	if err != nil {
		return "", invalid("Could not read image.")
	}

	var buf bytes.Buffer
	thumb := Thumbnail(img, ThumbnailSize)
	if contentType == "image/png" {
		err = png.Encode(&buf, thumb)
	} else {
		err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	name := uuid.NewString() + ext
	if err := s.store.Put(ctx, name, buf.Bytes(), contentType); err != nil {
		return "", fmt.Errorf("store picture %s: %w", name, err)
	}
	return name, nil
}

// Delete removes a stored picture. The shared default picture is never removed.
func (s *Service) Delete(ctx context.Context, name string) error {
	if name == "" || name == DefaultPicture {
		return nil
	}
	return s.store.Delete(ctx, name)
}

// DefaultPicture is the placeholder every account starts with.
const DefaultPicture = "default.jpg"

// Thumbnail scales img down to fit in a size×size box, keeping the aspect
// ratio. Smaller images are returned unchanged.
func Thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return img
	}

	if w >= h {
		h = max(1, h*size/w)
		w = size
	} else {
		w = max(1, w*size/h)
		h = size
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func invalid(msg string) error {
	v := domain.NewValidationError()
	v.Add("picture", msg)
	return v
}
