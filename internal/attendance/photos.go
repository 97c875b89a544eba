package attendance

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"agriflow/internal/model"

	"github.com/dustin/go-humanize"
)

// DefaultMaxPhotoBytes bounds a single photo.
const DefaultMaxPhotoBytes = 10 << 20

// CapturedPhotoName is the file name given to camera snapshots.
const CapturedPhotoName = "captured-image.jpg"

var (
	// ErrNotImage is returned for files that do not sniff as an image.
	ErrNotImage = errors.New("not an image")
	// ErrPhotoTooLarge is returned for files above the size limit.
	ErrPhotoTooLarge = errors.New("photo too large")
)

// Photos is the ordered list of photos collected for one submission.
type Photos struct {
	items []model.CapturedImage
}

// Add appends photos in order.
func (p *Photos) Add(imgs ...model.CapturedImage) {
	p.items = append(p.items, imgs...)
}

// Remove drops the photo at index i; the others keep their order.
func (p *Photos) Remove(i int) error {
	if i < 0 || i >= len(p.items) {
		return fmt.Errorf("photo %d out of range (have %d)", i, len(p.items))
	}
	next := make([]model.CapturedImage, 0, len(p.items)-1)
	next = append(next, p.items[:i]...)
	next = append(next, p.items[i+1:]...)
	p.items = next
	return nil
}

// Len returns the number of photos.
func (p *Photos) Len() int { return len(p.items) }

// At returns the photo at index i.
func (p *Photos) At(i int) (model.CapturedImage, bool) {
	if i < 0 || i >= len(p.items) {
		return model.CapturedImage{}, false
	}
	return p.items[i], true
}

// All returns a copy of the list.
func (p *Photos) All() []model.CapturedImage {
	return append([]model.CapturedImage(nil), p.items...)
}

// LoadPhoto reads an image file from disk. maxBytes <= 0 means the default.
func LoadPhoto(path string, maxBytes int64) (model.CapturedImage, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPhotoBytes
	}
	info, err := os.Stat(path)
	if err != nil {
		return model.CapturedImage{}, fmt.Errorf("failed to read photo: %w", err)
	}
	if info.Size() > maxBytes {
		return model.CapturedImage{}, fmt.Errorf("%s is %s, limit %s: %w",
			filepath.Base(path), humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(maxBytes)), ErrPhotoTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.CapturedImage{}, fmt.Errorf("failed to read photo: %w", err)
	}
	return NewPhoto(filepath.Base(path), data)
}

// NewPhoto wraps in-memory image bytes, sniffing the content type.
func NewPhoto(name string, data []byte) (model.CapturedImage, error) {
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return model.CapturedImage{}, fmt.Errorf("%s (%s): %w", name, contentType, ErrNotImage)
	}
	return model.CapturedImage{
		Name:        name,
		ContentType: contentType,
		Data:        data,
	}, nil
}
