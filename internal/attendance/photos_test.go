package attendance

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"agriflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestPhotosRemovePreservesOrder(t *testing.T) {
	for n := 1; n <= 4; n++ {
		for i := 0; i < n; i++ {
			var p Photos
			var want []model.CapturedImage
			for k := 0; k < n; k++ {
				img := model.CapturedImage{Name: string(rune('a' + k))}
				p.Add(img)
				if k != i {
					want = append(want, img)
				}
			}
			require.NoError(t, p.Remove(i))
			assert.Equal(t, n-1, p.Len())
			if len(want) == 0 {
				assert.Empty(t, p.All())
			} else {
				assert.Equal(t, want, p.All())
			}
		}
	}
}

func TestPhotosRemoveOutOfRange(t *testing.T) {
	var p Photos
	p.Add(model.CapturedImage{Name: "a"})
	assert.Error(t, p.Remove(1))
	assert.Error(t, p.Remove(-1))
	assert.Equal(t, 1, p.Len())
}

func TestPhotosAllIsACopy(t *testing.T) {
	var p Photos
	p.Add(model.CapturedImage{Name: "a"})
	all := p.All()
	all[0].Name = "changed"
	got, ok := p.At(0)
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)
}

func TestLoadPhoto(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaf.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t), 0o644))

	img, err := LoadPhoto(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "leaf.png", img.Name)
	assert.Equal(t, "image/png", img.ContentType)
}

func TestLoadPhotoRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just text"), 0o644))

	_, err := LoadPhoto(path, 0)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestLoadPhotoRejectsLargeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	data := pngBytes(t)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err := LoadPhoto(path, int64(len(data)-1))
	assert.ErrorIs(t, err, ErrPhotoTooLarge)
}
