package blob

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00")
	webpHeader = []byte("RIFF\x24\x00\x00\x00WEBPVP8 \x18\x00\x00\x00")
)

func TestValidateImageAcceptsAllowedTypes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		mime string
		ext  string
	}{
		{name: "png", data: pngHeader, mime: "image/png", ext: ".png"},
		{name: "jpeg", data: jpegHeader, mime: "image/jpeg", ext: ".jpg"},
		{name: "gif", data: gifHeader, mime: "image/gif", ext: ".gif"},
		{name: "webp", data: webpHeader, mime: "image/webp", ext: ".webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ValidateImage(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.mime, img.ContentType)
			assert.Equal(t, tt.ext, img.Extension)
		})
	}
}

func TestValidateImageRejects(t *testing.T) {
	_, err := ValidateImage(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = ValidateImage([]byte("just some text, not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxImageBytes)...)
	_, err = ValidateImage(big)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestObjectNameKeepsExtension(t *testing.T) {
	a := ObjectName(Image{Extension: ".png"})
	b := ObjectName(Image{Extension: ".png"})
	assert.True(t, strings.HasPrefix(a, "complaint-"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
}

func TestLocalStorePut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "complaint-abc.png", "image/png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/complaint-abc.png", url)

	written, err := os.ReadFile(filepath.Join(dir, "complaint-abc.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, written)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../escape.png", `a\b.png`, ".hidden"} {
		_, err := store.Put(context.Background(), name, "image/png", pngHeader)
		assert.Error(t, err, name)
	}
}

func TestLocalStoreHonoursCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Put(ctx, "x.png", "image/png", pngHeader)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestObjectBaseURL(t *testing.T) {
	assert.Equal(t, "http://minio:9000/denuncias/", objectBaseURL("minio:9000", "denuncias", false))
	assert.Equal(t, "https://s3.example.com/img/", objectBaseURL("s3.example.com/", "img", true))
}
