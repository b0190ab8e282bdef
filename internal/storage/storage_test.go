package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"imob-crm/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]string{}, types: map[string]string{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = string(body)
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func testConfig(endpoint string) config.StorageConfig {
	return config.StorageConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		Bucket:          "fotos",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
	}
}

func TestNewS3Storage_Disabled(t *testing.T) {
	_, err := NewS3Storage(context.Background(), config.StorageConfig{Bucket: "fotos"})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestS3Storage_UploadAndDelete(t *testing.T) {
	fake := newFakeS3()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewS3Storage(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), "properties/1/foto.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/fotos/properties/1/foto.jpg", url)

	fake.mu.Lock()
	assert.Equal(t, "jpeg-bytes", fake.objects["/fotos/properties/1/foto.jpg"])
	assert.Equal(t, "image/jpeg", fake.types["/fotos/properties/1/foto.jpg"])
	fake.mu.Unlock()

	require.NoError(t, s.Delete(context.Background(), "properties/1/foto.jpg"))
	fake.mu.Lock()
	assert.Empty(t, fake.objects)
	fake.mu.Unlock()
}

func TestS3Storage_URL(t *testing.T) {
	cfg := testConfig("")
	s, err := NewS3Storage(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://fotos.s3.us-east-1.amazonaws.com/a.png", s.URL("a.png"))

	cfg.PublicBaseURL = "https://cdn.exemplo.com.br/public/"
	s, err = NewS3Storage(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.exemplo.com.br/public/a.png", s.URL("a.png"))
}

func TestPhotoKey(t *testing.T) {
	key := PhotoKey(42, `C:\fotos\Sala.JPG`)
	assert.True(t, strings.HasPrefix(key, "properties/42/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, PhotoKey(42, "Sala.JPG"))

	assert.NotContains(t, PhotoKey(1, "semextensao"), ".")
}
