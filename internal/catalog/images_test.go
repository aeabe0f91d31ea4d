package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumovie/backend/internal/apperr"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ct   map[string]string
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ct: map[string]string{}}
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	if !ok {
		return nil, "", apperr.ErrRecordNotFound
	}
	return d, m.ct[key], nil
}

func (m *memCache) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	m.ct[key] = contentType
	return nil
}

func newTestPosters(t *testing.T, h http.HandlerFunc) (*Posters, *memCache) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	log, _ := test.NewNullLogger()
	cache := newMemCache()
	return NewPosters(srv.URL, cache, srv.Client(), log), cache
}

func TestPosterMissThenHit(t *testing.T) {
	var calls atomic.Int32
	p, cache := newTestPosters(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/w500/abc123.jpg", r.URL.Path)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegbytes"))
	})
	ctx := context.Background()

	img, err := p.Get(ctx, "w500", "abc123.jpg")
	require.NoError(t, err)
	assert.False(t, img.Cached)
	assert.Equal(t, "image/jpeg", img.ContentType)
	assert.Contains(t, cache.data, "w500/abc123.jpg")

	img, err = p.Get(ctx, "w500", "abc123.jpg")
	require.NoError(t, err)
	assert.True(t, img.Cached)
	assert.Equal(t, []byte("jpegbytes"), img.Data)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPosterRejectsBadInput(t *testing.T) {
	p, _ := newTestPosters(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	for _, tc := range []struct{ size, file string }{
		{"w9999", "a.jpg"},
		{"w500", "../etc/passwd"},
		{"w500", "a.exe"},
		{"", "a.jpg"},
	} {
		_, err := p.Get(context.Background(), tc.size, tc.file)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%s/%s", tc.size, tc.file)
	}
}

func TestPosterUpstreamNotFound(t *testing.T) {
	p, cache := newTestPosters(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := p.Get(context.Background(), "w185", "missing.png")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Empty(t, cache.data)
}

func TestPosterRejectsOversizedBody(t *testing.T) {
	p, cache := newTestPosters(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegbytes"))
	})
	p.maxBytes = 4

	_, err := p.Get(context.Background(), "w500", "big.jpg")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Empty(t, cache.data, "a truncated poster must not be cached")
}

func TestPosterAcceptsBodyAtLimit(t *testing.T) {
	p, cache := newTestPosters(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegbytes"))
	})
	p.maxBytes = int64(len("jpegbytes"))

	img, err := p.Get(context.Background(), "w500", "edge.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpegbytes"), img.Data)
	assert.Contains(t, cache.data, "w500/edge.jpg")
}

func TestPosterFetchSurvivesCallerCancel(t *testing.T) {
	p, cache := newTestPosters(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.Context().Err())
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("pngbytes"))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	img, err := p.Get(ctx, "w342", "shared.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("pngbytes"), img.Data)
	assert.Contains(t, cache.data, "w342/shared.png")
}

func TestPosterFetchHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	p, cache := newTestPosters(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	p.timeout = 50 * time.Millisecond

	_, err := p.Get(context.Background(), "w92", "slow.jpg")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Empty(t, cache.data)
}
