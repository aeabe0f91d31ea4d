package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/yumovie/backend/internal/apperr"
)

const (
	maxImageBytes = 10 << 20
	fetchTimeout  = 30 * time.Second
)

var (
	allowedSizes = map[string]bool{
		"w92": true, "w154": true, "w185": true, "w342": true,
		"w500": true, "w780": true, "original": true,
	}
	posterFile = regexp.MustCompile(`^[A-Za-z0-9_-]+\.(jpg|jpeg|png|webp)$`)
)

// ImageCache stores fetched poster bytes. Get reports apperr.ErrRecordNotFound
// on a miss.
type ImageCache interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Image is a poster ready to serve.
type Image struct {
	Data        []byte
	ContentType string
	Cached      bool
}

// Posters fetches TMDB poster images through a cache.
type Posters struct {
	baseURL string
	httpc   *http.Client
	cache   ImageCache
	log     logrus.FieldLogger
	group   singleflight.Group

	maxBytes int64
	timeout  time.Duration
}

func NewPosters(baseURL string, cache ImageCache, httpc *http.Client, log logrus.FieldLogger) *Posters {
	if httpc == nil {
		httpc = &http.Client{Timeout: fetchTimeout}
	}
	return &Posters{
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpc:    httpc,
		cache:    cache,
		log:      log,
		maxBytes: maxImageBytes,
		timeout:  fetchTimeout,
	}
}

// Get returns the poster file at the given TMDB size. Concurrent misses for
// the same key share one upstream fetch, which runs detached from any single
// caller's cancellation and is bounded by the fetch timeout instead.
func (p *Posters) Get(ctx context.Context, size, file string) (*Image, error) {
	if !allowedSizes[size] {
		return nil, apperr.Validation("Unsupported image size")
	}
	if !posterFile.MatchString(file) {
		return nil, apperr.Validation("Invalid image name")
	}
	key := size + "/" + file

	data, ct, err := p.cache.Get(ctx, key)
	if err == nil {
		return &Image{Data: data, ContentType: ct, Cached: true}, nil
	}
	if !errors.Is(err, apperr.ErrRecordNotFound) {
		p.log.WithError(err).WithField("key", key).Warn("poster cache read failed")
	}

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		img, err := p.fetch(fctx, key)
		if err != nil {
			return nil, err
		}
		if err := p.cache.Put(fctx, key, img.Data, img.ContentType); err != nil {
			p.log.WithError(err).WithField("key", key).Warn("poster cache write failed")
		}
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Image), nil
}

func (p *Posters) fetch(ctx context.Context, key string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+key, nil)
	if err != nil {
		return nil, apperr.Internal("build poster request", err)
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, apperr.Internal("fetch poster", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.NotFound("Image not found")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Internal("fetch poster", fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, apperr.Internal("read poster", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, apperr.Internal("read poster", fmt.Errorf("poster larger than %d bytes", p.maxBytes))
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return &Image{Data: data, ContentType: ct}, nil
}
