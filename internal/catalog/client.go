// Package catalog proxies the TMDB movie catalog: listings, search, details
// and poster images.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yumovie/backend/internal/apperr"
)

const (
	defaultLanguage = "en-US"
	maxAttempts     = 3
)

// ErrNotConfigured is returned when no TMDB API key is set.
var ErrNotConfigured = errors.New("tmdb api key not configured")

// StatusError is a non-2xx answer from TMDB.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb request failed: %d %s", e.Code, http.StatusText(e.Code))
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

type Options struct {
	APIKey   string
	BaseURL  string
	RPS      float64
	HTTP     *http.Client
	Registry prometheus.Registerer
	// RetryDelay is the first backoff step; zero means 300ms.
	RetryDelay time.Duration
}

// Client is a throttled, retrying TMDB API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpc      *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
	log        logrus.FieldLogger
	requests   *prometheus.CounterVec
}

func NewClient(opts Options, log logrus.FieldLogger) *Client {
	httpc := opts.HTTP
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	delay := opts.RetryDelay
	if delay == 0 {
		delay = 300 * time.Millisecond
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tmdb_requests_total",
		Help: "Upstream TMDB requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	if opts.Registry != nil {
		opts.Registry.MustRegister(requests)
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpc:      httpc,
		limiter:    rate.NewLimiter(limit, 1),
		retryDelay: delay,
		log:        log,
		requests:   requests,
	}
}

func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

// Popular returns one page of /movie/popular.
func (c *Client) Popular(ctx context.Context, page int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	return c.get(ctx, "popular", "/movie/popular", q)
}

// Search returns one page of /search/movie results for query.
func (c *Client) Search(ctx context.Context, query string, page int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	return c.get(ctx, "search", "/search/movie", q)
}

// Genres returns the bare genre array from /genre/movie/list.
func (c *Client) Genres(ctx context.Context) (json.RawMessage, error) {
	body, err := c.get(ctx, "genres", "/genre/movie/list", url.Values{})
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Genres json.RawMessage `json:"genres"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode genres: %w", err)
	}
	if len(wrapped.Genres) == 0 {
		return json.RawMessage("[]"), nil
	}
	return wrapped.Genres, nil
}

// DiscoverFilter narrows /discover/movie. Empty fields are not sent.
type DiscoverFilter struct {
	Genre     string
	Year      string
	MinRating string
	Page      int
}

// Discover returns movies matching f, most popular first, adult titles excluded.
func (c *Client) Discover(ctx context.Context, f DiscoverFilter) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("sort_by", "popularity.desc")
	q.Set("include_adult", "false")
	q.Set("page", strconv.Itoa(f.Page))
	if f.Genre != "" {
		q.Set("with_genres", f.Genre)
	}
	if f.Year != "" {
		q.Set("primary_release_year", f.Year)
	}
	if f.MinRating != "" {
		q.Set("vote_average.gte", f.MinRating)
	}
	return c.get(ctx, "discover", "/discover/movie", q)
}

// Details returns one movie with its videos and watch providers.
func (c *Client) Details(ctx context.Context, id string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("append_to_response", "videos,watch/providers")
	return c.get(ctx, "details", "/movie/"+url.PathEscape(id), q)
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	q.Set("api_key", c.apiKey)
	q.Set("language", defaultLanguage)
	target := c.baseURL + path + "?" + q.Encode()

	var body []byte
	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			b, err := c.fetch(ctx, target)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.log.WithFields(logrus.Fields{"endpoint": endpoint, "attempt": n + 1}).WithError(err).Warn("tmdb request retrying")
		}),
	)
	c.requests.WithLabelValues(endpoint, outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func outcome(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return strconv.Itoa(se.Code)
	default:
		return "error"
	}
}

// upstreamErr maps client failures onto the service error taxonomy.
func upstreamErr(op string, err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return apperr.NotFound("Movie not found")
	}
	return apperr.Internal(op, err)
}
