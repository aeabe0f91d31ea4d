package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/httpx"
)

// Handler exposes the catalog under /api/movies and posters under /api/images.
type Handler struct {
	client  *Client
	posters *Posters
	log     logrus.FieldLogger
}

func NewHandler(client *Client, posters *Posters, log logrus.FieldLogger) *Handler {
	return &Handler{client: client, posters: posters, log: log}
}

// MovieRoutes mounts the catalog endpoints; callers wrap them in RequireAuth.
func (h *Handler) MovieRoutes(r chi.Router) {
	r.Get("/popular", h.Popular)
	r.Get("/search", h.Search)
	r.Get("/genres", h.Genres)
	r.Get("/discover", h.Discover)
	r.Get("/{id}", h.Details)
}

// ImageRoutes mounts the public poster proxy.
func (h *Handler) ImageRoutes(r chi.Router) {
	r.Get("/{size}/{file}", h.Poster)
}

func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, "popular movies", func(ctx context.Context) (json.RawMessage, error) {
		return h.client.Popular(ctx, page(r))
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		httpx.WriteError(w, r, h.log, apperr.Validation("Search query is required"))
		return
	}
	h.relay(w, r, "search movies", func(ctx context.Context) (json.RawMessage, error) {
		return h.client.Search(ctx, query, page(r))
	})
}

func (h *Handler) Genres(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, "genres", h.client.Genres)
}

func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := DiscoverFilter{
		Genre:     strings.TrimSpace(q.Get("genre")),
		Year:      strings.TrimSpace(q.Get("year")),
		MinRating: strings.TrimSpace(q.Get("rating")),
		Page:      page(r),
	}
	h.relay(w, r, "discover movies", func(ctx context.Context) (json.RawMessage, error) {
		return h.client.Discover(ctx, f)
	})
}

func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.relay(w, r, "movie details", func(ctx context.Context) (json.RawMessage, error) {
		return h.client.Details(ctx, id)
	})
}

func (h *Handler) Poster(w http.ResponseWriter, r *http.Request) {
	img, err := h.posters.Get(r.Context(), chi.URLParam(r, "size"), chi.URLParam(r, "file"))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=2592000")
	if img.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Write(img.Data)
}

func (h *Handler) relay(w http.ResponseWriter, r *http.Request, op string, call func(context.Context) (json.RawMessage, error)) {
	body, err := call(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.log, upstreamErr(op, err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// page reads ?page=, defaulting to 1.
func page(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}
