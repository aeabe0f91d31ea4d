package review

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/yumovie/backend/internal/httpx"
	"github.com/yumovie/backend/internal/middleware"
	"github.com/yumovie/backend/internal/models"
)

type Handler struct {
	svc *Service
	log logrus.FieldLogger
}

func NewHandler(svc *Service, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes mounts the review endpoints. Listing is public; writes go through
// requireAuth.
func (h *Handler) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/{movieId}", h.List)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/{movieId}", h.Create)
		r.Put("/{movieId}/mine", h.Update)
		r.Delete("/{movieId}/mine", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.ListForMovie(r.Context(), chi.URLParam(r, "movieId"))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reviews)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ReviewInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	user := middleware.CurrentUser(r.Context())
	rev, err := h.svc.Create(r.Context(), chi.URLParam(r, "movieId"), user.ID, in)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rev)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.ReviewInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	user := middleware.CurrentUser(r.Context())
	rev, err := h.svc.UpdateMine(r.Context(), chi.URLParam(r, "movieId"), user.ID, in)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rev)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	if err := h.svc.DeleteMine(r.Context(), chi.URLParam(r, "movieId"), user.ID); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Review removed")
}
