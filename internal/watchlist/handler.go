package watchlist

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/yumovie/backend/internal/httpx"
	"github.com/yumovie/backend/internal/middleware"
	"github.com/yumovie/backend/internal/models"
)

// Handler holds personal watchlist HTTP handlers.
type Handler struct {
	svc *Service
	log logrus.FieldLogger
}

func NewHandler(svc *Service, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Remove)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	items, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req models.WatchlistAdd
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	user := middleware.CurrentUser(r.Context())
	item, err := h.svc.Add(r.Context(), user.ID, req)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.WatchlistUpdate
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	user := middleware.CurrentUser(r.Context())
	item, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), user.ID, req)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	if err := h.svc.Remove(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Item removed")
}
