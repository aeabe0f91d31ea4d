package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/yumovie/backend/internal/httpx"
)

// Handler holds admin HTTP handlers. Callers mount it behind RequireAuth and
// RequireAdmin.
type Handler struct {
	svc *Service
	log logrus.FieldLogger
}

func NewHandler(svc *Service, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/users", h.ListUsers)
	r.Delete("/users/{id}", h.DeleteUser)
	r.Get("/reviews", h.ListReviews)
	r.Delete("/reviews/{id}", h.DeleteReview)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "User deleted")
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.ListReviews(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reviews)
}

func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteReview(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Review removed")
}
