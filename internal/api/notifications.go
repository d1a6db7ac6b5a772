package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pulseboard/notifications/internal/domain"
	"github.com/pulseboard/notifications/internal/notify"
	"github.com/pulseboard/notifications/internal/perms"
	"github.com/pulseboard/notifications/internal/store"
)

// NotificationHandler serves operations that span both logical views: fetch
// without a discriminator filter, delete, and dashboard stats.
type NotificationHandler struct {
	store *store.PostgresStore
	svc   *notify.Service
	perms *perms.Aggregator
}

func NewNotificationHandler(s *store.PostgresStore, svc *notify.Service, agg *perms.Aggregator) *NotificationHandler {
	return &NotificationHandler{store: s, svc: svc, perms: agg}
}

// Get returns whichever shape the row has; callers inspect the result.
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	detail, err := h.store.GetNotification(r.Context(), h.store.Pool(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get notification")
		return
	}
	if detail == nil {
		respondError(w, http.StatusNotFound, "notification not found")
		return
	}

	canRead, err := h.perms.CanRead(r.Context(), detail, principalFromRequest(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check permissions")
		return
	}
	if !canRead {
		respondError(w, http.StatusForbidden, "not allowed to read this notification")
		return
	}

	if detail.IsAlert() {
		view, err := domain.ProjectAlert(detail)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to project alert")
			return
		}
		respondJSON(w, http.StatusOK, view)
		return
	}
	respondJSON(w, http.StatusOK, domain.ProjectPulse(detail))
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	detail, err := h.store.GetNotification(r.Context(), h.store.Pool(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get notification")
		return
	}
	if detail == nil {
		respondError(w, http.StatusNotFound, "notification not found")
		return
	}

	canWrite, err := h.perms.CanWrite(r.Context(), detail, principalFromRequest(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check permissions")
		return
	}
	if !canWrite {
		respondError(w, http.StatusForbidden, "not allowed to delete this notification")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats returns aggregate row counts for the dashboard.
func (h *NotificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context(), h.store.Pool())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
