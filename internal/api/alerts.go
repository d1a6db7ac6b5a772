package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pulseboard/notifications/internal/domain"
	"github.com/pulseboard/notifications/internal/notify"
	"github.com/pulseboard/notifications/internal/perms"
	"github.com/pulseboard/notifications/internal/store"
)

type AlertHandler struct {
	store *store.PostgresStore
	svc   *notify.Service
	perms *perms.Aggregator
}

func NewAlertHandler(s *store.PostgresStore, svc *notify.Service, agg *perms.Aggregator) *AlertHandler {
	return &AlertHandler{store: s, svc: svc, perms: agg}
}

type alertPayload struct {
	Name             string           `json:"name"`
	Card             int64            `json:"card"`
	Channels         []domain.Channel `json:"channels"`
	AlertCondition   string           `json:"alert_condition"`
	AlertDescription *string          `json:"alert_description,omitempty"`
	AlertAboveGoal   *bool            `json:"alert_above_goal,omitempty"`
}

func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req alertPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	principal := principalFromRequest(r)
	view, err := h.svc.CreateAlert(r.Context(), notify.CreateAlertRequest{
		Name:             req.Name,
		CreatorID:        principal.UserID,
		CardID:           req.Card,
		Channels:         req.Channels,
		AlertCondition:   req.AlertCondition,
		AlertDescription: req.AlertDescription,
		AlertAboveGoal:   req.AlertAboveGoal,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	detail, err := h.store.GetAlert(r.Context(), h.store.Pool(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get alert")
		return
	}
	if detail == nil {
		respondError(w, http.StatusNotFound, "alert not found")
		return
	}

	canRead, err := h.perms.CanRead(r.Context(), detail, principalFromRequest(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check permissions")
		return
	}
	if !canRead {
		respondError(w, http.StatusForbidden, "not allowed to read this alert")
		return
	}

	view, err := domain.ProjectAlert(detail)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to project alert")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	details, err := h.store.ListAlerts(r.Context(), h.store.Pool())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	principal := principalFromRequest(r)
	views := []*domain.AlertView{}
	for i := range details {
		canRead, err := h.perms.CanRead(r.Context(), &details[i], principal)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to check permissions")
			return
		}
		if !canRead {
			continue
		}
		view, err := domain.ProjectAlert(&details[i])
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to project alert")
			return
		}
		views = append(views, view)
	}

	respondJSON(w, http.StatusOK, views)
}

func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	var req alertPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	detail, err := h.store.GetAlert(r.Context(), h.store.Pool(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get alert")
		return
	}
	if detail == nil {
		respondError(w, http.StatusNotFound, "alert not found")
		return
	}

	canWrite, err := h.perms.CanWrite(r.Context(), detail, principalFromRequest(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check permissions")
		return
	}
	if !canWrite {
		respondError(w, http.StatusForbidden, "not allowed to modify this alert")
		return
	}

	view, err := h.svc.UpdateAlert(r.Context(), notify.UpdateAlertRequest{
		ID:               id,
		Name:             req.Name,
		CardID:           req.Card,
		Channels:         req.Channels,
		AlertCondition:   req.AlertCondition,
		AlertDescription: req.AlertDescription,
		AlertAboveGoal:   req.AlertAboveGoal,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// Unsubscribe removes the calling user from an alert's recipients. A count of
// zero is a successful no-op, not an error.
func (h *AlertHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	principal := principalFromRequest(r)
	if principal.UserID <= 0 {
		respondError(w, http.StatusBadRequest, "a user identity is required")
		return
	}

	count, err := h.svc.Unsubscribe(r.Context(), id, principal.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// ListForCard returns the alerts on a card that are visible to the calling
// user: created by them or delivering to them.
func (h *AlertHandler) ListForCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := parseID(chi.URLParam(r, "cardID"))
	if !ok {
		respondError(w, http.StatusBadRequest, "card id must be a positive integer")
		return
	}

	principal := principalFromRequest(r)
	details, err := h.store.ListAlertsForCard(r.Context(), h.store.Pool(), cardID, principal.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list alerts for card")
		return
	}

	views := []*domain.AlertView{}
	for i := range details {
		view, err := domain.ProjectAlert(&details[i])
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to project alert")
			return
		}
		views = append(views, view)
	}

	respondJSON(w, http.StatusOK, views)
}
