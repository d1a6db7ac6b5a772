package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pulseboard/notifications/internal/domain"
	"github.com/pulseboard/notifications/internal/notify"
	"github.com/pulseboard/notifications/internal/perms"
	"github.com/pulseboard/notifications/internal/store"
)

type PulseHandler struct {
	store *store.PostgresStore
	svc   *notify.Service
	perms *perms.Aggregator
}

func NewPulseHandler(s *store.PostgresStore, svc *notify.Service, agg *perms.Aggregator) *PulseHandler {
	return &PulseHandler{store: s, svc: svc, perms: agg}
}

type pulsePayload struct {
	Name        string           `json:"name"`
	Cards       []int64          `json:"cards"`
	Channels    []domain.Channel `json:"channels"`
	SkipIfEmpty bool             `json:"skip_if_empty"`
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notify.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, notify.ErrNotFound):
		respondError(w, http.StatusNotFound, "subscription not found")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *PulseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req pulsePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	principal := principalFromRequest(r)
	view, err := h.svc.CreatePulse(r.Context(), notify.CreatePulseRequest{
		Name:        req.Name,
		CreatorID:   principal.UserID,
		CardIDs:     req.Cards,
		Channels:    req.Channels,
		SkipIfEmpty: req.SkipIfEmpty,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

func (h *PulseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	detail, err := h.store.GetPulse(r.Context(), h.store.Pool(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get pulse")
		return
	}
	if detail == nil {
		respondError(w, http.StatusNotFound, "pulse not found")
		return
	}

	canRead, err := h.perms.CanRead(r.Context(), detail, principalFromRequest(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check permissions")
		return
	}
	if !canRead {
		respondError(w, http.StatusForbidden, "not allowed to read this pulse")
		return
	}

	respondJSON(w, http.StatusOK, domain.ProjectPulse(detail))
}

func (h *PulseHandler) List(w http.ResponseWriter, r *http.Request) {
	details, err := h.store.ListPulses(r.Context(), h.store.Pool())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list pulses")
		return
	}

	principal := principalFromRequest(r)
	views := []*domain.PulseView{}
	for i := range details {
		canRead, err := h.perms.CanRead(r.Context(), &details[i], principal)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to check permissions")
			return
		}
		if canRead {
			views = append(views, domain.ProjectPulse(&details[i]))
		}
	}

	respondJSON(w, http.StatusOK, views)
}

func (h *PulseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	var req pulsePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	detail, err := h.store.GetPulse(r.Context(), h.store.Pool(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get pulse")
		return
	}
	if detail == nil {
		respondError(w, http.StatusNotFound, "pulse not found")
		return
	}

	canWrite, err := h.perms.CanWrite(r.Context(), detail, principalFromRequest(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check permissions")
		return
	}
	if !canWrite {
		respondError(w, http.StatusForbidden, "not allowed to modify this pulse")
		return
	}

	view, err := h.svc.UpdatePulse(r.Context(), notify.UpdatePulseRequest{
		ID:          id,
		Name:        req.Name,
		SkipIfEmpty: req.SkipIfEmpty,
		CardIDs:     req.Cards,
		Channels:    req.Channels,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}
