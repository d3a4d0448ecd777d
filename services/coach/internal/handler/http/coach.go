package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/httputil"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/pagination"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/validator"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/coach/internal/repository"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/coach/internal/service"
)

// CoachHandler handles HTTP requests for coach endpoints.
type CoachHandler struct {
	service *service.CoachService
	logger  *slog.Logger
}

// NewCoachHandler creates a new coach HTTP handler.
func NewCoachHandler(svc *service.CoachService, logger *slog.Logger) *CoachHandler {
	return &CoachHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateCoachRequest is the JSON request body for registering a coach.
type CreateCoachRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Specialty string `json:"specialty" validate:"max=200"`
}

// UpdateCoachRequest is the JSON request body for updating a coach profile.
type UpdateCoachRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Specialty string `json:"specialty" validate:"max=200"`
}

// UpdateStatusRequest is the JSON request body for the administrative status
// change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE DEACTIVATED"`
}

// RatingNotificationRequest is the JSON request body posted by the session
// service after recomputing a coach's aggregate.
type RatingNotificationRequest struct {
	CoachID       int64    `json:"coach_id" validate:"required,gt=0"`
	Rating        *float64 `json:"rating" validate:"required,gte=0,lte=10"`
	TotalSessions *int     `json:"total_sessions" validate:"required,gte=0"`
}

// CreateCoach handles POST /api/v1/coaches
func (h *CoachHandler) CreateCoach(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateCoachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	coach, err := h.service.CreateCoach(r.Context(), service.CreateCoachInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Specialty: req.Specialty,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: coach})
}

// GetCoach handles GET /api/v1/coaches/{id}
func (h *CoachHandler) GetCoach(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	coach, err := h.service.GetCoach(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: coach})
}

// ListCoaches handles GET /api/v1/coaches
func (h *CoachHandler) ListCoaches(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := repository.CoachFilter{
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	coaches, total, err := h.service.ListCoaches(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(coaches, total, filter.Page, filter.PerPage))
}

// UpdateCoach handles PUT /api/v1/coaches/{id}
func (h *CoachHandler) UpdateCoach(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateCoachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	coach, err := h.service.UpdateCoach(r.Context(), id, service.UpdateCoachInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Specialty: req.Specialty,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: coach})
}

// UpdateStatus handles PUT /api/v1/coaches/{id}/status
func (h *CoachHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	coach, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: coach})
}

// ApplyRating handles POST /api/v1/coaches/rating
func (h *CoachHandler) ApplyRating(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RatingNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	coach, err := h.service.ApplyRating(r.Context(), req.CoachID, *req.Rating, *req.TotalSessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: coach})
}

// DeleteCoach handles DELETE /api/v1/coaches/{id}
func (h *CoachHandler) DeleteCoach(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteCoach(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
