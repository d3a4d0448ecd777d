package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/httputil"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/validator"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/review/internal/service"
)

// ReviewHandler handles HTTP requests for review submissions.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// SubmitReviewRequest is the JSON request body for submitting a review.
type SubmitReviewRequest struct {
	SessionID int64    `json:"session_id" validate:"required,gt=0"`
	CoachID   int64    `json:"coach_id" validate:"required,gt=0"`
	Rating    *float64 `json:"rating" validate:"required,gte=0,lte=10"`
	Comment   *string  `json:"comment" validate:"omitempty,max=2000"`
}

// SubmitReview handles POST /api/v1/reviews. A valid submission is published
// to the channel and answered with 202; the actual session/coach/user updates
// happen asynchronously in the session service.
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SubmitReviewRequest
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

	input := service.SubmitReviewInput{
		SessionID: req.SessionID,
		CoachID:   req.CoachID,
		Rating:    *req.Rating,
		Comment:   req.Comment,
	}

	event, err := h.service.SubmitReview(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: event})
}
