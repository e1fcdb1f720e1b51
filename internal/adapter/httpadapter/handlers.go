package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
)

// maxRequestBytes bounds request bodies, which may carry a base64 screenshot.
const maxRequestBytes = 20 << 20

const storeTimeout = 5 * time.Second

type errorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req domain.EstimateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = "est-" + uuid.NewString()
	}
	w.Header().Set("X-Request-ID", req.ID)

	est, err := s.estimator.Estimate(r.Context(), req)
	if err != nil {
		s.writeError(w, req.ID, err)
		return
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), storeTimeout)
		if err := s.store.LoadBatch(ctx, []domain.LocationEstimate{est}); err != nil {
			s.logger.Warn("record estimate failed", "request_id", est.RequestID, "error", err)
		}
		cancel()
	}

	sharedobs.WriteJSON(w, http.StatusOK, est)
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var raw domain.AreaDistribution
	if !decodeBody(w, r, &raw) {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.estimator.NormalizeArea(raw))
}

func (s *Server) handleGetEstimate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	est, err := s.store.Get(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{
			Error:   "not_found",
			Message: "no estimate with id " + id,
		})
		return
	}
	if err != nil {
		s.logger.Error("load estimate failed", "request_id", id, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal",
			Message: "internal error",
		})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, est)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		sharedobs.WriteJSON(w, status, errorResponse{
			Error:   "validation",
			Message: "invalid request body",
			Fields:  []domain.FieldError{{Field: "body", Message: err.Error()}},
		})
		return false
	}
	return true
}

// writeError maps the error taxonomy to status codes. Internal details are
// logged, not returned.
func (s *Server) writeError(w http.ResponseWriter, requestID string, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation",
			Message: err.Error(),
			Fields:  ve.Fields,
		})
		return
	}

	var ce *domain.ComputationError
	if errors.As(err, &ce) {
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "computation",
			Message: "estimate could not be computed at stage " + ce.Stage,
		})
		return
	}

	s.logger.Error("estimate failed", "request_id", requestID, "error", err)
	sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "internal",
		Message: "internal error",
	})
}
