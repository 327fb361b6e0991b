package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/userhub/backend/internal/apperrors"
	"github.com/userhub/backend/internal/models"
)

type BaseHandler struct {
	logger *zap.Logger
}

// respondJSON sends a JSON response
func (h *BaseHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// respondSuccess sends a success envelope with the given payload
func (h *BaseHandler) respondSuccess(w http.ResponseWriter, status int, data any) {
	h.respondJSON(w, status, models.Response{Success: true, Data: data})
}

// respondError sends an error envelope
func (h *BaseHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.Response{Success: false, Message: message})
}

// respondServiceError translates a domain error into its HTTP response.
// Unknown errors are logged and surfaced as a generic 500; their details never
// reach the response body.
func (h *BaseHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.Status(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("unexpected error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.respondError(w, status, "internal server error")
		return
	}

	h.respondError(w, status, err.Error())
}
