package handler

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"visitstats/internal/middleware"
	apperrors "visitstats/pkg/errors"
	"visitstats/pkg/logger"
)

// StatsResponse is the envelope of every successful stats response
type StatsResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// writeJSON encodes v with the given status code
func writeJSON(w http.ResponseWriter, log *logger.Logger, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// sendErrorResponse sends a standardized error response for any error
func sendErrorResponse(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr := apperrors.From(err)

	entry := log.WithError(err).WithField("request_id", middleware.GetRequestID(r.Context()))
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	response := &apperrors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = middleware.GetRequestID(r.Context())
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	writeJSON(w, log, appErr.StatusCode, response)
}

// NotFound answers unknown routes with the standard error envelope
func NotFound(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendErrorResponse(w, r, log, apperrors.NewNotFoundError("Endpoint not found"))
	}
}
