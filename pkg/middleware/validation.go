package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"priceoracle/internal/apperr"
	"priceoracle/pkg/logger"
)

var log = logger.NewDefault("http")

// SetLogger replaces the logger used by the middleware and the response helpers.
func SetLogger(l *logger.Logger) {
	if l != nil {
		log = l
	}
}

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error string      `json:"error"`
	Field string      `json:"field,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// ValidateRequest rejects POST/PUT bodies that are empty or not JSON and caps
// the body size.
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid Content-Type, expected application/json"})
				return
			}
		}

		const maxSize = 1 << 20 // 1 MB
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)

		next.ServeHTTP(w, r)
	})
}

// HandleValidationError answers 400 for a request that failed DTO validation.
func HandleValidationError(w http.ResponseWriter, err error, field, value string) {
	log.WithError(err).WithField("field", field).Info("validation error")

	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: err.Error(),
		Field: field,
		Value: value,
	})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

// WriteError maps err to a status with apperr.HTTPStatus. Internal errors are
// logged and answered with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		WriteJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
		return
	}

	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		msg = "internal error"
	}
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// HandleDecodeError answers a request whose JSON body could not be read:
// 413 when ValidateRequest cut the body off, 400 otherwise.
func HandleDecodeError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		WriteError(w, err)
		return
	}
	HandleValidationError(w, err, "body", "")
}
