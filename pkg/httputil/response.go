package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
	"github.com/N1kunj1998/ECOMMERCE/pkg/logger"
	"github.com/N1kunj1998/ECOMMERCE/pkg/validator"
)

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Success bool           `json:"success"`
	Error   *ErrorResponse `json:"error"`
}

// ErrorResponse describes a failure: a stable code, a readable message and,
// for validation failures, the offending fields.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code. Encoding errors are
// dropped because the headers have already been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and writes the error envelope. Anything
// that is not an AppError, a validation error or a known sentinel is logged
// and reported as an opaque internal error.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeErr(w, http.StatusBadRequest, &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(r, l, err)
		}
		writeErr(w, appErr.Status, &ErrorResponse{Code: appErr.Code, Message: appErr.Message, RequestID: requestID})
		return
	}

	status := apperrors.HTTPStatus(err)
	code, message := "INTERNAL_ERROR", "an internal error occurred"
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code, message = "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code, message = "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrConflict):
		code, message = "CONFLICT", "resource was modified concurrently"
	case errors.Is(err, apperrors.ErrDuplicateKey):
		code, message = "DUPLICATE_KEY", "duplicate key"
	default:
		status = http.StatusInternalServerError
		logInternal(r, l, err)
	}

	writeErr(w, status, &ErrorResponse{Code: code, Message: message, RequestID: requestID})
}

// WriteValidationError writes a 400 for a request body that failed to decode
// or validate.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteError(w, r, err, nil)
		return
	}
	writeErr(w, http.StatusBadRequest, &ErrorResponse{
		Code:      "INVALID_INPUT",
		Message:   err.Error(),
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	})
}

// ParseUUID validates an identifier taken from the path or query. On failure
// it writes a 400 and returns false so the handler can return early.
func ParseUUID(w http.ResponseWriter, r *http.Request, field, value string) (string, bool) {
	id, err := uuid.Parse(value)
	if err != nil {
		WriteError(w, r, apperrors.InvalidID(field), nil)
		return "", false
	}
	return id.String(), true
}

func writeErr(w http.ResponseWriter, status int, resp *ErrorResponse) {
	WriteJSON(w, status, ErrorEnvelope{Success: false, Error: resp})
}

func logInternal(r *http.Request, l *slog.Logger, err error) {
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}
