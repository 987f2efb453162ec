package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

// downstreamError mirrors httputil.ErrorEnvelope.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// converts it into an AppError with the same meaning.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", service, resp.StatusCode, err)
	}

	message := string(body)
	var downstream downstreamError
	if json.Unmarshal(body, &downstream) == nil && downstream.Error != nil {
		message = downstream.Error.Message
	}
	qualified := fmt.Sprintf("%s: %s", service, message)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &apperrors.AppError{Code: "NOT_FOUND", Message: qualified, Status: http.StatusNotFound, Err: apperrors.ErrNotFound}
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return apperrors.InvalidInput(qualified)
	case http.StatusConflict:
		return apperrors.Conflict(qualified)
	case http.StatusUnauthorized, http.StatusForbidden:
		// Our credentials were rejected; to our caller this is our fault.
		return apperrors.Internal(fmt.Errorf("%s rejected credentials: %s", service, message))
	default:
		if resp.StatusCode >= http.StatusInternalServerError {
			return apperrors.ServiceUnavailable(service+" is unavailable", fmt.Errorf("status %d: %s", resp.StatusCode, message))
		}
		return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, message)
	}
}
