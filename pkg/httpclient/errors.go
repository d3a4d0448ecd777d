package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/errors"
)

const maxErrorBody = 1 << 20

// DownstreamErrorResponse matches the httputil.ErrorResponse shape every
// coaching service returns, so structured error bodies survive the hop.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError turns a non-2xx response into an error, keeping the
// downstream code and message when the body follows the standard
// ErrorResponse format. The body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(body, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, serviceName)
	}

	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
}

func mapDownstreamError(status int, code, message, serviceName string) error {
	msg := serviceName + ": " + message

	switch status {
	case http.StatusNotFound:
		return &apperrors.AppError{
			Code:    code,
			Message: msg,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case http.StatusBadRequest:
		return apperrors.InvalidInput(msg)
	case http.StatusConflict:
		return apperrors.Conflict(msg)
	case http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(msg)
	}

	if status >= http.StatusInternalServerError {
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	}

	return &apperrors.AppError{
		Code:    code,
		Message: msg,
		Status:  status,
	}
}

// IsClientError reports whether status is a 4xx. A client error means the
// request itself was rejected, not lost, so callers should not retry it.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
