package gateway

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
)

// APIError codes describing why a supplier call failed.
const (
	CodeTimeout        = "TIMEOUT"
	CodeNotInitialized = "NOT_INITIALIZED"
	CodeUpstreamError  = "UPSTREAM_ERROR"
	CodeBadResponse    = "BAD_RESPONSE"
	CodeTransport      = "TRANSPORT_ERROR"
)

// APIError is the single failure shape for all gateway operations.
// RawResponse keeps the upstream body (truncated) for diagnostics.
type APIError struct {
	Message     string `json:"message"`
	Code        string `json:"code"`
	RawResponse string `json:"raw_response,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("supplier api error [%s]: %s", e.Code, e.Message)
}

// NewAPIError builds an APIError with the given code and message.
func NewAPIError(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// NotInitializedError reports a call made before Initialize.
func NotInitializedError() *APIError {
	return NewAPIError(CodeNotInitialized, "client not initialized")
}

// FromCallError normalizes transport-level failures into APIErrors.
func FromCallError(err error) *APIError {
	if err == nil {
		return nil
	}
	var api *APIError
	if errors.As(err, &api) {
		return api
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewAPIError(CodeTimeout, "supplier call timed out")
	}
	return NewAPIError(CodeTransport, err.Error())
}

// ToError maps an APIError onto the service error taxonomy: timeouts stay
// retryable TIMEOUT, everything else is a DEPENDENCY_ERROR carrying the
// upstream code and raw response in details.
func ToError(err error) error {
	if err == nil {
		return nil
	}
	api := FromCallError(err)
	details := map[string]any{"code": api.Code}
	if api.RawResponse != "" {
		details["raw_response"] = api.RawResponse
	}
	if api.Code == CodeTimeout {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, api, "supplier call timed out").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, api, "supplier call failed").WithDetails(details)
}
