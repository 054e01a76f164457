package backend

import (
	"errors"
	"net/http"

	"github.com/noah-isme/storefront-gateway/internal/common"
)

// WriteError maps an error from a backend call (or a local validation
// failure) onto the gateway's JSON error envelope. Backend rejections keep
// their status and flattened detail so the caller sees the platform's own
// message verbatim.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		common.JSONError(w, apiErr.Status, codeForStatus(apiErr.Status), apiErr.Detail, nil)
		return
	}
	if errors.Is(err, ErrUnreachable) {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", ErrUnreachable.Error(), nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "VALIDATION"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	default:
		return "UPSTREAM"
	}
}
