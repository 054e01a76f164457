package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnreachable wraps transport-level failures where no backend response
// was received at all.
var ErrUnreachable = errors.New("could not reach server")

// APIError is a backend rejection: an HTTP status plus the error detail
// flattened into one human-readable message.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return e.Detail
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// isVerbMismatch reports whether the backend rejected the HTTP verb rather
// than the request itself. The platform mounted a few non-idiomatic routes
// under inconsistent verbs, so both 405 and 404 count.
func isVerbMismatch(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusMethodNotAllowed || apiErr.Status == http.StatusNotFound
}

// validationIssue mirrors one entry of a validation error list in the
// backend's error envelope.
type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// flattenDetail turns a backend error body into a single message. The body
// carries either a string detail or an array of {loc, msg} issues; anything
// else falls back to a generic message.
func flattenDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Detail, &text); err == nil {
			return text
		}
		var issues []validationIssue
		if err := json.Unmarshal(envelope.Detail, &issues); err == nil {
			parts := make([]string, 0, len(issues))
			for _, issue := range issues {
				locParts := make([]string, 0, len(issue.Loc))
				for _, loc := range issue.Loc {
					locParts = append(locParts, fmt.Sprintf("%v", loc))
				}
				if len(locParts) > 0 {
					parts = append(parts, strings.Join(locParts, ".")+": "+issue.Msg)
				} else {
					parts = append(parts, issue.Msg)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, " | ")
			}
		}
	}

	var plain string
	if err := json.Unmarshal(body, &plain); err == nil {
		return plain
	}
	return ""
}

func newAPIError(status int, body []byte) *APIError {
	detail := flattenDetail(body)
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &APIError{Status: status, Detail: detail}
}
