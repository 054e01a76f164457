package common

import (
	"net/http"
	"strconv"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalItems int  `json:"total_items,omitempty"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// ParsePagination extracts page and per-page parameters from query values.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page = 1
	perPage = defaultPerPage
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	return
}

// Window computes the half-open slice bounds [start, end) visible on the
// given 1-based page. total < 0 means the collection size is unknown; bounds
// are then clamped only by the page itself and the caller discovers the true
// end when a fetch comes back short.
func Window(page, perPage, total int) (start, end int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	start = (page - 1) * perPage
	end = page * perPage
	if total >= 0 {
		if start > total {
			start = total
		}
		if end > total {
			end = total
		}
	}
	return start, end
}

// Offset converts a 1-based page into a limit/offset query offset.
func Offset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	return (page - 1) * perPage
}

// HasPrev reports whether a previous page exists.
func HasPrev(page int) bool {
	return page > 1
}

// HasNext reports whether a next page exists. With an unknown total
// (total < 0) it is optimistically true; fetched < perPage on the current
// page proves the end regardless of total.
func HasNext(page, perPage, total, fetched int) bool {
	if fetched < perPage {
		return false
	}
	if total < 0 {
		return true
	}
	return page*perPage < total
}
