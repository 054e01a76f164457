package collection

import "github.com/noah-isme/storefront-gateway/internal/common"

// PagedView is a transient projection over a fetched collection: page size,
// 1-based current page, and the total when known (-1 when the backend never
// told us). It owns no data and is recomputed per render.
type PagedView struct {
	Page    int
	PerPage int
	Total   int
}

// Bounds returns the half-open [start, end) window of the view, clamped to
// the total when it is known.
func (v PagedView) Bounds() (start, end int) {
	return common.Window(v.Page, v.PerPage, v.Total)
}

// Slice projects the visible window out of a fully fetched collection.
func (v PagedView) Slice(items []map[string]any) []map[string]any {
	start, end := common.Window(v.Page, v.PerPage, len(items))
	if v.Total >= 0 {
		start, end = v.Bounds()
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
	}
	return items[start:end]
}

// HasPrev reports whether a previous page exists.
func (v PagedView) HasPrev() bool {
	return common.HasPrev(v.Page)
}

// HasNext reports whether a next page exists. fetched is the number of
// items the current page actually produced; a short page proves the end
// even when the total is unknown.
func (v PagedView) HasNext(fetched int) bool {
	return common.HasNext(v.Page, v.PerPage, v.Total, fetched)
}
