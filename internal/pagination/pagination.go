// Package pagination turns raw query parameters into bounded, safe
// pagination requests and computes list metadata. Sort fields are
// restricted to a per-resource allow-list; anything outside it falls
// back to the default sort instead of reaching the query layer.
package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// DefaultSortField is applied when no allow-listed sort is requested.
	DefaultSortField = "created_at"

	OrderAsc  = "ASC"
	OrderDesc = "DESC"
)

// Request is the normalized pagination shape handed to the query layer.
// Page and Limit are always within bounds, SortBy is always a field the
// resource declared sortable.
type Request struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Parse builds a Request from raw query values. Non-numeric page/limit
// inputs default rather than error; limit is clamped to [1, MaxLimit];
// a sortBy outside the allow-list is silently dropped.
func Parse(query url.Values, sortable []string) Request {
	req := Request{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    DefaultSortField,
		SortOrder: OrderDesc,
	}

	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 1 {
			req.Page = page
		}
	}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			switch {
			case limit > MaxLimit:
				req.Limit = MaxLimit
			case limit >= 1:
				req.Limit = limit
			default:
				req.Limit = 1
			}
		}
	}

	if raw := strings.TrimSpace(query.Get("sortBy")); raw != "" {
		for _, field := range sortable {
			if raw == field {
				req.SortBy = raw
				break
			}
		}
	}

	if raw := strings.TrimSpace(query.Get("sortOrder")); strings.EqualFold(raw, OrderAsc) {
		req.SortOrder = OrderAsc
	}

	return req
}

// Offset computes the number of rows to skip for the current page.
func (r Request) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Meta describes a page of results. Derived fields are always recomputed
// from (page, limit, total) so they cannot drift.
type Meta struct {
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	Total           int  `json:"total"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewMeta computes page metadata from a live total count.
func NewMeta(page, limit, total int) Meta {
	if limit < 1 {
		limit = 1
	}
	totalPages := (total + limit - 1) / limit
	return Meta{
		Page:            page,
		Limit:           limit,
		Total:           total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// CursorPage is the envelope for cursor-based (infinite scroll) lists.
type CursorPage[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"nextCursor"`
	HasMore    bool    `json:"hasMore"`
}

// Cut trims a slice fetched with limit+1 rows down to limit, deriving
// HasMore from the presence of the extra row and NextCursor from the
// last included row. cursor extracts the comparison field value.
func Cut[T any](items []T, limit int, cursor func(T) string) CursorPage[T] {
	page := CursorPage[T]{Items: items}
	if limit > 0 && len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
	}
	if page.HasMore && len(page.Items) > 0 {
		last := cursor(page.Items[len(page.Items)-1])
		page.NextCursor = &last
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}
