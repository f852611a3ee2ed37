package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/trackarr/trackarr/pkg/pagination"
)

// ParsePaginationParams extracts and validates pagination params from request
func ParsePaginationParams(r *http.Request) (pagination.Params, error) {
	params := pagination.Params{
		Page:     1,
		PageSize: 0,
	}

	qp := r.URL.Query()

	if pageStr := qp.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return params, fmt.Errorf("invalid page parameter: must be positive integer")
		}
		params.Page = page
	}

	if pageSizeStr := qp.Get("pageSize"); pageSizeStr != "" {
		pageSize, err := strconv.Atoi(pageSizeStr)
		if err != nil || pageSize < 0 {
			return params, fmt.Errorf("invalid pageSize parameter: must be non-negative integer")
		}
		params.PageSize = pageSize
	}

	return params, nil
}

// paginate slices one page out of an in-memory result set. A zero page size
// returns everything with no metadata.
func paginate[T any](items []T, params pagination.Params) ([]T, *pagination.Meta) {
	offset, limit := params.OffsetLimit()
	if limit <= 0 {
		return items, nil
	}
	meta := params.BuildMeta(len(items))
	if offset >= len(items) {
		return []T{}, &meta
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], &meta
}
