package pagination

// Params describes a requested result page.
type Params struct {
	Page     int
	PageSize int
}

// OffsetLimit converts page parameters to a storage offset and limit.
func (p Params) OffsetLimit() (offset, limit int) {
	if p.PageSize <= 0 {
		return 0, 0
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.PageSize, p.PageSize
}

// Meta summarizes a paginated response.
type Meta struct {
	Page         int `json:"page"`
	PageSize     int `json:"page_size"`
	TotalResults int `json:"total_results"`
	TotalPages   int `json:"total_pages"`
}

// BuildMeta fills response metadata for the given result count.
func (p Params) BuildMeta(totalResults int) Meta {
	totalPages := 0
	if p.PageSize > 0 {
		totalPages = (totalResults + p.PageSize - 1) / p.PageSize
	}
	return Meta{
		Page:         p.Page,
		PageSize:     p.PageSize,
		TotalResults: totalResults,
		TotalPages:   totalPages,
	}
}
