package pagination

const (
	// DefaultPageSize is the page size used by offset listings when none is requested.
	DefaultPageSize = 10
)

// PageParams carries 1-based offset pagination inputs.
type PageParams struct {
	Page     int
	PageSize int
}

// Normalize clamps the page to >= 1 and the size into [1, MaxLimit].
func (p PageParams) Normalize() PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxLimit {
		p.PageSize = MaxLimit
	}
	return p
}

// Offset is the number of rows to skip.
func (p PageParams) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// PageMeta is returned next to offset listings.
type PageMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPageMeta derives the page count from the total row count.
func NewPageMeta(params PageParams, total int64) PageMeta {
	n := params.Normalize()
	pages := int((total + int64(n.PageSize) - 1) / int64(n.PageSize))
	return PageMeta{Page: n.Page, PageSize: n.PageSize, Total: total, TotalPages: pages}
}
