package models

// Paging bounds for list endpoints.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// NormalizePaging clamps page to at least 1 and limit to [1, MaxPageLimit],
// using DefaultPageLimit when limit is unset.
func NormalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// Offset is the number of rows skipped before page.
func Offset(page, limit int) int {
	return (page - 1) * limit
}

// Page is one page of a listing.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPage wraps data with its paging metadata. page and limit are normalized
// the same way the repositories normalize them.
func NewPage[T any](data []T, total, page, limit int) Page[T] {
	page, limit = NormalizePaging(page, limit)
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}
