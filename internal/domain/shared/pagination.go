package shared

// ══════════════════════════════════════════════════════════════════════════════
// PAGINATION
// ══════════════════════════════════════════════════════════════════════════════

// Allowed page sizes for ranked hiscore pages. Anything else falls back to the first.
var rankedPageSizes = [...]int{15, 30, 50}

// DefaultRankedPageSize is used whenever a requested size is not allowed.
const DefaultRankedPageSize = 15

// Page is one 1-based slice of a larger ordered list.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
}

// CoerceRankedPageSize returns size if it is one of 15, 30 or 50, and 15 otherwise.
func CoerceRankedPageSize(size int) int {
	for _, allowed := range rankedPageSizes {
		if size == allowed {
			return size
		}
	}
	return DefaultRankedPageSize
}

// ClampPageSize bounds size to [1, max], substituting def for non-positive input.
func ClampPageSize(size, def, max int) int {
	if size <= 0 {
		return def
	}
	if size > max {
		return max
	}
	return size
}

// NormalizePage maps anything below 1 to the first page.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Paginate slices items for a 1-based page. Pages past the end are empty.
// The returned slice never aliases items.
func Paginate[T any](items []T, page, size int) Page[T] {
	page = NormalizePage(page)
	if size <= 0 {
		size = 1
	}

	start := (page - 1) * size
	result := Page[T]{
		Items:    []T{},
		Page:     page,
		PageSize: size,
	}
	if start >= len(items) {
		return result
	}

	end := start + size
	if end > len(items) {
		end = len(items)
	}

	result.Items = append(result.Items, items[start:end]...)
	result.HasNext = end < len(items)
	return result
}
