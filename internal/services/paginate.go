package services

// DefaultPageSize mirrors the response-list widget: five rows per page.
// Deployments may override it through configuration.
const DefaultPageSize = 5

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Number     int  `json:"number"`
	Size       int  `json:"size"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Paginate slices items into 1-indexed pages. Out-of-range page numbers
// clamp to page 1 instead of erroring. An empty input yields a single
// empty page.
func Paginate[T any](items []T, size, number int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}
	if number < 1 || number > totalPages {
		number = 1
	}
	start := (number - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Page[T]{
		Items:      append([]T(nil), items[start:end]...),
		Number:     number,
		Size:       size,
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    number < totalPages,
		HasPrev:    number > 1,
	}
}
