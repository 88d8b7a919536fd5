package usecase

import (
	"search-analytics-service/internal/core/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageSettings bounds the page size of paginated use cases.
type PageSettings struct {
	DefaultSize int
	MaxSize     int
}

// normalizePage applies defaults to zero values and clamps the size.
// Negative values are rejected.
func normalizePage(page, size int, settings PageSettings) (int, int, error) {
	if page < 0 {
		return 0, 0, domain.NewValidationError("page", "page must be >= 1")
	}
	if size < 0 {
		return 0, 0, domain.NewValidationError("page_size", "page size must be >= 1")
	}

	defaultSize := settings.DefaultSize
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	maxSize := settings.MaxSize
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}

	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	return page, size, nil
}

// paginate cuts one page out of already ordered items. A page past the end is empty.
// page and size must already be normalized (both >= 1).
func paginate[T any](items []T, page, size int) *domain.PaginatedResult[T] {
	total := len(items)
	result := &domain.PaginatedResult[T]{
		Items:        []T{},
		TotalCount:   total,
		CurrentPage:  page,
		ItemsPerPage: size,
		TotalPages:   (total + size - 1) / size,
	}

	// compared before multiplying so a huge page number cannot overflow the offset
	if page > result.TotalPages {
		return result
	}
	offset := (page - 1) * size
	end := offset + size
	if end > total {
		end = total
	}
	result.Items = append(result.Items, items[offset:end]...)
	return result
}
