// Package pagination slices ordered sequences into pages.
package pagination

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 10

type Page[T any] struct {
	PageNumber   int `json:"pageNumber"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
	TotalPages   int `json:"totalPages"`
	Data         []T `json:"data"`
}

// Paginate returns page pageNumber of items. A page number below 1 is
// treated as 1 and a non-positive size falls back to DefaultPageSize.
// Pages past the end are empty.
func Paginate[T any](items []T, pageNumber, pageSize int) Page[T] {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(items)
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	data := make([]T, 0)
	if pageNumber <= totalPages {
		start := (pageNumber - 1) * pageSize
		end := total
		if pageSize < total-start {
			end = start + pageSize
		}
		data = append(data, items[start:end]...)
	}

	return Page[T]{
		PageNumber:   pageNumber,
		PageSize:     pageSize,
		TotalRecords: total,
		TotalPages:   totalPages,
		Data:         data,
	}
}
