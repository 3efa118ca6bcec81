package domain

// Envelope is the response shape shared by every gateway endpoint.
// A nil Data means the field was absent.
type Envelope[T any] struct {
	Success bool
	Data    *T
	Message string
}

func OK[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: &data}
}

func Failed[T any](message string) Envelope[T] {
	return Envelope[T]{Success: false, Message: message}
}

type Page[T any] struct {
	Items      []T
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Paginate slices items into the requested page, as the gateway does.
func Paginate[T any](items []T, query PageQuery) Page[T] {
	query = query.Normalize()
	total := len(items)
	totalPages := (total + query.PageSize - 1) / query.PageSize

	start := (query.Page - 1) * query.PageSize
	if start > total {
		start = total
	}
	end := start + query.PageSize
	if end > total {
		end = total
	}

	pageItems := make([]T, 0, end-start)
	pageItems = append(pageItems, items[start:end]...)

	return Page[T]{
		Items:      pageItems,
		Total:      total,
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalPages: totalPages,
	}
}
