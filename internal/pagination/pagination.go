package pagination

import (
	"fmt"

	"gorm.io/gorm"
)

const DefaultSize = 20

// Page is one slice of an ordered listing. Number is the page actually
// served, which differs from the requested one when that was out of range.
type Page[T any] struct {
	Items      []T   `json:"data"`
	Number     int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	Count      int64 `json:"count"`
}

// Clamp resolves a requested page against a total row count. Sizes below one
// fall back to DefaultSize; pages are pulled into [1, totalPages]. An empty
// listing still has one (empty) page.
func Clamp(total int64, size, page int) (effSize, effPage, totalPages int) {
	if size < 1 {
		size = DefaultSize
	}
	totalPages = int((total + int64(size) - 1) / int64(size))
	if totalPages < 1 {
		totalPages = 1
	}
	switch {
	case page < 1:
		page = 1
	case page > totalPages:
		page = totalPages
	}
	return size, page, totalPages
}

// Paginate counts the rows matched by q and loads the requested page. q must
// carry its model and ordering; it is not modified.
func Paginate[T any](q *gorm.DB, size, page int) (Page[T], error) {
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Page[T]{}, fmt.Errorf("count rows: %w", err)
	}

	size, page, pages := Clamp(total, size, page)

	items := make([]T, 0, size)
	if total > 0 {
		if err := q.Offset((page - 1) * size).Limit(size).Find(&items).Error; err != nil {
			return Page[T]{}, fmt.Errorf("load page %d: %w", page, err)
		}
	}

	return Page[T]{Items: items, Number: page, TotalPages: pages, Count: total}, nil
}
