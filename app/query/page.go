// Package query derives filtered, sorted and paged views over a collection
// snapshot. Nothing here mutates its input slice.
package query

import (
	"fmt"
	"math"

	"quill/app/models"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ErrInvalidPagination is returned for page or page size out of range. It
// matches models.ErrValidation.
var ErrInvalidPagination = fmt.Errorf("%w: invalid pagination", models.ErrValidation)

// Pagination selects one 1-based page of a result set.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Total           int  `json:"total"`
	Page            int  `json:"page"`
	PageSize        int  `json:"pageSize"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// Page is a slice of a result set plus its metadata. The unpaged variant of
// a listing is a bare slice, not a Page with every item.
type Page[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

// Validate rejects pages below 1 and sizes outside [1, MaxPageSize].
func (p Pagination) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidPagination, p.Page)
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return fmt.Errorf("%w: pageSize must be between 1 and %d, got %d", ErrInvalidPagination, MaxPageSize, p.PageSize)
	}
	return nil
}

// Offset is the index of the first item on the page. It saturates at
// math.MaxInt instead of wrapping for very large pages.
func (p Pagination) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// Paginate slices items for p. A page past the end yields no data but
// still reports the totals. The caller is expected to have validated p.
func Paginate[T any](items []T, p Pagination) *Page[T] {
	total := len(items)
	totalPages := 0
	if p.PageSize > 0 {
		totalPages = (total + p.PageSize - 1) / p.PageSize
	}

	start := min(p.Offset(), total)
	end := start + min(max(p.PageSize, 0), total-start)

	data := make([]T, end-start)
	copy(data, items[start:end])

	return &Page[T]{
		Data: data,
		Meta: Meta{
			Total:           total,
			Page:            p.Page,
			PageSize:        p.PageSize,
			TotalPages:      totalPages,
			HasNextPage:     p.Page < totalPages,
			HasPreviousPage: p.Page > 1,
		},
	}
}
