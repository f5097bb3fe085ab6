// Package pagination splits ordered results into pages. The same Page type serves results that
// the database already paged and results that were filtered in memory.
package pagination

import "math"

// linkWindow is the number of consecutive page links shown around the current page.
const linkWindow = 5

// Page is one page of an ordered result. Pages are numbered from 1.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Pages    int  `json:"pages"`
	HasPrev  bool `json:"has_prev"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// New describes the page with the given number. items are the elements of that page only,
// total is the number of elements on all pages.
func New[T any](items []T, page, pageSize, total int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if items == nil {
		items = []T{}
	}
	p := Page[T]{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Pages:    (total + pageSize - 1) / pageSize,
	}
	p.HasPrev = page > 1
	p.HasNext = page < p.Pages
	if p.HasPrev {
		p.PrevPage = page - 1
	}
	if p.HasNext {
		p.NextPage = page + 1
	}
	return p
}

// FromSlice cuts the page with the given number out of the complete result.
func FromSlice[T any](all []T, page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	start := min(Offset(page, pageSize), len(all))
	end := start + min(pageSize, len(all)-start)
	return New(all[start:end], page, pageSize, len(all))
}

// Offset returns the number of elements before the page. Page numbers too large to compute
// the offset for yield math.MaxInt, which lies beyond the end of every result.
func Offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

// Numbers returns the page numbers to link to: a window of pages around the current one, plus
// the first and the last page. A 0 stands for the omitted pages of a gap.
func (p Page[T]) Numbers() []int {
	numbers := []int{}
	if p.Pages == 0 {
		return numbers
	}
	first := max(1, min(p.Page-linkWindow/2, p.Pages-linkWindow+1))
	last := min(p.Pages, first+linkWindow-1)
	if first > 1 {
		numbers = append(numbers, 1)
		if first > 2 {
			numbers = append(numbers, 0)
		}
	}
	for n := first; n <= last; n++ {
		numbers = append(numbers, n)
	}
	if last < p.Pages {
		if last < p.Pages-1 {
			numbers = append(numbers, 0)
		}
		numbers = append(numbers, p.Pages)
	}
	return numbers
}
