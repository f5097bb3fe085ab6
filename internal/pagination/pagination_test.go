package pagination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNew checks the derived values for first, middle and last pages.
func TestNew(t *testing.T) {
	first := New([]int{1, 2, 3}, 1, 3, 8)
	assert.Equal(t, 3, first.Pages)
	assert.False(t, first.HasPrev)
	assert.True(t, first.HasNext)
	assert.Equal(t, 0, first.PrevPage)
	assert.Equal(t, 2, first.NextPage)

	middle := New([]int{4, 5, 6}, 2, 3, 8)
	assert.True(t, middle.HasPrev)
	assert.True(t, middle.HasNext)
	assert.Equal(t, 1, middle.PrevPage)
	assert.Equal(t, 3, middle.NextPage)

	last := New([]int{7, 8}, 3, 3, 8)
	assert.True(t, last.HasPrev)
	assert.False(t, last.HasNext)
	assert.Equal(t, []int{1, 2, 3}, last.Numbers())
}

// TestNewEmpty expects zero pages and no navigation for an empty result.
func TestNewEmpty(t *testing.T) {
	p := New[string](nil, 1, 10, 0)
	assert.Equal(t, 0, p.Pages)
	assert.False(t, p.HasPrev)
	assert.False(t, p.HasNext)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Numbers())
}

// TestFromSlice expects the same page as New would describe for a database result.
func TestFromSlice(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	p := FromSlice(all, 2, 10)
	assert.Equal(t, New([]int{11, 12}, 2, 10, 12), p)
}

// TestFromSliceOutOfRange expects an empty page beyond the end and the first page below 1.
func TestFromSliceOutOfRange(t *testing.T) {
	all := []int{1, 2, 3}
	beyond := FromSlice(all, 5, 2)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 5, beyond.Page)
	assert.True(t, beyond.HasPrev)
	assert.False(t, beyond.HasNext)

	below := FromSlice(all, -1, 2)
	assert.Equal(t, []int{1, 2}, below.Items)
	assert.Equal(t, 1, below.Page)
}

// TestFromSliceHugePage expects an empty page instead of an overflowing offset.
func TestFromSliceHugePage(t *testing.T) {
	p := FromSlice([]int{1, 2, 3}, 1000000000000000000, 10)
	assert.Empty(t, p.Items)
	assert.Equal(t, 1000000000000000000, p.Page)
	assert.Equal(t, 3, p.Total)
	assert.False(t, p.HasNext)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 10))
	assert.Equal(t, 20, Offset(3, 10))
	assert.Equal(t, 0, Offset(-4, 10))
	assert.Equal(t, math.MaxInt, Offset(1000000000000000000, 10))
	assert.Equal(t, math.MaxInt, Offset(math.MaxInt, 1))
}

// TestNumbers expects a window around the current page, the first and last page, and a 0 for
// every gap.
func TestNumbers(t *testing.T) {
	page := func(n int) Page[int] { return New([]int{1}, n, 10, 1000) }
	assert.Equal(t, []int{1, 2, 3, 4, 5, 0, 100}, page(1).Numbers())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 0, 100}, page(4).Numbers())
	assert.Equal(t, []int{1, 0, 48, 49, 50, 51, 52, 0, 100}, page(50).Numbers())
	assert.Equal(t, []int{1, 0, 96, 97, 98, 99, 100}, page(100).Numbers())
	assert.Equal(t, []int{1, 0, 96, 97, 98, 99, 100}, page(1000000000000000000).Numbers())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, New([]int{1}, 3, 10, 60).Numbers())
}
