package pagination

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginate_LengthAndTotals(t *testing.T) {
	for _, total := range []int{0, 1, 2, 9, 10, 11, 25, 100} {
		items := seq(total)
		for _, size := range []int{1, 3, 10, 100} {
			for page := 1; page <= total/size+3; page++ {
				t.Run(fmt.Sprintf("total=%d/size=%d/page=%d", total, size, page), func(t *testing.T) {
					p := Paginate(items, page, size)

					want := min(size, max(0, total-(page-1)*size))
					assert.Len(t, p.Data, want)
					assert.Equal(t, total, p.TotalRecords)
					assert.Equal(t, (total+size-1)/size, p.TotalPages)
					assert.Equal(t, page, p.PageNumber)
					assert.Equal(t, size, p.PageSize)

					for i, v := range p.Data {
						assert.Equal(t, (page-1)*size+i, v)
					}
				})
			}
		}
	}
}

func TestPaginate_ClampsInputs(t *testing.T) {
	items := seq(25)

	p := Paginate(items, 0, 0)
	assert.Equal(t, 1, p.PageNumber)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, seq(10), p.Data)

	p = Paginate(items, -4, -1)
	assert.Equal(t, 1, p.PageNumber)
	assert.Equal(t, DefaultPageSize, p.PageSize)
}

func TestPaginate_OutOfRangeIsEmpty(t *testing.T) {
	p := Paginate(seq(5), 7, 2)

	require.NotNil(t, p.Data)
	assert.Empty(t, p.Data)
	assert.Equal(t, 5, p.TotalRecords)
	assert.Equal(t, 3, p.TotalPages)
}

func TestPaginate_IsPure(t *testing.T) {
	items := seq(13)

	a := Paginate(items, 2, 0)
	b := Paginate(items, 2, 0)
	assert.Equal(t, a, b)

	a.Data[0] = -1
	assert.Equal(t, 10, items[10])
}

func TestPaginate_HugePageSize(t *testing.T) {
	p := Paginate(seq(2), 1, math.MaxInt)

	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, 2, p.TotalRecords)
	assert.Equal(t, seq(2), p.Data)

	p = Paginate(seq(2), 2, math.MaxInt)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Data)

	p = Paginate(seq(0), 1, math.MaxInt)
	assert.Equal(t, 0, p.TotalPages)
	assert.Empty(t, p.Data)
}
