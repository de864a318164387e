package query

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id      string
	title   string
	tags    []string
	created time.Time
	rank    int
}

func (i item) Field(name string) (any, bool) {
	switch name {
	case "id":
		return i.id, true
	case "title":
		return i.title, true
	case "tags":
		return i.tags, true
	case "createdAt":
		return i.created, true
	case "rank":
		return i.rank, true
	}
	return nil, false
}

func makeItems(n int) []item {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := make([]item, n)
	for i := range items {
		items[i] = item{id: fmt.Sprintf("id-%02d", i), created: base.Add(time.Duration(i) * time.Minute)}
	}
	return items
}

func TestPaginationValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Pagination
		wantErr bool
	}{
		{name: "first page", p: Pagination{Page: 1, PageSize: 10}},
		{name: "max size", p: Pagination{Page: 3, PageSize: MaxPageSize}},
		{name: "zero page", p: Pagination{Page: 0, PageSize: 10}, wantErr: true},
		{name: "zero size", p: Pagination{Page: 1, PageSize: 0}, wantErr: true},
		{name: "oversized", p: Pagination{Page: 1, PageSize: MaxPageSize + 1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPagination)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPaginateCoversEveryItemOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 10, 23} {
		for _, size := range []int{1, 3, 10, 25} {
			t.Run(fmt.Sprintf("n=%d size=%d", n, size), func(t *testing.T) {
				items := makeItems(n)
				first := Paginate(items, Pagination{Page: 1, PageSize: size})
				totalPages := first.Meta.TotalPages
				assert.Equal(t, (n+size-1)/size, totalPages)

				var all []item
				for page := 1; page <= totalPages; page++ {
					p := Paginate(items, Pagination{Page: page, PageSize: size})
					assert.Equal(t, n, p.Meta.Total)
					assert.Equal(t, page > 1, p.Meta.HasPreviousPage)
					assert.Equal(t, page < totalPages, p.Meta.HasNextPage)
					all = append(all, p.Data...)
				}
				if n == 0 {
					assert.Empty(t, all)
					assert.False(t, first.Meta.HasNextPage)
					return
				}
				assert.Equal(t, items, all)
			})
		}
	}
}

func TestPaginateHugePage(t *testing.T) {
	items := makeItems(5)
	tests := []struct {
		name string
		p    Pagination
	}{
		{"max int page", Pagination{Page: math.MaxInt, PageSize: 4}},
		{"offset would wrap negative", Pagination{Page: math.MaxInt/4*2 + 1, PageSize: 4}},
		{"max page size", Pagination{Page: math.MaxInt/MaxPageSize + 2, PageSize: MaxPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.p.Validate())
			assert.Equal(t, math.MaxInt, tt.p.Offset())

			page := Paginate(items, tt.p)
			assert.Empty(t, page.Data)
			assert.Equal(t, 5, page.Meta.Total)
			assert.Equal(t, tt.p.Page, page.Meta.Page)
			assert.False(t, page.Meta.HasNextPage)
			assert.True(t, page.Meta.HasPreviousPage)
		})
	}
}

func TestPaginatePastEnd(t *testing.T) {
	p := Paginate(makeItems(5), Pagination{Page: 4, PageSize: 2})
	assert.Empty(t, p.Data)
	assert.NotNil(t, p.Data)
	assert.Equal(t, 5, p.Meta.Total)
	assert.Equal(t, 3, p.Meta.TotalPages)
	assert.False(t, p.Meta.HasNextPage)
	assert.True(t, p.Meta.HasPreviousPage)
}

func TestWhere(t *testing.T) {
	items := []item{
		{id: "1", tags: []string{"a", "b"}},
		{id: "2", tags: []string{"b", "c"}},
		{id: "3", title: "Go", tags: nil},
	}

	got := Where(items, Condition{Field: "tags", Value: "b"})
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].id)
	assert.Equal(t, "2", got[1].id)

	assert.Empty(t, Where(items, Condition{Field: "tags", Value: "z"}))
	assert.Len(t, Where(items, Condition{Field: "title", Value: "go", Fold: true}), 1)
	assert.Empty(t, Where(items, Condition{Field: "title", Value: "go"}))
	assert.Empty(t, Where(items, Condition{Field: "missing", Value: "x"}))
	assert.Len(t, Where(items,
		Condition{Field: "tags", Value: "b"},
		Condition{Field: "tags", Value: "c"},
	), 1)
}

func TestSearch(t *testing.T) {
	items := []item{
		{id: "1", title: "Learning Go Generics"},
		{id: "2", title: "Rust", tags: []string{"Golang-adjacent"}},
		{id: "3", title: "Cooking"},
	}

	got := Search(items, "GO", "title", "tags")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].id)
	assert.Equal(t, "2", got[1].id)

	assert.Len(t, Search(items, "  ", "title"), 3)
	assert.Empty(t, Search(items, "go", "missing"))
}

func TestSort(t *testing.T) {
	items := makeItems(4)

	t.Run("default is createdAt", func(t *testing.T) {
		got := Sort(items, "", Desc)
		assert.Equal(t, "id-03", got[0].id)
		assert.Equal(t, "id-00", got[3].id)
		assert.Equal(t, "id-00", items[0].id, "input must not be reordered")
	})

	t.Run("strings ascending", func(t *testing.T) {
		words := []item{{id: "1", title: "banana"}, {id: "2", title: "Apple"}, {id: "3", title: "cherry"}}
		got := Sort(words, "title", Asc)
		assert.Equal(t, []string{"2", "1", "3"}, ids(got))
	})

	t.Run("ints", func(t *testing.T) {
		ranked := []item{{id: "1", rank: 3}, {id: "2", rank: 1}, {id: "3", rank: 2}}
		assert.Equal(t, []string{"2", "3", "1"}, ids(Sort(ranked, "rank", Asc)))
	})

	t.Run("unsupported types keep order", func(t *testing.T) {
		tagged := []item{{id: "1", tags: []string{"z"}}, {id: "2", tags: []string{"a"}}}
		assert.Equal(t, []string{"1", "2"}, ids(Sort(tagged, "tags", Asc)))
		assert.Equal(t, []string{"1", "2"}, ids(Sort(tagged, "tags", Desc)))
	})

	t.Run("stable on ties", func(t *testing.T) {
		same := []item{{id: "1", title: "x"}, {id: "2", title: "x"}, {id: "3", title: "x"}}
		assert.Equal(t, []string{"1", "2", "3"}, ids(Sort(same, "title", Desc)))
	})
}

func TestApply(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []item{
		{id: "1", title: "Go tips", tags: []string{"go"}, created: base},
		{id: "2", title: "Go tricks", tags: []string{"go", "advanced"}, created: base.Add(time.Hour)},
		{id: "3", title: "Rust tips", tags: []string{"rust"}, created: base.Add(2 * time.Hour)},
	}

	got := Apply(items, Query{
		Conditions:   []Condition{{Field: "tags", Value: "go"}},
		Search:       "tips",
		SearchFields: []string{"title"},
	})
	assert.Equal(t, []string{"1"}, ids(got))

	assert.Equal(t, []string{"3", "2", "1"}, ids(Apply(items, Query{})))
	assert.Equal(t, []string{"1", "2", "3"}, ids(Apply(items, Query{Order: Asc})))
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, Asc, ParseOrder("ASC"))
	assert.Equal(t, Desc, ParseOrder("desc"))
	assert.Equal(t, Desc, ParseOrder(""))
}

func ids(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}
