package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortSpecResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec SortSpec
		want SortSpec
	}{
		{
			"zero value falls back to created_at desc",
			SortSpec{},
			SortSpec{Field: SortFieldCreatedAt, Direction: SortDesc},
		},
		{
			"allowed field passes through",
			SortSpec{Field: SortFieldDueDate, Direction: SortAsc},
			SortSpec{Field: SortFieldDueDate, Direction: SortAsc},
		},
		{
			"unknown field falls back, not errors",
			SortSpec{Field: "drop table tasks", Direction: SortAsc},
			SortSpec{Field: SortFieldCreatedAt, Direction: SortAsc},
		},
		{
			"unknown direction falls back to desc",
			SortSpec{Field: SortFieldTitle, Direction: "sideways"},
			SortSpec{Field: SortFieldTitle, Direction: SortDesc},
		},
		{
			"field matching is case-insensitive",
			SortSpec{Field: "Due_Date", Direction: "ASC"},
			SortSpec{Field: SortFieldDueDate, Direction: SortAsc},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.spec.Resolve())
		})
	}
}

func TestPaginationNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		page       Pagination
		wantLimit  int
		wantOffset int
	}{
		{"zero value uses defaults", Pagination{}, DefaultPageLimit, 0},
		{"negative page clamps to first", Pagination{Page: -3, Limit: 10}, 10, 0},
		{"limit clamps to maximum", Pagination{Page: 1, Limit: 10_000}, MaxPageLimit, 0},
		{"offset follows page", Pagination{Page: 3, Limit: 20}, 20, 40},
		{"zero limit uses default", Pagination{Page: 2}, DefaultPageLimit, DefaultPageLimit},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			limit, offset := tc.page.Normalize()
			assert.Equal(t, tc.wantLimit, limit)
			assert.Equal(t, tc.wantOffset, offset)
		})
	}
}

func TestPageResultNavigation(t *testing.T) {
	t.Parallel()

	first := PageResult[int]{Items: []int{1, 2}, Total: 5, Limit: 2, Offset: 0}
	assert.True(t, first.HasNext())
	assert.False(t, first.HasPrevious())

	middle := PageResult[int]{Items: []int{3, 4}, Total: 5, Limit: 2, Offset: 2}
	assert.True(t, middle.HasNext())
	assert.True(t, middle.HasPrevious())

	last := PageResult[int]{Items: []int{5}, Total: 5, Limit: 2, Offset: 4}
	assert.False(t, last.HasNext())
	assert.True(t, last.HasPrevious())

	empty := PageResult[int]{Items: []int{}, Total: 0, Limit: 20, Offset: 0}
	assert.False(t, empty.HasNext())
	assert.False(t, empty.HasPrevious())
}
