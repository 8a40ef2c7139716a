package pagination_test

import (
	"fmt"
	"testing"

	"github.com/ArCaneSec/apidock/internal/models"
	"github.com/ArCaneSec/apidock/internal/pagination"
	"github.com/ArCaneSec/apidock/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name                     string
		total                    int64
		size, page               int
		wantSize, wantPage, last int
	}{
		{"first page", 45, 20, 1, 20, 1, 3},
		{"past the end", 45, 20, 999, 20, 3, 3},
		{"zero page", 45, 20, 0, 20, 1, 3},
		{"negative page", 45, 20, -4, 20, 1, 3},
		{"default size", 45, 0, 2, pagination.DefaultSize, 2, 3},
		{"empty listing", 0, 10, 5, 10, 1, 1},
		{"exact fit", 40, 20, 2, 20, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, page, last := pagination.Clamp(tt.total, tt.size, tt.page)
			assert.Equal(t, tt.wantSize, size)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestPaginateClampsToLastPage(t *testing.T) {
	db := storetest.Open(t)
	for i := 1; i <= 5; i++ {
		require.NoError(t, db.Create(&models.Project{Name: fmt.Sprintf("p%d", i)}).Error)
	}

	q := db.Model(&models.Project{}).Order("id")
	page, err := pagination.Paginate[models.Project](q, 2, 999)
	require.NoError(t, err)

	assert.Equal(t, 3, page.Number)
	assert.Equal(t, 3, page.TotalPages)
	assert.EqualValues(t, 5, page.Count)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p5", page.Items[0].Name)

	// the query is reusable
	page, err = pagination.Paginate[models.Project](q, 2, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "p1", page.Items[0].Name)
}

func TestPaginateEmpty(t *testing.T) {
	db := storetest.Open(t)

	page, err := pagination.Paginate[models.Project](db.Model(&models.Project{}), 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 1, page.TotalPages)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}
