package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func parse(query string) Params {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/?"+query, nil)
	return ParseParams(c)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedLimit  int
		expectedOffset int
	}{
		{"defaults", "", DefaultLimit, DefaultOffset},
		{"limit and offset", "limit=10&offset=20", 10, 20},
		{"zero limit", "limit=0", DefaultLimit, DefaultOffset},
		{"negative limit", "limit=-10", DefaultLimit, DefaultOffset},
		{"limit capped", "limit=200", MaxLimit, DefaultOffset},
		{"negative offset", "offset=-10", DefaultLimit, DefaultOffset},
		{"non-numeric", "limit=abc&offset=xyz", DefaultLimit, DefaultOffset},
		{"page and page_size", "page=3&page_size=25", 25, 50},
		{"page wins over offset", "page=2&offset=7", DefaultLimit, DefaultLimit},
		{"invalid page falls back to offset", "page=0&offset=7", DefaultLimit, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := parse(tt.query)
			assert.Equal(t, tt.expectedLimit, params.Limit)
			assert.Equal(t, tt.expectedOffset, params.Offset)
		})
	}
}

func TestBuildMeta(t *testing.T) {
	tests := []struct {
		limit      int
		total      int64
		totalPages int
	}{
		{10, 100, 10},
		{10, 25, 3},
		{10, 1, 1},
		{10, 0, 0},
		{0, 100, 0},
		{50, 10, 1},
		{10, 11, 2},
	}
	for _, tt := range tests {
		meta := BuildMeta(tt.limit, 0, tt.total)
		assert.Equal(t, tt.totalPages, meta.TotalPages, "limit=%d total=%d", tt.limit, tt.total)
		assert.Equal(t, tt.total, meta.Total)
	}

	assert.NotNil(t, BuildMeta(-10, -20, -100))
}

func TestHasMore(t *testing.T) {
	assert.True(t, HasMore(0, 10, 100))
	assert.True(t, HasMore(80, 10, 100))
	assert.False(t, HasMore(90, 10, 100))
	assert.False(t, HasMore(0, 10, 0))
}

func TestGetCurrentPage(t *testing.T) {
	assert.Equal(t, 1, GetCurrentPage(0, 10))
	assert.Equal(t, 2, GetCurrentPage(10, 10))
	assert.Equal(t, 3, GetCurrentPage(25, 10))
	assert.Equal(t, 1, GetCurrentPage(10, 0))
}
