package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/cyber-patrol/pkg/common"
)

const (
	DefaultLimit  = 20
	MaxLimit      = 100
	DefaultOffset = 0
)

// Params holds limit/offset pagination values
type Params struct {
	Limit  int
	Offset int
}

// ParseParams reads limit/offset, or page/page_size, from the query string.
// Invalid values fall back to defaults and limit is capped at MaxLimit.
func ParseParams(c *gin.Context) Params {
	params := Params{Limit: DefaultLimit, Offset: DefaultOffset}

	limitKey := "limit"
	if c.Query("page_size") != "" {
		limitKey = "page_size"
	}
	if limit, err := strconv.Atoi(c.Query(limitKey)); err == nil && limit > 0 {
		params.Limit = limit
	}
	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		params.Offset = (page - 1) * params.Limit
		return params
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset >= 0 {
		params.Offset = offset
	}
	return params
}

// BuildMeta builds response metadata for a page
func BuildMeta(limit, offset int, total int64) *common.Meta {
	meta := &common.Meta{Limit: limit, Offset: offset, Total: total}
	if limit > 0 && total > 0 {
		meta.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return meta
}

// HasMore reports whether items remain after this page
func HasMore(offset, limit int, total int64) bool {
	return int64(offset+limit) < total
}

// GetCurrentPage returns the 1-based page for offset
func GetCurrentPage(offset, limit int) int {
	if limit <= 0 || offset <= 0 {
		return 1
	}
	return offset/limit + 1
}
