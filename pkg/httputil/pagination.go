package httputil

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps Offset from overflowing at MaxLimit.
	MaxPage = math.MaxInt32 / MaxLimit
)

// PageParams holds pagination parameters extracted from a request.
type PageParams struct {
	Page  int
	Limit int
}

// PageFromContext reads page and limit query parameters, clamping them to sane values.
func PageFromContext(c *gin.Context) PageParams {
	page, _ := strconv.Atoi(c.Query("page"))
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return PageParams{Page: page, Limit: limit}
}

// Offset returns the SQL offset for the page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}
