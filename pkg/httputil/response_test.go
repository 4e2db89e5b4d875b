package httputil

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osirix/clinique-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRespondWithErrorUsesAppErrorStatus(t *testing.T) {
	c, w := newContext("/appointments")
	RespondWithError(c, errors.Conflict("slot occupied", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "slot occupied", resp.Message)
}

func TestRespondWithErrorHidesUnknownErrors(t *testing.T) {
	c, w := newContext("/appointments")
	RespondWithError(c, stderrors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w).Message)
}

func TestRespondWithPagination(t *testing.T) {
	c, w := newContext("/appointments")
	RespondWithPagination(c, []string{"a", "b"}, 2, 10, 21)

	resp := decode(t, w)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.Equal(t, 21, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.Page)
}

func TestPageFromContext(t *testing.T) {
	tests := []struct {
		query      string
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"", 1, DefaultLimit, 0},
		{"?page=3&limit=5", 3, 5, 10},
		{"?page=-1&limit=1000", 1, MaxLimit, 0},
		{"?page=abc&limit=0", 1, DefaultLimit, 0},
		{"?page=9223372036854775807&limit=100", MaxPage, MaxLimit, (MaxPage - 1) * MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := newContext("/appointments/my-appointments" + tt.query)
			p := PageFromContext(c)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset())
		})
	}
}
