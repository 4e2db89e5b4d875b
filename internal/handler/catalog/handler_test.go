package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osirix/clinique-api/internal/model"
	apperrors "github.com/osirix/clinique-api/pkg/errors"
)

type stubCatalog struct {
	category model.ConsultationCategory
}

func (s *stubCatalog) List(_ context.Context, category model.ConsultationCategory) ([]*model.ConsultationType, error) {
	s.category = category
	if category == "surgery" {
		return nil, apperrors.BadRequest(`invalid category "surgery"`, nil)
	}
	return []*model.ConsultationType{{Name: "Échographie", Category: model.CategoryExamination, IsActive: true}}, nil
}

func TestListConsultationTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubCatalog{}
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/consultation-types?category=examination", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.CategoryExamination, svc.category)

	var body struct {
		Data []model.ConsultationType `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Échographie", body.Data[0].Name)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/consultation-types?category=surgery", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
