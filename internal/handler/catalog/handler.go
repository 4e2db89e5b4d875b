package catalog

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/osirix/clinique-api/internal/model"
	"github.com/osirix/clinique-api/pkg/httputil"
)

type Service interface {
	List(ctx context.Context, category model.ConsultationCategory) ([]*model.ConsultationType, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/consultation-types", h.ListConsultationTypes)
}

func (h *Handler) ListConsultationTypes(c *gin.Context) {
	types, err := h.service.List(c.Request.Context(), model.ConsultationCategory(c.Query("category")))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if types == nil {
		types = []*model.ConsultationType{}
	}

	httputil.RespondWithSuccess(c, types)
}
