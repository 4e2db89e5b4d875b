package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/osirix/clinique-api/internal/middleware"
	"github.com/osirix/clinique-api/internal/model"
	apperrors "github.com/osirix/clinique-api/pkg/errors"
	"github.com/osirix/clinique-api/pkg/httputil"
)

// RegisterStaffRoutes mounts the secretary dashboard routes. rg must already
// require a staff session.
func (h *Handler) RegisterStaffRoutes(rg *gin.RouterGroup) {
	staff := rg.Group("/appointments")
	{
		staff.GET("", h.ListAppointments)
		staff.GET("/stats", h.GetStats)
		staff.PATCH("/:id/status", h.UpdateStatus)
		staff.DELETE("/:id/permanent", h.DeletePermanently)
	}
}

func (h *Handler) ListAppointments(c *gin.Context) {
	page := httputil.PageFromContext(c)
	filters := &model.AppointmentFilters{
		Status:      model.AppointmentStatus(c.Query("status")),
		ServiceName: c.Query("service"),
		Limit:       page.Limit,
		Offset:      page.Offset(),
	}

	if raw := c.Query("date"); raw != "" {
		date, err := model.ParseDate(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
			return
		}
		filters.Date = &date
	}

	if raw := c.Query("patient_id"); raw != "" {
		patientID, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithStatus(c, http.StatusBadRequest, "invalid patient ID")
			return
		}
		filters.PatientID = &patientID
	}

	appointments, total, err := h.service.ListAppointments(c.Request.Context(), middleware.GetSession(c), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithPagination(c, nonNil(appointments), page.Page, page.Limit, total)
}

func (h *Handler) GetStats(c *gin.Context) {
	var date *model.Date
	if raw := c.Query("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
			return
		}
		date = &d
	}

	stats, err := h.service.Stats(c.Request.Context(), middleware.GetSession(c), date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, stats)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	appointment, err := h.service.UpdateStatus(c.Request.Context(), middleware.GetSession(c), id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) DeletePermanently(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	if err := h.service.DeletePermanently(c.Request.Context(), middleware.GetSession(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithMessage(c, "appointment permanently deleted")
}
