package appointment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/osirix/clinique-api/internal/middleware"
	"github.com/osirix/clinique-api/internal/model"
	appointmentsvc "github.com/osirix/clinique-api/internal/service/appointment"
	apperrors "github.com/osirix/clinique-api/pkg/errors"
	"github.com/osirix/clinique-api/pkg/httputil"
)

// Service is the appointment slot manager as seen by the HTTP layer.
type Service interface {
	ListUnavailableSlots(ctx context.Context, date model.Date, serviceName string) ([]string, error)
	CreateAppointment(ctx context.Context, session *model.Session, req *model.CreateAppointmentRequest) (*model.CreatedAppointment, error)
	GetAppointment(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Appointment, error)
	ListMyAppointments(ctx context.Context, session *model.Session, limit, offset int) ([]*model.Appointment, int, error)
	UpdateAppointment(ctx context.Context, session *model.Session, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error)
	CancelAppointment(ctx context.Context, session *model.Session, id uuid.UUID, reason string) (*model.Appointment, error)
	ListAppointments(ctx context.Context, session *model.Session, filters *model.AppointmentFilters) ([]*model.Appointment, int, error)
	Stats(ctx context.Context, session *model.Session, date *model.Date) (*model.AppointmentStats, error)
	UpdateStatus(ctx context.Context, session *model.Session, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error)
	DeletePermanently(ctx context.Context, session *model.Session, id uuid.UUID) error
}

// Handler serves the patient and staff appointment routes.
type Handler struct {
	service Service
}

// NewHandler returns a Handler backed by service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the patient-facing routes. rg must already require
// authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	appointments := rg.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("/my-appointments", h.ListMyAppointments)
		appointments.GET("/slots", h.ListDaySlots)
		appointments.GET("/availability/:date", h.GetAvailability)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.CancelAppointment)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	created, err := h.service.CreateAppointment(c.Request.Context(), middleware.GetSession(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, created)
}

func (h *Handler) ListMyAppointments(c *gin.Context) {
	page := httputil.PageFromContext(c)

	appointments, total, err := h.service.ListMyAppointments(c.Request.Context(), middleware.GetSession(c), page.Limit, page.Offset())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithPagination(c, nonNil(appointments), page.Page, page.Limit, total)
}

func (h *Handler) ListDaySlots(c *gin.Context) {
	httputil.RespondWithSuccess(c, appointmentsvc.GenerateDaySlots())
}

// availability is the payload of GET /appointments/availability/:date.
type availability struct {
	Date             model.Date `json:"date"`
	Service          string     `json:"service,omitempty"`
	UnavailableSlots []string   `json:"unavailable_slots"`
}

func (h *Handler) GetAvailability(c *gin.Context) {
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	service := c.Query("service")

	slots, err := h.service.ListUnavailableSlots(c.Request.Context(), date, service)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, availability{
		Date:             date,
		Service:          service,
		UnavailableSlots: slots,
	})
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	appointment, err := h.service.GetAppointment(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	if req.AppointmentDate == nil && req.AppointmentTime == nil && req.Notes == nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "nothing to update")
		return
	}

	appointment, err := h.service.UpdateAppointment(c.Request.Context(), middleware.GetSession(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req model.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	appointment, err := h.service.CancelAppointment(c.Request.Context(), middleware.GetSession(c), id, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointment)
}

func appointmentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "invalid appointment ID")
		return uuid.Nil, false
	}
	return id, true
}

func nonNil(appointments []*model.Appointment) []*model.Appointment {
	if appointments == nil {
		return []*model.Appointment{}
	}
	return appointments
}
