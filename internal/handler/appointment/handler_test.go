package appointment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osirix/clinique-api/internal/middleware"
	"github.com/osirix/clinique-api/internal/model"
	apperrors "github.com/osirix/clinique-api/pkg/errors"
)

type stubService struct {
	unavailable []string
	err         error

	gotDate    model.Date
	gotService string
	gotLimit   int
	gotOffset  int
	gotReason  string
	gotStatus  model.AppointmentStatus
	gotFilters *model.AppointmentFilters
	gotCreate  *model.CreateAppointmentRequest
	appts      []*model.Appointment
	total      int
}

func (s *stubService) ListUnavailableSlots(_ context.Context, date model.Date, serviceName string) ([]string, error) {
	s.gotDate, s.gotService = date, serviceName
	return s.unavailable, s.err
}

func (s *stubService) CreateAppointment(_ context.Context, session *model.Session, req *model.CreateAppointmentRequest) (*model.CreatedAppointment, error) {
	s.gotCreate = req
	if s.err != nil {
		return nil, s.err
	}
	return &model.CreatedAppointment{
		Appointment: &model.Appointment{Base: model.Base{ID: uuid.New()}, PatientID: session.UserID, Status: model.AppointmentStatusPending},
		NextSteps:   []string{"step"},
	}, nil
}

func (s *stubService) GetAppointment(_ context.Context, _ *model.Session, id uuid.UUID) (*model.Appointment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Appointment{Base: model.Base{ID: id}}, nil
}

func (s *stubService) ListMyAppointments(_ context.Context, _ *model.Session, limit, offset int) ([]*model.Appointment, int, error) {
	s.gotLimit, s.gotOffset = limit, offset
	return s.appts, s.total, s.err
}

func (s *stubService) UpdateAppointment(_ context.Context, _ *model.Session, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Appointment{Base: model.Base{ID: id}, AppointmentTime: *req.AppointmentTime}, nil
}

func (s *stubService) CancelAppointment(_ context.Context, _ *model.Session, id uuid.UUID, reason string) (*model.Appointment, error) {
	s.gotReason = reason
	if s.err != nil {
		return nil, s.err
	}
	return &model.Appointment{Base: model.Base{ID: id}, Status: model.AppointmentStatusCancelled, CancelReason: &reason}, nil
}

func (s *stubService) ListAppointments(_ context.Context, _ *model.Session, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	s.gotFilters = filters
	return s.appts, s.total, s.err
}

func (s *stubService) Stats(_ context.Context, _ *model.Session, date *model.Date) (*model.AppointmentStats, error) {
	return &model.AppointmentStats{Date: date, Total: 4, Pending: 4}, s.err
}

func (s *stubService) UpdateStatus(_ context.Context, _ *model.Session, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	s.gotStatus = status
	if s.err != nil {
		return nil, s.err
	}
	return &model.Appointment{Base: model.Base{ID: id}, Status: status}, nil
}

func (s *stubService) DeletePermanently(context.Context, *model.Session, uuid.UUID) error {
	return s.err
}

type envelope struct {
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
}

func newRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler(), middleware.Validation(middleware.DefaultValidationConfig()))
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextSession, &model.Session{UserID: uuid.New(), Role: model.RoleSecretary})
		c.Next()
	})
	h := NewHandler(svc)
	h.RegisterRoutes(r.Group("/api/v1"))
	h.RegisterStaffRoutes(r.Group("/api/v1/staff"))
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestCreateAppointment(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)
	ctID := uuid.New().String()

	w, env := do(t, r, http.MethodPost, "/api/v1/appointments",
		`{"consultation_type_id":"`+ctID+`","appointment_date":"2025-06-10","appointment_time":"09:00","payment_method":"online"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "success", env.Status)
	require.NotNil(t, svc.gotCreate)
	assert.Equal(t, model.PaymentMethodOnline, *svc.gotCreate.PaymentMethod)

	var created model.CreatedAppointment
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, []string{"step"}, created.NextSteps)
}

func TestCreateAppointmentValidation(t *testing.T) {
	r := newRouter(&stubService{})
	ctID := uuid.New().String()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad slot", `{"consultation_type_id":"` + ctID + `","appointment_date":"2025-06-10","appointment_time":"19:00"}`, "appointment_time must be a half-hour slot between 08:00 and 18:30"},
		{"bad date", `{"consultation_type_id":"` + ctID + `","appointment_date":"10/06/2025","appointment_time":"09:00"}`, "appointment_date must be a date formatted YYYY-MM-DD"},
		{"missing service", `{"appointment_date":"2025-06-10","appointment_time":"09:00"}`, "consultation_type_id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, r, http.MethodPost, "/api/v1/appointments", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, env.Message)
		})
	}
}

func TestCreateAppointmentConflict(t *testing.T) {
	r := newRouter(&stubService{err: apperrors.Conflict("slot occupied", nil)})

	w, env := do(t, r, http.MethodPost, "/api/v1/appointments",
		`{"consultation_type_id":"`+uuid.New().String()+`","appointment_date":"2025-06-10","appointment_time":"09:00"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "slot occupied", env.Message)
}

func TestGetAvailability(t *testing.T) {
	svc := &stubService{unavailable: []string{"09:00"}}
	r := newRouter(svc)

	w, env := do(t, r, http.MethodGet, "/api/v1/appointments/availability/2025-06-10?service=P%C3%A9diatrie", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-06-10", svc.gotDate.String())
	assert.Equal(t, "Pédiatrie", svc.gotService)

	var got availability
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, []string{"09:00"}, got.UnavailableSlots)

	w, env = do(t, r, http.MethodGet, "/api/v1/appointments/availability/tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "expected YYYY-MM-DD")
}

func TestListDaySlots(t *testing.T) {
	_, env := do(t, newRouter(&stubService{}), http.MethodGet, "/api/v1/appointments/slots", "")

	var slots []string
	require.NoError(t, json.Unmarshal(env.Data, &slots))
	assert.Len(t, slots, 22)
}

func TestListMyAppointmentsPagination(t *testing.T) {
	svc := &stubService{total: 12}
	r := newRouter(svc)

	w, env := do(t, r, http.MethodGet, "/api/v1/appointments/my-appointments?page=2&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.gotLimit)
	assert.Equal(t, 5, svc.gotOffset)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 3, env.Pagination.TotalPages)
	assert.JSONEq(t, `[]`, string(env.Data))

	do(t, r, http.MethodGet, "/api/v1/appointments/my-appointments?limit=1000", "")
	assert.Equal(t, 100, svc.gotLimit)
	assert.Equal(t, 0, svc.gotOffset)
}

func TestGetAppointment(t *testing.T) {
	w, env := do(t, newRouter(&stubService{}), http.MethodGet, "/api/v1/appointments/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid appointment ID", env.Message)

	r := newRouter(&stubService{err: apperrors.NotFound("appointment", nil)})
	w, env = do(t, r, http.MethodGet, "/api/v1/appointments/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "appointment not found", env.Message)
}

func TestUpdateAppointment(t *testing.T) {
	r := newRouter(&stubService{})
	path := "/api/v1/appointments/" + uuid.New().String()

	w, env := do(t, r, http.MethodPatch, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "nothing to update", env.Message)

	w, _ = do(t, r, http.MethodPatch, path, `{"appointment_time":"10:30"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodPatch, path, `{"appointment_time":"10:45"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelAppointment(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)
	path := "/api/v1/appointments/" + uuid.New().String()

	w, env := do(t, r, http.MethodDelete, path, `{"reason":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "reason is required", env.Message)

	w, _ = do(t, r, http.MethodDelete, path, `{"reason":"Patient indisponible"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Patient indisponible", svc.gotReason)
}

func TestStaffListAppointments(t *testing.T) {
	svc := &stubService{total: 1, appts: []*model.Appointment{{Base: model.Base{ID: uuid.New()}}}}
	r := newRouter(svc)
	patientID := uuid.New()

	w, env := do(t, r, http.MethodGet, "/api/v1/staff/appointments?date=2025-06-10&status=pending&service=Urologie&patient_id="+patientID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.Pagination.Total)

	f := svc.gotFilters
	require.NotNil(t, f.Date)
	assert.Equal(t, "2025-06-10", f.Date.String())
	assert.Equal(t, model.AppointmentStatusPending, f.Status)
	assert.Equal(t, "Urologie", f.ServiceName)
	assert.Equal(t, patientID, *f.PatientID)
	assert.Equal(t, 10, f.Limit)

	w, _ = do(t, r, http.MethodGet, "/api/v1/staff/appointments?patient_id=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaffStats(t *testing.T) {
	r := newRouter(&stubService{})

	w, env := do(t, r, http.MethodGet, "/api/v1/staff/appointments/stats?date=2025-06-10", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.AppointmentStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 4, stats.Pending)
	assert.Equal(t, "2025-06-10", stats.Date.String())
}

func TestStaffUpdateStatus(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)
	path := "/api/v1/staff/appointments/" + uuid.New().String() + "/status"

	w, _ := do(t, r, http.MethodPatch, path, `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.AppointmentStatusConfirmed, svc.gotStatus)

	w, env := do(t, r, http.MethodPatch, path, `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status must be one of: confirmed completed", env.Message)
}

func TestStaffDeletePermanently(t *testing.T) {
	path := "/api/v1/staff/appointments/" + uuid.New().String() + "/permanent"

	w, env := do(t, newRouter(&stubService{}), http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "appointment permanently deleted", env.Message)

	r := newRouter(&stubService{err: apperrors.BadRequest("only cancelled appointments can be permanently deleted", nil)})
	w, _ = do(t, r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
