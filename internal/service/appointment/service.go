package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osirix/clinique-api/internal/email"
	"github.com/osirix/clinique-api/internal/model"
	"github.com/osirix/clinique-api/internal/repository"
	"github.com/osirix/clinique-api/internal/service/notification"
	apperrors "github.com/osirix/clinique-api/pkg/errors"
	"github.com/osirix/clinique-api/pkg/logger"
	"github.com/osirix/clinique-api/pkg/metrics"
)

const (
	slotOccupiedMessage = "slot occupied: this time is already booked, please choose another one"
	mailTimeout         = 30 * time.Second
)

// ConsultationTypes resolves catalog entries.
type ConsultationTypes interface {
	Get(ctx context.Context, id uuid.UUID) (*model.ConsultationType, error)
}

// Service is the appointment slot manager: it books, reschedules and cancels
// appointments without letting two live bookings share a slot.
type Service struct {
	repo      repository.AppointmentRepository
	catalog   ConsultationTypes
	publisher notification.Publisher
	mailer    email.Service
	metrics   *metrics.Metrics
	logger    *logger.Logger
	location  *time.Location
	now       func() time.Time
	mail      sync.WaitGroup
}

// NewService wires the slot manager. A nil logger or location falls back to
// a no-op logger and UTC.
func NewService(
	repo repository.AppointmentRepository,
	catalog ConsultationTypes,
	publisher notification.Publisher,
	mailer email.Service,
	m *metrics.Metrics,
	log *logger.Logger,
	location *time.Location,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		repo:      repo,
		catalog:   catalog,
		publisher: publisher,
		mailer:    mailer,
		metrics:   m,
		logger:    log.With("appointment-service"),
		location:  location,
		now:       time.Now,
	}
}

// ListUnavailableSlots returns the booked times on date, restricted to
// serviceName when given.
func (s *Service) ListUnavailableSlots(ctx context.Context, date model.Date, serviceName string) ([]string, error) {
	if date.IsZero() {
		return nil, apperrors.BadRequest("date is required", nil)
	}

	slots, err := s.repo.ListUnavailableSlots(ctx, date, strings.TrimSpace(serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to list unavailable slots: %w", err)
	}
	return slots, nil
}

func (s *Service) CreateAppointment(ctx context.Context, session *model.Session, req *model.CreateAppointmentRequest) (*model.CreatedAppointment, error) {
	if session == nil {
		return nil, apperrors.Unauthorized(nil)
	}

	consultationTypeID, err := uuid.Parse(req.ConsultationTypeID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid consultation type id", err)
	}

	date, err := model.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	if err := s.checkSchedule(date, req.AppointmentTime); err != nil {
		return nil, err
	}

	ct, err := s.catalog.Get(ctx, consultationTypeID)
	if err != nil {
		return nil, err
	}
	if !ct.IsActive {
		return nil, apperrors.BadRequest(fmt.Sprintf("%s is not available for booking", ct.Name), nil)
	}

	unavailable, err := s.ListUnavailableSlots(ctx, date, ct.Name)
	if err != nil {
		return nil, err
	}
	if !IsSlotAvailable(req.AppointmentTime, unavailable, "") {
		return nil, s.slotConflict("create", nil)
	}

	apt := &model.Appointment{
		PatientID:          session.UserID,
		ConsultationTypeID: ct.ID,
		ServiceName:        ct.Name,
		AppointmentDate:    date,
		AppointmentTime:    req.AppointmentTime,
		Status:             model.AppointmentStatusPending,
		PaymentMethod:      model.PaymentMethodOnSite,
		InsuranceStatus:    model.InsuranceStatusUnset,
	}
	if req.DoctorID != nil {
		doctorID, err := uuid.Parse(*req.DoctorID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid doctor id", err)
		}
		apt.DoctorID = &doctorID
	}
	if req.PaymentMethod != nil {
		apt.PaymentMethod = *req.PaymentMethod
	}
	if req.IsInsured != nil {
		apt.IsInsured = *req.IsInsured
	}
	if req.InsuranceStatus != nil {
		apt.InsuranceStatus = *req.InsuranceStatus
	}
	if req.Notes != nil {
		apt.Notes = strings.TrimSpace(*req.Notes)
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, s.slotConflict("create", err)
		}
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	if s.metrics != nil {
		s.metrics.AppointmentsCreated.Inc()
	}
	s.emit(ctx, model.EventAppointmentCreated, apt)

	if s.mailer != nil && session.Email != "" {
		s.sendMail(ctx, "confirmation", session.Email, apt, s.mailer.SendAppointmentConfirmation)
	}

	s.logger.Info("Appointment booked",
		"appointment_id", apt.ID.String(),
		"date", date.String(),
		"time", apt.AppointmentTime,
		"service", apt.ServiceName,
	)

	return &model.CreatedAppointment{
		Appointment: apt,
		NextSteps:   nextSteps(apt),
	}, nil
}

func (s *Service) GetAppointment(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Appointment, error) {
	return s.load(ctx, session, id)
}

// ListMyAppointments pages through the caller's own appointments.
func (s *Service) ListMyAppointments(ctx context.Context, session *model.Session, limit, offset int) ([]*model.Appointment, int, error) {
	if session == nil {
		return nil, 0, apperrors.Unauthorized(nil)
	}

	patientID := session.UserID
	appointments, total, err := s.repo.List(ctx, &model.AppointmentFilters{
		PatientID: &patientID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, total, nil
}

// ListAppointments serves the secretary dashboard.
func (s *Service) ListAppointments(ctx context.Context, session *model.Session, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	if err := requireStaff(session); err != nil {
		return nil, 0, err
	}
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, 0, apperrors.BadRequest(fmt.Sprintf("invalid status %q", filters.Status), nil)
	}

	appointments, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, total, nil
}

func (s *Service) Stats(ctx context.Context, session *model.Session, date *model.Date) (*model.AppointmentStats, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}

	stats, err := s.repo.Stats(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment stats: %w", err)
	}
	return stats, nil
}

// UpdateAppointment reschedules an appointment and/or edits its notes.
func (s *Service) UpdateAppointment(ctx context.Context, session *model.Session, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.loadMutable(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if apt.Status.IsTerminal() {
		return nil, apperrors.BadRequest(fmt.Sprintf("a %s appointment cannot be modified", apt.Status), nil)
	}

	newDate := apt.AppointmentDate
	if req.AppointmentDate != nil {
		newDate, err = model.ParseDate(*req.AppointmentDate)
		if err != nil {
			return nil, apperrors.BadRequest(err.Error(), err)
		}
	}
	newTime := apt.AppointmentTime
	if req.AppointmentTime != nil {
		newTime = *req.AppointmentTime
	}

	if newDate != apt.AppointmentDate || newTime != apt.AppointmentTime {
		if err := s.checkSchedule(newDate, newTime); err != nil {
			return nil, err
		}

		unavailable, err := s.ListUnavailableSlots(ctx, newDate, apt.ServiceName)
		if err != nil {
			return nil, err
		}

		exception := ""
		if newDate == apt.AppointmentDate {
			exception = apt.AppointmentTime
		}
		if !IsSlotAvailable(newTime, unavailable, exception) {
			return nil, s.slotConflict("update", nil)
		}

		apt.AppointmentDate = newDate
		apt.AppointmentTime = newTime
	}

	if req.Notes != nil {
		apt.Notes = strings.TrimSpace(*req.Notes)
	}

	if err := s.save(ctx, apt, "update"); err != nil {
		return nil, err
	}

	s.emit(ctx, model.EventAppointmentUpdated, apt)
	return apt, nil
}

// CancelAppointment marks the appointment cancelled, freeing its slot. The
// row is kept.
func (s *Service) CancelAppointment(ctx context.Context, session *model.Session, id uuid.UUID, reason string) (*model.Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.BadRequest("a cancellation reason is required", nil)
	}

	apt, err := s.loadMutable(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !apt.Status.CanTransitionTo(model.AppointmentStatusCancelled) {
		return nil, apperrors.BadRequest(fmt.Sprintf("a %s appointment cannot be cancelled", apt.Status), nil)
	}

	apt.Status = model.AppointmentStatusCancelled
	apt.CancelReason = &reason

	if err := s.save(ctx, apt, "cancel"); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AppointmentsCancelled.Inc()
		s.metrics.StatusTransitions.WithLabelValues(string(apt.Status)).Inc()
	}
	s.emit(ctx, model.EventAppointmentCancelled, apt)

	if s.mailer != nil && session.UserID == apt.PatientID && session.Email != "" {
		s.sendMail(ctx, "cancellation", session.Email, apt, s.mailer.SendAppointmentCancellation)
	}

	return apt, nil
}

func (s *Service) ConfirmAppointment(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Appointment, error) {
	return s.UpdateStatus(ctx, session, id, model.AppointmentStatusConfirmed)
}

func (s *Service) CompleteAppointment(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Appointment, error) {
	return s.UpdateStatus(ctx, session, id, model.AppointmentStatusCompleted)
}

// UpdateStatus applies a staff status transition. Cancellation goes through
// CancelAppointment since it needs a reason.
func (s *Service) UpdateStatus(ctx context.Context, session *model.Session, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}

	var eventType model.AppointmentEventType
	switch status {
	case model.AppointmentStatusConfirmed:
		eventType = model.EventAppointmentConfirmed
	case model.AppointmentStatusCompleted:
		eventType = model.EventAppointmentCompleted
	default:
		return nil, apperrors.BadRequest(fmt.Sprintf("status cannot be set to %q", status), nil)
	}

	apt, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !apt.Status.CanTransitionTo(status) {
		return nil, apperrors.BadRequest(fmt.Sprintf("cannot change status from %s to %s", apt.Status, status), nil)
	}

	apt.Status = status
	if err := s.save(ctx, apt, "status"); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(status)).Inc()
	}
	s.emit(ctx, eventType, apt)
	return apt, nil
}

// DeletePermanently removes a cancelled appointment. Irreversible.
func (s *Service) DeletePermanently(ctx context.Context, session *model.Session, id uuid.UUID) error {
	if err := requireStaff(session); err != nil {
		return err
	}

	apt, err := s.load(ctx, session, id)
	if err != nil {
		return err
	}
	if apt.Status != model.AppointmentStatusCancelled {
		return apperrors.BadRequest("only cancelled appointments can be permanently deleted", nil)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("appointment", err)
		}
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	if s.metrics != nil {
		s.metrics.AppointmentsDeleted.Inc()
	}
	s.emit(ctx, model.EventAppointmentDeleted, apt)

	s.logger.Info("Appointment permanently deleted",
		"appointment_id", id.String(),
		"by", session.UserID.String(),
	)
	return nil
}

func (s *Service) load(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Appointment, error) {
	if session == nil {
		return nil, apperrors.Unauthorized(nil)
	}

	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if !session.CanAccess(apt.PatientID) {
		return nil, apperrors.Forbidden("you do not have access to this appointment")
	}
	return apt, nil
}

// loadMutable also enforces that patients only change upcoming appointments.
func (s *Service) loadMutable(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !session.IsStaff() && !apt.StartsAt(s.location).After(s.now()) {
		return nil, apperrors.BadRequest("past appointments can no longer be changed", nil)
	}
	return apt, nil
}

func (s *Service) save(ctx context.Context, apt *model.Appointment, operation string) error {
	if err := s.repo.Update(ctx, apt); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return s.slotConflict(operation, err)
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NotFound("appointment", err)
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

// checkSchedule validates that date/time is a real slot that has not passed.
func (s *Service) checkSchedule(date model.Date, t string) error {
	if !IsValidSlot(t) {
		return apperrors.BadRequest(fmt.Sprintf("invalid time %q: choose a half-hour slot between 08:00 and 18:30", t), nil)
	}

	now := s.now().In(s.location)
	if date.Before(model.DateOf(now)) {
		return apperrors.BadRequest("appointment date cannot be in the past", nil)
	}

	probe := &model.Appointment{AppointmentDate: date, AppointmentTime: t}
	if !probe.StartsAt(s.location).After(now) {
		return apperrors.BadRequest("this time slot has already passed", nil)
	}
	return nil
}

func (s *Service) slotConflict(operation string, err error) error {
	if s.metrics != nil {
		s.metrics.SlotConflicts.WithLabelValues(operation).Inc()
	}
	return apperrors.Conflict(slotOccupiedMessage, err)
}

// sendMail delivers in the background so a slow SMTP server never holds up
// the request. Failures are logged only.
func (s *Service) sendMail(ctx context.Context, kind, to string, apt *model.Appointment, send func(context.Context, string, *model.Appointment) error) {
	snapshot := *apt
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)

	s.mail.Add(1)
	go func() {
		defer s.mail.Done()
		defer cancel()
		if err := send(ctx, to, &snapshot); err != nil {
			s.logger.Error(err, "Failed to send "+kind+" email", "appointment_id", snapshot.ID.String())
		}
	}()
}

// Wait blocks until queued e-mails have been handed to the mailer.
func (s *Service) Wait() {
	s.mail.Wait()
}

func (s *Service) emit(ctx context.Context, t model.AppointmentEventType, apt *model.Appointment) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, model.NewAppointmentEvent(t, apt))
}

func requireStaff(session *model.Session) error {
	if session == nil {
		return apperrors.Unauthorized(nil)
	}
	if !session.IsStaff() {
		return apperrors.Forbidden("this action is reserved to clinic staff")
	}
	return nil
}

func nextSteps(apt *model.Appointment) []string {
	steps := []string{
		"Votre demande de rendez-vous a été enregistrée et est en attente de confirmation.",
		fmt.Sprintf("Le secrétariat vous contactera pour confirmer le créneau du %s à %s.", apt.AppointmentDate, apt.AppointmentTime),
	}

	switch apt.PaymentMethod {
	case model.PaymentMethodOnline:
		steps = append(steps, "Vous pourrez régler la consultation en ligne depuis votre espace patient.")
	default:
		steps = append(steps, "Le règlement s'effectue sur place le jour du rendez-vous.")
	}

	if apt.IsInsured || apt.InsuranceStatus == model.InsuranceStatusInsured {
		steps = append(steps, "Pensez à apporter votre carte d'assurance maladie.")
	}

	return append(steps, "Merci de vous présenter 15 minutes avant l'heure du rendez-vous.")
}
