package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/osirix/clinique-api/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrSlotTaken is returned when a write collides with another active
	// appointment on the same date, time and consultation type.
	ErrSlotTaken = errors.New("slot already booked")
)

// All repository interfaces in one file
type (
	// AppointmentRepository persists appointments
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error)
		// ListUnavailableSlots returns the distinct times of non-cancelled
		// appointments on date, restricted to serviceName when it is not empty.
		ListUnavailableSlots(ctx context.Context, date model.Date, serviceName string) ([]string, error)
		Stats(ctx context.Context, date *model.Date) (*model.AppointmentStats, error)
	}

	// ConsultationTypeRepository reads the service catalog
	ConsultationTypeRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.ConsultationType, error)
		GetByName(ctx context.Context, name string) (*model.ConsultationType, error)
		List(ctx context.Context, filters *model.ConsultationTypeFilters) ([]*model.ConsultationType, error)
	}
)
