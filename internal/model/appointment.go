package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// AppointmentStatuses lists every status in lifecycle order.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	for _, known := range AppointmentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// OccupiesSlot reports whether an appointment in status s blocks its slot.
func (s AppointmentStatus) OccupiesSlot() bool {
	return s != AppointmentStatusCancelled
}

// CanTransitionTo reports whether s -> next is allowed.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodOnSite PaymentMethod = "on_site"
	PaymentMethodOnline PaymentMethod = "online"
)

type InsuranceStatus string

const (
	InsuranceStatusUnset      InsuranceStatus = "unset"
	InsuranceStatusInsured    InsuranceStatus = "insured"
	InsuranceStatusNotInsured InsuranceStatus = "not_insured"
)

type Appointment struct {
	Base
	PatientID          uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID           *uuid.UUID        `db:"doctor_id" json:"doctor_id,omitempty"`
	ConsultationTypeID uuid.UUID         `db:"consultation_type_id" json:"consultation_type_id"`
	ServiceName        string            `db:"service_name" json:"service_name"`
	AppointmentDate    Date              `db:"appointment_date" json:"appointment_date"`
	AppointmentTime    string            `db:"appointment_time" json:"appointment_time"`
	Status             AppointmentStatus `db:"status" json:"status"`
	PaymentMethod      PaymentMethod     `db:"payment_method" json:"payment_method"`
	IsInsured          bool              `db:"is_insured" json:"is_insured"`
	InsuranceStatus    InsuranceStatus   `db:"insurance_status" json:"insurance_status"`
	Notes              string            `db:"notes" json:"notes,omitempty"`
	CancelReason       *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// StartsAt returns the appointment start in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	start := a.AppointmentDate.In(loc)
	if t, err := time.Parse("15:04", a.AppointmentTime); err == nil {
		start = start.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	}
	return start
}

type CreateAppointmentRequest struct {
	ConsultationTypeID string           `json:"consultation_type_id" binding:"required,uuid"`
	DoctorID           *string          `json:"doctor_id" binding:"omitempty,uuid"`
	AppointmentDate    string           `json:"appointment_date" binding:"required,datetime=2006-01-02"`
	AppointmentTime    string           `json:"appointment_time" binding:"required,slot"`
	PaymentMethod      *PaymentMethod   `json:"payment_method" binding:"omitempty,oneof=on_site online"`
	IsInsured          *bool            `json:"is_insured"`
	InsuranceStatus    *InsuranceStatus `json:"insurance_status" binding:"omitempty,oneof=unset insured not_insured"`
	Notes              *string          `json:"notes" binding:"omitempty,max=1000"`
}

type UpdateAppointmentRequest struct {
	AppointmentDate *string `json:"appointment_date" binding:"omitempty,datetime=2006-01-02"`
	AppointmentTime *string `json:"appointment_time" binding:"omitempty,slot"`
	Notes           *string `json:"notes" binding:"omitempty,max=1000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,oneof=confirmed completed"`
}

// CreatedAppointment is returned from a successful booking.
type CreatedAppointment struct {
	Appointment *Appointment `json:"appointment"`
	NextSteps   []string     `json:"next_steps"`
}

type AppointmentFilters struct {
	PatientID   *uuid.UUID
	Date        *Date
	Status      AppointmentStatus
	ServiceName string
	Limit       int
	Offset      int
}

// AppointmentStats counts appointments per status.
type AppointmentStats struct {
	Date      *Date `json:"date,omitempty"`
	Total     int   `json:"total"`
	Pending   int   `json:"pending"`
	Confirmed int   `json:"confirmed"`
	Completed int   `json:"completed"`
	Cancelled int   `json:"cancelled"`
}
