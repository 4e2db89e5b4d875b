package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentEventType string

const (
	EventAppointmentCreated   AppointmentEventType = "appointment.created"
	EventAppointmentUpdated   AppointmentEventType = "appointment.updated"
	EventAppointmentConfirmed AppointmentEventType = "appointment.confirmed"
	EventAppointmentCompleted AppointmentEventType = "appointment.completed"
	EventAppointmentCancelled AppointmentEventType = "appointment.cancelled"
	EventAppointmentDeleted   AppointmentEventType = "appointment.deleted"
)

// AppointmentEvent is relayed to connected clients when an appointment changes.
type AppointmentEvent struct {
	Type          AppointmentEventType `json:"type"`
	AppointmentID uuid.UUID            `json:"appointment_id"`
	PatientID     uuid.UUID            `json:"patient_id"`
	Status        AppointmentStatus    `json:"status"`
	Date          Date                 `json:"date"`
	Time          string               `json:"time"`
	ServiceName   string               `json:"service_name,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// NewAppointmentEvent snapshots apt into an event of type t.
func NewAppointmentEvent(t AppointmentEventType, apt *Appointment) *AppointmentEvent {
	return &AppointmentEvent{
		Type:          t,
		AppointmentID: apt.ID,
		PatientID:     apt.PatientID,
		Status:        apt.Status,
		Date:          apt.AppointmentDate,
		Time:          apt.AppointmentTime,
		ServiceName:   apt.ServiceName,
		OccurredAt:    time.Now().UTC(),
	}
}
