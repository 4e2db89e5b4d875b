package model

import (
	"github.com/google/uuid"
)

type Role string

const (
	RolePatient   Role = "patient"
	RoleSecretary Role = "secretary"
	RoleAdmin     Role = "admin"
)

// Session is the authenticated caller of a request. It is built by the auth
// middleware from the bearer token and handed explicitly to services.
type Session struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

// IsStaff reports whether the caller works at the clinic.
func (s *Session) IsStaff() bool {
	return s != nil && (s.Role == RoleSecretary || s.Role == RoleAdmin)
}

// CanAccess reports whether the caller may see an appointment of patientID.
func (s *Session) CanAccess(patientID uuid.UUID) bool {
	return s.IsStaff() || (s != nil && s.UserID == patientID)
}
