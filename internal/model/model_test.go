package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	d, err := ParseDate("2025-06-10")
	require.NoError(t, err)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-06-10"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d, back)

	assert.Error(t, json.Unmarshal([]byte(`"10/06/2025"`), &back))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-06-10", d.String())

	require.NoError(t, d.Scan([]byte("2025-07-01T00:00:00Z")))
	assert.Equal(t, "2025-07-01", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

func TestDateOrdering(t *testing.T) {
	a, _ := ParseDate("2025-06-10")
	b, _ := ParseDate("2025-06-11")
	c, _ := ParseDate("2026-01-01")

	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.True(t, c.After(a))
	assert.False(t, a.Before(a))
	assert.False(t, a.After(a))
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		allowed  bool
	}{
		{AppointmentStatusPending, AppointmentStatusConfirmed, true},
		{AppointmentStatusPending, AppointmentStatusCancelled, true},
		{AppointmentStatusConfirmed, AppointmentStatusCompleted, true},
		{AppointmentStatusConfirmed, AppointmentStatusCancelled, true},
		{AppointmentStatusPending, AppointmentStatusCompleted, false},
		{AppointmentStatusCompleted, AppointmentStatusCancelled, false},
		{AppointmentStatusCancelled, AppointmentStatusPending, false},
		{AppointmentStatusCancelled, AppointmentStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, AppointmentStatusCompleted.IsTerminal())
	assert.True(t, AppointmentStatusCancelled.IsTerminal())
	assert.False(t, AppointmentStatusCancelled.OccupiesSlot())
	assert.True(t, AppointmentStatusCompleted.OccupiesSlot())
	assert.False(t, AppointmentStatus("archived").Valid())
}

func TestStartsAt(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	d, _ := ParseDate("2025-06-10")
	apt := &Appointment{AppointmentDate: d, AppointmentTime: "09:30"}

	assert.Equal(t, time.Date(2025, 6, 10, 9, 30, 0, 0, loc), apt.StartsAt(loc))
}

func TestSessionAccess(t *testing.T) {
	patient := uuid.New()
	s := &Session{UserID: patient, Role: RolePatient}
	staff := &Session{UserID: uuid.New(), Role: RoleSecretary}

	assert.True(t, s.CanAccess(patient))
	assert.False(t, s.CanAccess(uuid.New()))
	assert.True(t, staff.CanAccess(patient))
	assert.False(t, s.IsStaff())

	var nilSession *Session
	assert.False(t, nilSession.CanAccess(patient))
}
