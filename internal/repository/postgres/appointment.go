package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/osirix/clinique-api/internal/model"
	"github.com/osirix/clinique-api/internal/repository"
	"github.com/osirix/clinique-api/pkg/metrics"
)

const appointmentColumns = `
	a.id, a.patient_id, a.doctor_id, a.consultation_type_id,
	ct.name AS service_name,
	a.appointment_date, a.appointment_time, a.status,
	a.payment_method, a.is_insured, a.insurance_status,
	a.notes, a.cancel_reason, a.created_at, a.updated_at`

const appointmentFrom = `
	FROM appointments a
	JOIN consultation_types ct ON ct.id = a.consultation_type_id`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB, m *metrics.Metrics) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db, m)}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) (err error) {
	defer r.observe("appointments.create", time.Now(), &err)

	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, consultation_type_id,
			appointment_date, appointment_time, status,
			payment_method, is_insured, insurance_status, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now().UTC()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.ConsultationTypeID,
		appointment.AppointmentDate,
		appointment.AppointmentTime,
		appointment.Status,
		appointment.PaymentMethod,
		appointment.IsInsured,
		appointment.InsuranceStatus,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.Appointment, err error) {
	defer r.observe("appointments.get", time.Now(), &err)

	query := `SELECT` + appointmentColumns + appointmentFrom + `
		WHERE a.id = $1`

	var appointment model.Appointment
	if err = r.db.GetContext(ctx, &appointment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) (err error) {
	defer r.observe("appointments.update", time.Now(), &err)

	query := `
		UPDATE appointments
		SET appointment_date = $1, appointment_time = $2, status = $3,
			notes = $4, cancel_reason = $5, updated_at = $6
		WHERE id = $7
	`
	appointment.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		appointment.AppointmentDate,
		appointment.AppointmentTime,
		appointment.Status,
		appointment.Notes,
		appointment.CancelReason,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a cancelled appointment. Rows in any other status are left alone.
func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer r.observe("appointments.delete", time.Now(), &err)

	query := `
		DELETE FROM appointments
		WHERE id = $1 AND status = 'cancelled'
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) (_ []*model.Appointment, _ int, err error) {
	defer r.observe("appointments.list", time.Now(), &err)

	where, args := appointmentWhere(filters)

	var total int
	countQuery := `SELECT COUNT(*)` + appointmentFrom + where
	if err = r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	query := `SELECT` + appointmentColumns + appointmentFrom + where +
		` ORDER BY a.appointment_date DESC, a.appointment_time ASC`
	if filters != nil && filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filters.Limit, filters.Offset)
	}

	appointments := []*model.Appointment{}
	if err = r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, total, nil
}

func appointmentWhere(filters *model.AppointmentFilters) (string, []interface{}) {
	if filters == nil {
		return "", nil
	}

	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filters.PatientID != nil {
		add("a.patient_id = $%d", *filters.PatientID)
	}
	if filters.Date != nil {
		add("a.appointment_date = $%d", *filters.Date)
	}
	if filters.Status != "" {
		add("a.status = $%d", filters.Status)
	}
	if filters.ServiceName != "" {
		add("LOWER(ct.name) = LOWER($%d)", filters.ServiceName)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *appointmentRepository) ListUnavailableSlots(ctx context.Context, date model.Date, serviceName string) (_ []string, err error) {
	defer r.observe("appointments.unavailable_slots", time.Now(), &err)

	query := `
		SELECT DISTINCT a.appointment_time` + appointmentFrom + `
		WHERE a.appointment_date = $1
		AND a.status <> 'cancelled'`
	args := []interface{}{date}

	if serviceName != "" {
		query += " AND LOWER(ct.name) = LOWER($2)"
		args = append(args, serviceName)
	}

	query += " ORDER BY a.appointment_time ASC"

	times := []string{}
	if err = r.db.SelectContext(ctx, &times, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list unavailable slots: %w", err)
	}
	return times, nil
}

func (r *appointmentRepository) Stats(ctx context.Context, date *model.Date) (_ *model.AppointmentStats, err error) {
	defer r.observe("appointments.stats", time.Now(), &err)

	query := `SELECT status, COUNT(*) AS count FROM appointments`
	var args []interface{}
	if date != nil {
		query += " WHERE appointment_date = $1"
		args = append(args, *date)
	}
	query += " GROUP BY status"

	var rows []struct {
		Status model.AppointmentStatus `db:"status"`
		Count  int                     `db:"count"`
	}
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count appointments by status: %w", err)
	}

	stats := &model.AppointmentStats{Date: date}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case model.AppointmentStatusPending:
			stats.Pending = row.Count
		case model.AppointmentStatusConfirmed:
			stats.Confirmed = row.Count
		case model.AppointmentStatusCompleted:
			stats.Completed = row.Count
		case model.AppointmentStatusCancelled:
			stats.Cancelled = row.Count
		}
	}
	return stats, nil
}
