package appointment

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osirix/clinique-api/internal/model"
	"github.com/osirix/clinique-api/internal/repository"
)

// memoryRepo mirrors the postgres repository, including the partial unique
// index on active (date, time, consultation type).
type memoryRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]model.Appointment
	creates int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[uuid.UUID]model.Appointment)}
}

func (r *memoryRepo) conflicts(apt *model.Appointment) bool {
	if !apt.Status.OccupiesSlot() {
		return false
	}
	for id, row := range r.rows {
		if id == apt.ID || !row.Status.OccupiesSlot() {
			continue
		}
		if row.AppointmentDate == apt.AppointmentDate &&
			row.AppointmentTime == apt.AppointmentTime &&
			row.ConsultationTypeID == apt.ConsultationTypeID {
			return true
		}
	}
	return false
}

func (r *memoryRepo) Create(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	if r.conflicts(apt) {
		return repository.ErrSlotTaken
	}
	apt.CreatedAt = time.Now().UTC()
	apt.UpdatedAt = apt.CreatedAt
	r.rows[apt.ID] = *apt
	r.creates++
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (r *memoryRepo) Update(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[apt.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.conflicts(apt) {
		return repository.ErrSlotTaken
	}
	apt.UpdatedAt = time.Now().UTC()
	r.rows[apt.ID] = *apt
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.Status != model.AppointmentStatusCancelled {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memoryRepo) List(_ context.Context, f *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, row := range r.rows {
		row := row
		if f.PatientID != nil && row.PatientID != *f.PatientID {
			continue
		}
		if f.Date != nil && row.AppointmentDate != *f.Date {
			continue
		}
		if f.Status != "" && row.Status != f.Status {
			continue
		}
		if f.ServiceName != "" && !strings.EqualFold(row.ServiceName, f.ServiceName) {
			continue
		}
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppointmentDate != out[j].AppointmentDate {
			return out[j].AppointmentDate.Before(out[i].AppointmentDate)
		}
		return out[i].AppointmentTime < out[j].AppointmentTime
	})
	total := len(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			out = nil
		} else {
			out = out[f.Offset:]
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *memoryRepo) ListUnavailableSlots(_ context.Context, date model.Date, serviceName string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	slots := []string{}
	for _, row := range r.rows {
		if row.AppointmentDate != date || row.Status == model.AppointmentStatusCancelled {
			continue
		}
		if serviceName != "" && !strings.EqualFold(row.ServiceName, serviceName) {
			continue
		}
		if _, ok := seen[row.AppointmentTime]; ok {
			continue
		}
		seen[row.AppointmentTime] = struct{}{}
		slots = append(slots, row.AppointmentTime)
	}
	sort.Strings(slots)
	return slots, nil
}

func (r *memoryRepo) Stats(_ context.Context, date *model.Date) (*model.AppointmentStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &model.AppointmentStats{Date: date}
	for _, row := range r.rows {
		if date != nil && row.AppointmentDate != *date {
			continue
		}
		stats.Total++
		switch row.Status {
		case model.AppointmentStatusPending:
			stats.Pending++
		case model.AppointmentStatusConfirmed:
			stats.Confirmed++
		case model.AppointmentStatusCompleted:
			stats.Completed++
		case model.AppointmentStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

// insert stores a row directly, bypassing service checks.
func (r *memoryRepo) insert(apt model.Appointment) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	r.rows[apt.ID] = apt
	return apt.ID
}
