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

const consultationTypeColumns = `
	id, name, description, price, category, is_active, created_at, updated_at`

type consultationTypeRepository struct {
	BaseRepository
}

func NewConsultationTypeRepository(db *sqlx.DB, m *metrics.Metrics) repository.ConsultationTypeRepository {
	return &consultationTypeRepository{NewBaseRepository(db, m)}
}

func (r *consultationTypeRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.ConsultationType, err error) {
	defer r.observe("consultation_types.get", time.Now(), &err)

	query := `SELECT` + consultationTypeColumns + ` FROM consultation_types WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *consultationTypeRepository) GetByName(ctx context.Context, name string) (_ *model.ConsultationType, err error) {
	defer r.observe("consultation_types.get_by_name", time.Now(), &err)

	query := `SELECT` + consultationTypeColumns + ` FROM consultation_types WHERE LOWER(name) = LOWER($1)`
	return r.getOne(ctx, query, name)
}

func (r *consultationTypeRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.ConsultationType, error) {
	var ct model.ConsultationType
	if err := r.db.GetContext(ctx, &ct, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get consultation type: %w", err)
	}
	return &ct, nil
}

func (r *consultationTypeRepository) List(ctx context.Context, filters *model.ConsultationTypeFilters) (_ []*model.ConsultationType, err error) {
	defer r.observe("consultation_types.list", time.Now(), &err)

	query := `SELECT` + consultationTypeColumns + ` FROM consultation_types`
	var conds []string
	var args []interface{}

	if filters != nil {
		if filters.Category != "" {
			args = append(args, filters.Category)
			conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
		}
		if filters.ActiveOnly {
			conds = append(conds, "is_active = TRUE")
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY category, name"

	types := []*model.ConsultationType{}
	if err = r.db.SelectContext(ctx, &types, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list consultation types: %w", err)
	}
	return types, nil
}
