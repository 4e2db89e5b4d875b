package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osirix/clinique-api/internal/model"
	"github.com/osirix/clinique-api/internal/repository"
	apperrors "github.com/osirix/clinique-api/pkg/errors"
)

type countingRepo struct {
	types []*model.ConsultationType
	calls int
}

func (r *countingRepo) Get(_ context.Context, id uuid.UUID) (*model.ConsultationType, error) {
	r.calls++
	for _, ct := range r.types {
		if ct.ID == id {
			return ct, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *countingRepo) GetByName(_ context.Context, name string) (*model.ConsultationType, error) {
	r.calls++
	for _, ct := range r.types {
		if strings.EqualFold(ct.Name, name) {
			return ct, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *countingRepo) List(_ context.Context, filters *model.ConsultationTypeFilters) ([]*model.ConsultationType, error) {
	r.calls++
	var out []*model.ConsultationType
	for _, ct := range r.types {
		if filters.Category != "" && ct.Category != filters.Category {
			continue
		}
		out = append(out, ct)
	}
	return out, nil
}

func newRepo() *countingRepo {
	return &countingRepo{types: []*model.ConsultationType{
		{Base: model.Base{ID: uuid.New()}, Name: "Pédiatrie", Category: model.CategoryConsultation, IsActive: true},
		{Base: model.Base{ID: uuid.New()}, Name: "Radiologie", Category: model.CategoryExamination, IsActive: true},
	}}
}

func TestGetCachesByIDAndName(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo, time.Minute)
	ctx := context.Background()

	ct, err := svc.Get(ctx, repo.types[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Pédiatrie", ct.Name)

	_, err = svc.Get(ctx, repo.types[0].ID)
	require.NoError(t, err)
	byName, err := svc.GetByName(ctx, " pédiatrie ")
	require.NoError(t, err)
	assert.Same(t, ct, byName)
	assert.Equal(t, 1, repo.calls)
}

func TestGetUnknown(t *testing.T) {
	svc := NewService(newRepo(), time.Minute)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = svc.GetByName(context.Background(), "Dermatologie")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestListByCategory(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo, time.Minute)

	list, err := svc.List(context.Background(), model.CategoryExamination)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Radiologie", list[0].Name)

	_, err = svc.List(context.Background(), model.CategoryExamination)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	_, err = svc.List(context.Background(), "surgery")
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}
