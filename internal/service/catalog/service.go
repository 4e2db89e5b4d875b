package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/osirix/clinique-api/internal/model"
	"github.com/osirix/clinique-api/internal/repository"
	apperrors "github.com/osirix/clinique-api/pkg/errors"
)

// Service is a read-only, cached view of the consultation type catalog.
type Service struct {
	repo  repository.ConsultationTypeRepository
	cache *cache.Cache
}

// NewService caches lookups for ttl; a non-positive ttl never expires them.
func NewService(repo repository.ConsultationTypeRepository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Service{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ConsultationType, error) {
	key := "id:" + id.String()
	if cached, found := s.cache.Get(key); found {
		return cached.(*model.ConsultationType), nil
	}

	ct, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.BadRequest("unknown consultation type", err)
		}
		return nil, fmt.Errorf("failed to get consultation type: %w", err)
	}

	s.store(ct)
	return ct, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (*model.ConsultationType, error) {
	key := nameKey(name)
	if cached, found := s.cache.Get(key); found {
		return cached.(*model.ConsultationType), nil
	}

	ct, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("consultation type", err)
		}
		return nil, fmt.Errorf("failed to get consultation type: %w", err)
	}

	s.store(ct)
	return ct, nil
}

// List returns active consultation types, optionally restricted to category.
func (s *Service) List(ctx context.Context, category model.ConsultationCategory) ([]*model.ConsultationType, error) {
	if category != "" && category != model.CategoryConsultation && category != model.CategoryExamination {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid category %q", category), nil)
	}

	key := "list:" + string(category)
	if cached, found := s.cache.Get(key); found {
		return cached.([]*model.ConsultationType), nil
	}

	list, err := s.repo.List(ctx, &model.ConsultationTypeFilters{
		Category:   category,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list consultation types: %w", err)
	}

	s.cache.SetDefault(key, list)
	return list, nil
}

func (s *Service) store(ct *model.ConsultationType) {
	s.cache.SetDefault("id:"+ct.ID.String(), ct)
	s.cache.SetDefault(nameKey(ct.Name), ct)
}

func nameKey(name string) string {
	return "name:" + strings.ToLower(strings.TrimSpace(name))
}
