package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type CategoryInput struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
}

type CategoryService interface {
	Create(ctx context.Context, input CategoryInput) (*types.Category, error)
	Get(ctx context.Context, id int64) (*types.Category, error)
	GetBySlug(ctx context.Context, slug string) (*types.Category, error)
	List(ctx context.Context) ([]*types.Category, error)
	Update(ctx context.Context, id int64, input CategoryInput) (*types.Category, error)
	Delete(ctx context.Context, id int64) error
}

type categoryService struct {
	log        *logger.Logger
	categories repos.CategoryRepo
}

func NewCategoryService(log *logger.Logger, categories repos.CategoryRepo) CategoryService {
	return &categoryService{
		log:        log.With("service", "CategoryService"),
		categories: categories,
	}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases and replaces every non-alphanumeric run with a single
// hyphen.
func Slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

func (s *categoryService) Create(ctx context.Context, input CategoryInput) (*types.Category, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apierr.Validation("name is required")
	}
	name := strings.TrimSpace(*input.Name)
	slug := ""
	if input.Slug != nil {
		slug = strings.TrimSpace(*input.Slug)
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, apierr.Validation("could not derive a slug from %q", name)
	}

	category := &types.Category{
		Name:        name,
		Slug:        slug,
		Description: input.Description,
	}
	created, err := s.categories.Create(ctx, nil, category)
	if err != nil {
		return nil, mapDBError(err)
	}
	return created, nil
}

func (s *categoryService) Get(ctx context.Context, id int64) (*types.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("category %d not found", id)
		}
		return nil, apierr.Database(err)
	}
	return category, nil
}

func (s *categoryService) GetBySlug(ctx context.Context, slug string) (*types.Category, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, apierr.Validation("slug is required")
	}
	category, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("category %q not found", slug)
		}
		return nil, apierr.Database(err)
	}
	return category, nil
}

func (s *categoryService) List(ctx context.Context) ([]*types.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apierr.Database(err)
	}
	return categories, nil
}

func (s *categoryService) Update(ctx context.Context, id int64, input CategoryInput) (*types.Category, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apierr.Validation("name cannot be empty")
		}
		updates["name"] = name
		if input.Slug == nil {
			updates["slug"] = Slugify(name)
		}
	}
	if input.Slug != nil {
		slug := strings.TrimSpace(*input.Slug)
		if slug == "" {
			return nil, apierr.Validation("slug cannot be empty")
		}
		updates["slug"] = slug
	}
	if input.Description != nil {
		updates["description"] = input.Description
	}
	if len(updates) > 0 {
		if err := s.categories.Updates(ctx, nil, id, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierr.NotFound("category %d not found", id)
			}
			return nil, mapDBError(err)
		}
	}
	return s.Get(ctx, id)
}

// Delete is blocked while any book or tutorial references the category.
func (s *categoryService) Delete(ctx context.Context, id int64) error {
	refs, err := s.categories.ReferenceCount(ctx, id)
	if err != nil {
		return apierr.Database(err)
	}
	if refs > 0 {
		return apierr.Conflict("category %d is referenced by %d items", id, refs)
	}
	if err := s.categories.Delete(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("category %d not found", id)
		}
		return mapDBError(err)
	}
	return nil
}
