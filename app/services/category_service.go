package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"quill/app/models"
	"quill/app/query"
	"quill/app/repositories"
)

// PostCounter counts posts referencing a category.
type PostCounter interface {
	CountByCategory(ctx context.Context, categoryID string) (int, error)
}

var categorySearchFields = []string{"name", "description"}

// CategoryService enforces case-insensitive unique category names.
type CategoryService struct {
	categories repositories.Store[*models.Category]
	posts      PostCounter
	logger     *slog.Logger

	// mu makes the name check and the write a single step.
	mu sync.Mutex
}

func NewCategoryService(categories repositories.Store[*models.Category], posts PostCounter, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		posts:      posts,
		logger:     componentLogger(logger, "category_service"),
	}
}

// nameTaken reports whether another category already uses name, ignoring
// case. The category with id self is skipped.
func (s *CategoryService) nameTaken(ctx context.Context, name, self string) (bool, error) {
	all, err := s.categories.FindAll(ctx)
	if err != nil {
		return false, err
	}
	name = strings.TrimSpace(name)
	for _, c := range all {
		if c.ID != self && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *CategoryService) Create(ctx context.Context, draft models.CategoryDraft) (*models.Category, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	taken, err := s.nameTaken(ctx, draft.Name, "")
	if err != nil {
		return nil, fmt.Errorf("checking category name: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: category %q already exists", ErrConflict, strings.TrimSpace(draft.Name))
	}

	category, err := s.categories.Create(ctx, draft.Category())
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	s.logger.Info("category created", slog.String("id", category.ID), slog.String("name", category.Name))
	return category, nil
}

// List returns every category in store order.
func (s *CategoryService) List(ctx context.Context) ([]*models.Category, error) {
	all, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return all, nil
}

func (s *CategoryService) ListPage(ctx context.Context, p query.Pagination) (*query.Page[*models.Category], error) {
	page, err := s.categories.FindPage(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return page, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	category, found, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting category %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("category %s: %w", id, repositories.ErrNotFound)
	}
	return category, nil
}

// Update re-checks name uniqueness only when the patch sets a name.
func (s *CategoryService) Update(ctx context.Context, id string, patch models.CategoryPatch) (*models.Category, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Name != nil {
		taken, err := s.nameTaken(ctx, *patch.Name, id)
		if err != nil {
			return nil, fmt.Errorf("checking category name: %w", err)
		}
		if taken {
			return nil, fmt.Errorf("%w: category %q already exists", ErrConflict, strings.TrimSpace(*patch.Name))
		}
	}

	category, found, err := s.categories.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("updating category %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("category %s: %w", id, repositories.ErrNotFound)
	}
	s.logger.Info("category updated", slog.String("id", id))
	return category, nil
}

// Delete removes the category. Posts referencing it keep the dangling id.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	removed, err := s.categories.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting category %s: %w", id, err)
	}
	if !removed {
		return fmt.Errorf("category %s: %w", id, repositories.ErrNotFound)
	}
	s.logger.Info("category deleted", slog.String("id", id))
	return nil
}

// Search matches term against name and description, ignoring case.
func (s *CategoryService) Search(ctx context.Context, term string) ([]*models.Category, error) {
	all, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching categories: %w", err)
	}
	return query.Search(all, term, categorySearchFields...), nil
}

// PostCount returns how many posts reference the category.
func (s *CategoryService) PostCount(ctx context.Context, id string) (int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}
	return s.posts.CountByCategory(ctx, id)
}

func (s *CategoryService) Count(ctx context.Context) (int, error) {
	return s.categories.Count(ctx)
}
