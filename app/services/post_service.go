package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"quill/app/models"
	"quill/app/query"
	"quill/app/repositories"
)

// CommentCascade is the slice of the comment service that post deletion
// needs.
type CommentCascade interface {
	RemoveByPostID(ctx context.Context, postID string) (int, error)
}

// PostFilter narrows a post listing. Empty fields do not filter.
type PostFilter struct {
	Search     string
	Author     string
	Tag        string
	CategoryID string
	SortBy     string
	Order      query.Order
}

var (
	postSearchFields = []string{"title", "content", "author", "tags"}
	postSortFields   = []string{"title", "author", "createdAt", "updatedAt"}
)

// PostService handles business logic for blog posts
type PostService struct {
	posts    repositories.Store[*models.Post]
	comments CommentCascade
	logger   *slog.Logger
}

// NewPostService creates a new PostService
func NewPostService(posts repositories.Store[*models.Post], comments CommentCascade, logger *slog.Logger) *PostService {
	return &PostService{
		posts:    posts,
		comments: comments,
		logger:   componentLogger(logger, "post_service"),
	}
}

// Create validates the draft and stores a new post.
func (s *PostService) Create(ctx context.Context, draft models.PostDraft) (*models.Post, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	post, err := s.posts.Create(ctx, draft.Post())
	if err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}
	s.logger.Info("post created", slog.String("id", post.ID), slog.String("author", post.Author))
	return post, nil
}

// List filters, searches and sorts every post, then returns one page.
func (s *PostService) List(ctx context.Context, f PostFilter, p query.Pagination) (*query.Page[*models.Post], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkSortField(f.SortBy, postSortFields); err != nil {
		return nil, err
	}

	all, err := s.posts.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	if f.Tag != "" {
		all = slices.DeleteFunc(all, func(p *models.Post) bool { return !p.HasTag(f.Tag) })
	}

	var conds []query.Condition
	if f.Author != "" {
		conds = append(conds, query.Condition{Field: "author", Value: f.Author, Fold: true})
	}
	if f.CategoryID != "" {
		conds = append(conds, query.Condition{Field: "categoryId", Value: f.CategoryID})
	}

	matched := query.Apply(all, query.Query{
		Conditions:   conds,
		Search:       f.Search,
		SearchFields: postSearchFields,
		SortBy:       f.SortBy,
		Order:        f.Order,
	})
	return query.Paginate(matched, p), nil
}

// Get returns the post or ErrNotFound.
func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, found, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting post %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("post %s: %w", id, repositories.ErrNotFound)
	}
	return post, nil
}

// Exists reports whether a post with id is stored.
func (s *PostService) Exists(ctx context.Context, id string) (bool, error) {
	return s.posts.Exists(ctx, id)
}

// Update applies a partial update.
func (s *PostService) Update(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	post, found, err := s.posts.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("updating post %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("post %s: %w", id, repositories.ErrNotFound)
	}
	s.logger.Info("post updated", slog.String("id", id))
	return post, nil
}

// Delete removes the post and then its comments. The two steps commit
// separately: if the second fails the post stays deleted and ErrCascade is
// returned.
func (s *PostService) Delete(ctx context.Context, id string) error {
	removed, err := s.posts.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting post %s: %w", id, err)
	}
	if !removed {
		return fmt.Errorf("post %s: %w", id, repositories.ErrNotFound)
	}

	n, err := s.comments.RemoveByPostID(ctx, id)
	if err != nil {
		s.logger.Error("post deleted but comments remain",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: post %s: %w", ErrCascade, id, err)
	}
	s.logger.Info("post deleted", slog.String("id", id), slog.Int("comments_removed", n))
	return nil
}

// Tags returns every distinct tag across all posts, sorted ascending
// ignoring case. Tags are case-insensitive, as in the tag filter of List:
// "Go" and "go" are one tag, listed under the spelling that sorts first
// byte-wise.
func (s *PostService) Tags(ctx context.Context) ([]string, error) {
	all, err := s.posts.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	tags := make([]string, 0)
	for _, post := range all {
		tags = append(tags, post.Tags...)
	}
	slices.SortFunc(tags, func(a, b string) int {
		return cmp.Or(cmp.Compare(strings.ToLower(a), strings.ToLower(b)), cmp.Compare(a, b))
	})
	return slices.CompactFunc(tags, strings.EqualFold), nil
}

// FindByAuthor returns the author's posts, newest first. Matching is exact.
func (s *PostService) FindByAuthor(ctx context.Context, author string) ([]*models.Post, error) {
	posts, err := s.posts.FindByField(ctx, "author", author)
	if err != nil {
		return nil, fmt.Errorf("finding posts by %s: %w", author, err)
	}
	return query.Sort(posts, query.DefaultSortField, query.Desc), nil
}

// CountByCategory counts posts referencing the category.
func (s *PostService) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	posts, err := s.posts.FindByField(ctx, "categoryId", categoryID)
	if err != nil {
		return 0, fmt.Errorf("counting posts in category %s: %w", categoryID, err)
	}
	return len(posts), nil
}

// Count returns the number of stored posts.
func (s *PostService) Count(ctx context.Context) (int, error) {
	return s.posts.Count(ctx)
}

func checkSortField(field string, allowed []string) error {
	if field == "" || slices.Contains(allowed, field) {
		return nil
	}
	return fmt.Errorf("%w: cannot sort by %q", models.ErrValidation, field)
}
