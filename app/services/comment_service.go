package services

import (
	"context"
	"fmt"
	"log/slog"

	"quill/app/models"
	"quill/app/query"
	"quill/app/repositories"
)

// PostLookup answers whether a post exists.
type PostLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// CommentService handles business logic for comments
type CommentService struct {
	comments repositories.Store[*models.Comment]
	posts    PostLookup
	logger   *slog.Logger
}

// NewCommentService creates a new CommentService
func NewCommentService(comments repositories.Store[*models.Comment], posts PostLookup, logger *slog.Logger) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		logger:   componentLogger(logger, "comment_service"),
	}
}

// Create adds a comment to an existing post. A missing post is
// ErrNotFound.
func (s *CommentService) Create(ctx context.Context, postID string, draft models.CommentDraft) (*models.Comment, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("checking post %s: %w", postID, err)
	}
	if !exists {
		return nil, fmt.Errorf("post %s: %w", postID, repositories.ErrNotFound)
	}

	comment, err := s.comments.Create(ctx, draft.Comment(postID))
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}
	s.logger.Info("comment created", slog.String("id", comment.ID), slog.String("post_id", postID))
	return comment, nil
}

// ListByPost returns the post's comments, newest first.
func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	comments, err := s.comments.FindByField(ctx, "postId", postID)
	if err != nil {
		return nil, fmt.Errorf("listing comments for post %s: %w", postID, err)
	}
	return query.Sort(comments, query.DefaultSortField, query.Desc), nil
}

// ListByPostPage pages ListByPost.
func (s *CommentService) ListByPostPage(ctx context.Context, postID string, p query.Pagination) (*query.Page[*models.Comment], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	comments, err := s.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return query.Paginate(comments, p), nil
}

func (s *CommentService) Get(ctx context.Context, id string) (*models.Comment, error) {
	comment, found, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting comment %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("comment %s: %w", id, repositories.ErrNotFound)
	}
	return comment, nil
}

// Update edits author or content. The post link never changes.
func (s *CommentService) Update(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	comment, found, err := s.comments.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("updating comment %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("comment %s: %w", id, repositories.ErrNotFound)
	}
	s.logger.Debug("comment updated", slog.String("id", id))
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, id string) error {
	removed, err := s.comments.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}
	if !removed {
		return fmt.Errorf("comment %s: %w", id, repositories.ErrNotFound)
	}
	s.logger.Info("comment deleted", slog.String("id", id))
	return nil
}

// CountByPost counts the post's comments without checking the post exists.
func (s *CommentService) CountByPost(ctx context.Context, postID string) (int, error) {
	comments, err := s.comments.FindByField(ctx, "postId", postID)
	if err != nil {
		return 0, fmt.Errorf("counting comments for post %s: %w", postID, err)
	}
	return len(comments), nil
}

// RemoveByPostID deletes every comment on the post.
func (s *CommentService) RemoveByPostID(ctx context.Context, postID string) (int, error) {
	n, err := s.comments.DeleteByField(ctx, "postId", postID)
	if err != nil {
		return 0, fmt.Errorf("removing comments for post %s: %w", postID, err)
	}
	if n > 0 {
		s.logger.Debug("comments removed", slog.String("post_id", postID), slog.Int("count", n))
	}
	return n, nil
}

func (s *CommentService) Count(ctx context.Context) (int, error) {
	return s.comments.Count(ctx)
}
