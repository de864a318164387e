package services

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"quill/app/models"
	"quill/app/repositories/mock"
)

type fixture struct {
	postStore     *mock.Store[*models.Post]
	categoryStore *mock.Store[*models.Category]
	commentStore  *mock.Store[*models.Comment]

	posts      *PostService
	categories *CategoryService
	comments   *CommentService
}

// tickingClock advances one second per call so creation order is visible
// in timestamps.
func tickingClock() func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		postStore:     mock.NewPostStore(),
		categoryStore: mock.NewCategoryStore(),
		commentStore:  mock.NewCommentStore(),
	}
	clock := tickingClock()
	f.postStore.Now = clock
	f.categoryStore.Now = clock
	f.commentStore.Now = clock

	f.comments = NewCommentService(f.commentStore, f.postStore, logger)
	f.posts = NewPostService(f.postStore, f.comments, logger)
	f.categories = NewCategoryService(f.categoryStore, f.posts, logger)
	return f
}

func postDraft(title, author string, tags ...string) models.PostDraft {
	return models.PostDraft{
		Title:   title,
		Content: "This is test content for " + strings.ToLower(title),
		Author:  author,
		Tags:    tags,
	}
}

func strPtr(s string) *string {
	return &s
}
