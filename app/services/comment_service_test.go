package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/app/models"
	"quill/app/query"
	"quill/app/repositories"
)

func TestCommentService(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *models.Post) {
		f := newFixture()
		post, err := f.posts.Create(ctx, postDraft("Test Post", "Alice"))
		require.NoError(t, err)
		return f, post
	}

	t.Run("create comment", func(t *testing.T) {
		f, post := setup(t)
		comment, err := f.comments.Create(ctx, post.ID, models.CommentDraft{Author: "Bob", Content: "Test comment"})
		require.NoError(t, err)
		assert.NotEmpty(t, comment.ID)
		assert.Equal(t, post.ID, comment.PostID)
	})

	t.Run("create on missing post", func(t *testing.T) {
		f, _ := setup(t)
		_, err := f.comments.Create(ctx, "missing", models.CommentDraft{Author: "Bob", Content: "Test comment"})
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		n, err := f.comments.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("get comment", func(t *testing.T) {
		f, post := setup(t)
		created, err := f.comments.Create(ctx, post.ID, models.CommentDraft{Author: "Bob", Content: "Test comment"})
		require.NoError(t, err)

		comment, err := f.comments.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Test comment", comment.Content)

		_, err = f.comments.Get(ctx, "missing")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("update comment", func(t *testing.T) {
		f, post := setup(t)
		created, err := f.comments.Create(ctx, post.ID, models.CommentDraft{Author: "Bob", Content: "Test comment"})
		require.NoError(t, err)

		updated, err := f.comments.Update(ctx, created.ID, models.CommentPatch{Content: strPtr("Edited")})
		require.NoError(t, err)
		assert.Equal(t, "Edited", updated.Content)
		assert.Equal(t, "Bob", updated.Author)
		assert.Equal(t, post.ID, updated.PostID)

		_, err = f.comments.Update(ctx, "missing", models.CommentPatch{Content: strPtr("Edited")})
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("delete comment", func(t *testing.T) {
		f, post := setup(t)
		created, err := f.comments.Create(ctx, post.ID, models.CommentDraft{Author: "Bob", Content: "Test comment"})
		require.NoError(t, err)

		require.NoError(t, f.comments.Delete(ctx, created.ID))
		assert.ErrorIs(t, f.comments.Delete(ctx, created.ID), repositories.ErrNotFound)
	})

	t.Run("list post comments newest first", func(t *testing.T) {
		f, post := setup(t)
		other, err := f.posts.Create(ctx, postDraft("Other Post", "Alice"))
		require.NoError(t, err)
		for _, content := range []string{"first", "second", "third"} {
			_, err := f.comments.Create(ctx, post.ID, models.CommentDraft{Author: "Bob", Content: content})
			require.NoError(t, err)
		}
		_, err = f.comments.Create(ctx, other.ID, models.CommentDraft{Author: "Bob", Content: "elsewhere"})
		require.NoError(t, err)

		comments, err := f.comments.ListByPost(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, comments, 3)
		assert.Equal(t, "third", comments[0].Content)
		assert.Equal(t, "first", comments[2].Content)

		page, err := f.comments.ListByPostPage(ctx, post.ID, query.Pagination{Page: 2, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		assert.Equal(t, "first", page.Data[0].Content)
		assert.Equal(t, 3, page.Meta.Total)

		n, err := f.comments.CountByPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		none, err := f.comments.ListByPost(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("remove by post id", func(t *testing.T) {
		f, post := setup(t)
		for range 2 {
			_, err := f.comments.Create(ctx, post.ID, models.CommentDraft{Author: "Bob", Content: "bye"})
			require.NoError(t, err)
		}
		n, err := f.comments.RemoveByPostID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = f.comments.RemoveByPostID(ctx, post.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("post lookup failure", func(t *testing.T) {
		f, post := setup(t)
		f.postStore.Fail("exists", errors.New("io error"))
		_, err := f.comments.Create(ctx, post.ID, models.CommentDraft{Author: "Bob", Content: "hello"})
		assert.ErrorIs(t, err, repositories.ErrStorage)
	})

	t.Run("validation errors", func(t *testing.T) {
		f, post := setup(t)
		tests := []struct {
			name  string
			draft models.CommentDraft
		}{
			{"empty author", models.CommentDraft{Content: "Test comment"}},
			{"empty content", models.CommentDraft{Author: "Bob"}},
			{"author too long", models.CommentDraft{Author: strings.Repeat("a", 101), Content: "Test comment"}},
			{"content too long", models.CommentDraft{Author: "Bob", Content: strings.Repeat("a", 2001)}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.comments.Create(ctx, post.ID, tt.draft)
				assert.ErrorIs(t, err, models.ErrValidation)
			})
		}
		_, err := f.comments.Update(ctx, "any", models.CommentPatch{Content: strPtr("")})
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}
