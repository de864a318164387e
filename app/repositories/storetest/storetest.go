// Package storetest holds the behaviour every Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/app/models"
	"quill/app/query"
	"quill/app/repositories"
)

// Factory returns an empty post store. Each call must yield an
// independent collection.
type Factory func(t *testing.T) repositories.Store[*models.Post]

func newPost(title, author string, tags ...string) *models.Post {
	if tags == nil {
		tags = []string{}
	}
	return &models.Post{
		Title:   title,
		Content: "Content long enough to pass validation.",
		Author:  author,
		Tags:    tags,
	}
}

func seed(t *testing.T, store repositories.Store[*models.Post], n int) []*models.Post {
	t.Helper()
	ctx := context.Background()
	out := make([]*models.Post, 0, n)
	for i := range n {
		p, err := store.Create(ctx, newPost(fmt.Sprintf("Post %02d", i), "Alice"))
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func strPtr(s string) *string {
	return &s
}

// Run executes the contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("create assigns identity", func(t *testing.T) {
		store := newStore(t)
		in := newPost("Hello world", "Alice", "go")
		in.ID = "caller-chosen"

		created, err := store.Create(ctx, in)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.NotEqual(t, "caller-chosen", created.ID)
		assert.Len(t, created.ID, 36)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, created.CreatedAt, created.UpdatedAt)
		assert.Equal(t, time.UTC, created.CreatedAt.Location())

		found, ok, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, created.Title, found.Title)
		assert.Equal(t, []string{"go"}, found.Tags)
		assert.True(t, created.CreatedAt.Equal(found.CreatedAt))
	})

	t.Run("create rejects invalid record", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Create(ctx, newPost("x", "Alice"))
		assert.ErrorIs(t, err, models.ErrValidation)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("find by id missing", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 1)
		found, ok, err := store.FindByID(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, found)
	})

	t.Run("find all empty", func(t *testing.T) {
		store := newStore(t)
		all, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)
	})

	t.Run("find all keeps insertion order", func(t *testing.T) {
		store := newStore(t)
		seeded := seed(t, store, 5)

		all, err := store.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i := range seeded {
			assert.Equal(t, seeded[i].ID, all[i].ID)
		}
	})

	t.Run("find page", func(t *testing.T) {
		store := newStore(t)
		seeded := seed(t, store, 25)

		tests := []struct {
			name      string
			p         query.Pagination
			wantFirst int
			wantLen   int
			wantPages int
			hasNext   bool
			hasPrev   bool
		}{
			{"first", query.Pagination{Page: 1, PageSize: 10}, 0, 10, 3, true, false},
			{"middle", query.Pagination{Page: 2, PageSize: 10}, 10, 10, 3, true, true},
			{"last partial", query.Pagination{Page: 3, PageSize: 10}, 20, 5, 3, false, true},
			{"past the end", query.Pagination{Page: 9, PageSize: 10}, -1, 0, 3, false, true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				page, err := store.FindPage(ctx, tt.p)
				require.NoError(t, err)
				assert.Len(t, page.Data, tt.wantLen)
				assert.Equal(t, 25, page.Meta.Total)
				assert.Equal(t, tt.wantPages, page.Meta.TotalPages)
				assert.Equal(t, tt.hasNext, page.Meta.HasNextPage)
				assert.Equal(t, tt.hasPrev, page.Meta.HasPreviousPage)
				if tt.wantFirst >= 0 {
					assert.Equal(t, seeded[tt.wantFirst].ID, page.Data[0].ID)
				}
			})
		}
	})

	t.Run("find page rejects bad pagination", func(t *testing.T) {
		store := newStore(t)
		for _, p := range []query.Pagination{{Page: 0, PageSize: 10}, {Page: 1, PageSize: 0}, {Page: 1, PageSize: 101}} {
			_, err := store.FindPage(ctx, p)
			assert.ErrorIs(t, err, query.ErrInvalidPagination)
			assert.ErrorIs(t, err, models.ErrValidation)
		}
	})

	t.Run("find by field", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Create(ctx, newPost("Go tips", "Alice", "go", "tips"))
		require.NoError(t, err)
		_, err = store.Create(ctx, newPost("Rust tips", "Bob", "rust", "tips"))
		require.NoError(t, err)
		_, err = store.Create(ctx, newPost("Gardening", "alice", "garden"))
		require.NoError(t, err)

		byAuthor, err := store.FindByField(ctx, "author", "Alice")
		require.NoError(t, err)
		require.Len(t, byAuthor, 1)
		assert.Equal(t, "Go tips", byAuthor[0].Title)

		byTag, err := store.FindByField(ctx, "tags", "tips")
		require.NoError(t, err)
		assert.Len(t, byTag, 2)

		none, err := store.FindByField(ctx, "author", "Carol")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)

		unknown, err := store.FindByField(ctx, "nope", "x")
		require.NoError(t, err)
		assert.Empty(t, unknown)
	})

	t.Run("update merges patch", func(t *testing.T) {
		store := newStore(t)
		created, err := store.Create(ctx, newPost("Original title", "Alice", "a"))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)

		updated, ok, err := store.Update(ctx, created.ID, models.PostPatch{Title: strPtr("New title")})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "New title", updated.Title)
		assert.Equal(t, "Alice", updated.Author)
		assert.Equal(t, []string{"a"}, updated.Tags)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

		found, _, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "New title", found.Title)
		assert.True(t, updated.UpdatedAt.Equal(found.UpdatedAt))
	})

	t.Run("update missing", func(t *testing.T) {
		store := newStore(t)
		updated, ok, err := store.Update(ctx, "missing", models.PostPatch{Title: strPtr("New title")})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, updated)
	})

	t.Run("update rejecting validation leaves record", func(t *testing.T) {
		store := newStore(t)
		created, err := store.Create(ctx, newPost("Original title", "Alice"))
		require.NoError(t, err)

		_, _, err = store.Update(ctx, created.ID, models.PostPatch{Title: strPtr("x")})
		assert.ErrorIs(t, err, models.ErrValidation)

		found, _, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original title", found.Title)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		seeded := seed(t, store, 3)

		removed, err := store.Delete(ctx, seeded[1].ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.Delete(ctx, seeded[1].ID)
		require.NoError(t, err)
		assert.False(t, removed)

		exists, err := store.Exists(ctx, seeded[1].ID)
		require.NoError(t, err)
		assert.False(t, exists)

		all, err := store.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, seeded[0].ID, all[0].ID)
		assert.Equal(t, seeded[2].ID, all[1].ID)
	})

	t.Run("delete by field", func(t *testing.T) {
		store := newStore(t)
		for _, author := range []string{"Alice", "Bob", "Alice", "Carol"} {
			_, err := store.Create(ctx, newPost("Some title", author))
			require.NoError(t, err)
		}

		n, err := store.DeleteByField(ctx, "author", "Alice")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = store.DeleteByField(ctx, "author", "Alice")
		require.NoError(t, err)
		assert.Zero(t, n)

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("exists and count", func(t *testing.T) {
		store := newStore(t)
		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		seeded := seed(t, store, 4)
		n, err = store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		exists, err := store.Exists(ctx, seeded[3].ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("concurrent creates are all kept", func(t *testing.T) {
		store := newStore(t)
		const workers = 16

		var wg sync.WaitGroup
		ids := make(chan string, workers)
		errs := make(chan error, workers)
		for i := range workers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p, err := store.Create(ctx, newPost(fmt.Sprintf("Concurrent %d", i), "Alice"))
				if err != nil {
					errs <- err
					return
				}
				ids <- p.ID
			}(i)
		}
		wg.Wait()
		close(ids)
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		seen := make(map[string]bool)
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
		assert.Len(t, seen, workers)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, workers, n)
	})

	t.Run("concurrent updates keep the last write", func(t *testing.T) {
		store := newStore(t)
		created, err := store.Create(ctx, newPost("Counter post", "Alice"))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, err := store.Update(ctx, created.ID, models.PostPatch{Tags: &[]string{fmt.Sprintf("t%d", i)}})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		found, ok, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Len(t, found.Tags, 1)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
