package services

import (
	"context"
	"testing"

	"github.com/memoria-social/backend/internal/models"
	"github.com/memoria-social/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService(t *testing.T) {
	ctx := context.Background()
	service := NewPostService(repositories.NewMemoryPostRepository())

	var post *models.Post

	t.Run("create post", func(t *testing.T) {
		var err error
		post, err = service.CreatePost(ctx, alice, models.CreatePostRequest{Content: "hello world"})
		require.NoError(t, err)
		assert.False(t, post.ID.IsZero())
		assert.Equal(t, models.PrivacyPublic, post.Privacy)
		assert.Equal(t, alice, post.Author)
		assert.NotNil(t, post.Comments)
	})

	t.Run("create requires author", func(t *testing.T) {
		_, err := service.CreatePost(ctx, models.Author{}, models.CreatePostRequest{Content: "x"})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("get post", func(t *testing.T) {
		got, err := service.GetPost(ctx, post.ID.Hex(), bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello world", got.Content)
	})

	t.Run("private post hidden from others", func(t *testing.T) {
		private, err := service.CreatePost(ctx, alice, models.CreatePostRequest{Content: "diary", Privacy: models.PrivacyPrivate})
		require.NoError(t, err)

		_, err = service.GetPost(ctx, private.ID.Hex(), bob.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)

		posts, err := service.ListPosts(ctx, repositories.PostFilter{ViewerID: bob.ID})
		require.NoError(t, err)
		assert.Len(t, posts, 1)

		posts, err = service.ListPosts(ctx, repositories.PostFilter{ViewerID: alice.ID, Limit: 1000})
		require.NoError(t, err)
		assert.Len(t, posts, 2)
	})

	t.Run("delete requires author", func(t *testing.T) {
		err := service.DeletePost(ctx, post.ID.Hex(), bob.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)

		require.NoError(t, service.DeletePost(ctx, post.ID.Hex(), alice.ID))
		_, err = service.GetPost(ctx, post.ID.Hex(), alice.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
