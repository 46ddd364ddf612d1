package services

import (
	"context"
	"fmt"

	"github.com/memoria-social/backend/internal/models"
	"github.com/memoria-social/backend/internal/repositories"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// PostService handles business logic for posts
type PostService struct {
	postRepo repositories.PostRepository
}

// NewPostService creates a new PostService
func NewPostService(postRepo repositories.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// CreatePost stores a new post with an empty comment forest
func (s *PostService) CreatePost(ctx context.Context, author models.Author, req models.CreatePostRequest) (*models.Post, error) {
	if author.ID == "" {
		return nil, fmt.Errorf("%w: author id is required", models.ErrValidation)
	}
	post := models.NewPost(author, req)
	if err := s.postRepo.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost retrieves a post the viewer may see
func (s *PostService) GetPost(ctx context.Context, postID, viewerID string) (*models.Post, error) {
	return loadVisible(ctx, s.postRepo, postID, viewerID)
}

// ListPosts returns visible posts newest first. Limits outside 1..50 fall
// back to the default page size.
func (s *PostService) ListPosts(ctx context.Context, filter repositories.PostFilter) ([]*models.Post, error) {
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = defaultPageSize
	}
	return s.postRepo.ListPosts(ctx, filter)
}

// DeletePost removes a post and its whole comment forest. Only the post's
// author may delete it.
func (s *PostService) DeletePost(ctx context.Context, postID, requesterID string) error {
	post, err := loadVisible(ctx, s.postRepo, postID, requesterID)
	if err != nil {
		return err
	}
	if post.Author.ID != requesterID {
		return fmt.Errorf("%w: only the author can delete this post", models.ErrForbidden)
	}
	return s.postRepo.DeletePost(ctx, postID)
}
