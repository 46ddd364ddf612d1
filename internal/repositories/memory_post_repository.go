package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/memoria-social/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryPostRepository keeps posts in process memory. Every read and write
// copies the document so callers never share state with the store.
type MemoryPostRepository struct {
	mu    sync.RWMutex
	posts map[string]*models.Post
}

// NewMemoryPostRepository creates an empty in-memory store
func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{posts: make(map[string]*models.Post)}
}

func (r *MemoryPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post.ID = primitive.NewObjectID()
	post.Version = 1
	if post.Comments == nil {
		post.Comments = []*models.Comment{}
	}
	r.posts[post.ID.Hex()] = post.Clone()
	return nil
}

func (r *MemoryPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return post.Clone(), nil
}

func (r *MemoryPostRepository) ListPosts(ctx context.Context, filter PostFilter) ([]*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]*models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		if filter.AuthorID != "" && p.Author.ID != filter.AuthorID {
			continue
		}
		if !p.VisibleTo(filter.ViewerID) {
			continue
		}
		posts = append(posts, p.Clone())
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID.Hex() > posts[j].ID.Hex()
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return paginate(posts, filter.Skip, filter.Limit), nil
}

func (r *MemoryPostRepository) SavePost(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.posts[post.ID.Hex()]
	if !ok {
		return ErrPostNotFound
	}
	if stored.Version != post.Version {
		return ErrVersionConflict
	}
	post.Version++
	r.posts[post.ID.Hex()] = post.Clone()
	return nil
}

func (r *MemoryPostRepository) DeletePost(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}
