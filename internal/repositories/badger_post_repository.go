package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/memoria-social/backend/internal/metrics"
	"github.com/memoria-social/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostKeyPrefix prefixes every post document key in Badger
const PostKeyPrefix = "post:"

// BadgerPostRepository implements PostRepository on an embedded Badger
// store, one JSON document per post.
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

func postKey(id primitive.ObjectID) []byte {
	return []byte(PostKeyPrefix + id.Hex())
}

func decodePost(item *badger.Item) (*models.Post, error) {
	var post models.Post
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &post)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal post: %w", err)
	}
	return &post, nil
}

// CreatePost stores a new post
func (r *BadgerPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.Version = 1
	if post.Comments == nil {
		post.Comments = []*models.Comment{}
	}
	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(postKey(post.ID), data)
	})
}

// GetPostByID loads a post document
func (r *BadgerPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrPostNotFound
	}

	var post *models.Post
	err = r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(postKey(objID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPostNotFound
		}
		if err != nil {
			return err
		}
		post, err = decodePost(item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts scans every post and returns the visible ones newest first
func (r *BadgerPostRepository) ListPosts(ctx context.Context, filter PostFilter) ([]*models.Post, error) {
	posts := []*models.Post{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			post, err := decodePost(it.Item())
			if err != nil {
				return err
			}
			if filter.AuthorID != "" && post.Author.ID != filter.AuthorID {
				continue
			}
			if !post.VisibleTo(filter.ViewerID) {
				continue
			}
			posts = append(posts, post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return paginate(posts, filter.Skip, filter.Limit), nil
}

// SavePost writes the post inside a transaction that first checks the
// stored version. Badger's own conflict detection covers writers that
// commit between our read and our commit.
func (r *BadgerPostRepository) SavePost(ctx context.Context, post *models.Post) error {
	defer metrics.ObserveSave("badger", time.Now())

	expected := post.Version
	post.Version = expected + 1
	data, err := json.Marshal(post)
	if err != nil {
		post.Version = expected
		return fmt.Errorf("failed to marshal post: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		key := postKey(post.ID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPostNotFound
		}
		if err != nil {
			return err
		}
		stored, err := decodePost(item)
		if err != nil {
			return err
		}
		if stored.Version != expected {
			return ErrVersionConflict
		}
		return txn.Set(key, data)
	})
	if errors.Is(err, badger.ErrConflict) {
		err = ErrVersionConflict
	}
	if err != nil {
		post.Version = expected
		return err
	}
	return nil
}

// DeletePost removes a post document
func (r *BadgerPostRepository) DeletePost(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrPostNotFound
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := postKey(objID)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

func paginate(posts []*models.Post, skip, limit int64) []*models.Post {
	if skip >= int64(len(posts)) {
		return []*models.Post{}
	}
	end := int64(len(posts))
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return posts[skip:end]
}
