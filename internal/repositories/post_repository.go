package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/memoria-social/backend/internal/metrics"
	"github.com/memoria-social/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostFilter selects posts for listing. Only posts visible to ViewerID are returned.
type PostFilter struct {
	AuthorID string
	ViewerID string
	Skip     int64
	Limit    int64
}

// PostRepository defines the interface for post data operations. Posts are
// read and written as whole documents, comment forest included.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]*models.Post, error)
	// SavePost writes the whole post if the stored version still equals
	// post.Version, then increments post.Version. It returns
	// ErrVersionConflict otherwise.
	SavePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id string) error
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// EnsureIndexes creates the indexes used by post listing
func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "author.id", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.Version = 1
	if post.Comments == nil {
		post.Comments = []*models.Comment{}
	}
	_, err := r.collection.InsertOne(ctx, post)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrPostNotFound
	}

	var post models.Post
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("find post %s: %w", id, err)
	}
	return &post, nil
}

// ListPosts retrieves posts newest first
func (r *MongoPostRepository) ListPosts(ctx context.Context, filter PostFilter) ([]*models.Post, error) {
	query := bson.M{
		"$or": bson.A{
			bson.M{"privacy": bson.M{"$ne": models.PrivacyPrivate}},
			bson.M{"author.id": filter.ViewerID},
		},
	}
	if filter.AuthorID != "" {
		query["author.id"] = filter.AuthorID
	}

	findOptions := options.Find().SetSkip(filter.Skip).SetLimit(filter.Limit).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []*models.Post{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

// SavePost replaces the stored document if its version is unchanged
func (r *MongoPostRepository) SavePost(ctx context.Context, post *models.Post) error {
	defer metrics.ObserveSave("mongo", time.Now())

	expected := post.Version
	filter := bson.M{"_id": post.ID, "version": expected}
	if expected == 0 {
		// Documents created before versioning have no version field.
		filter = bson.M{"_id": post.ID, "$or": bson.A{
			bson.M{"version": 0},
			bson.M{"version": bson.M{"$exists": false}},
		}}
	}

	post.Version = expected + 1
	res, err := r.collection.ReplaceOne(ctx, filter, post)
	if err != nil {
		post.Version = expected
		return fmt.Errorf("save post %s: %w", post.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		post.Version = expected
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": post.ID})
		if err != nil {
			return fmt.Errorf("save post %s: %w", post.ID.Hex(), err)
		}
		if n == 0 {
			return ErrPostNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrPostNotFound
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}
