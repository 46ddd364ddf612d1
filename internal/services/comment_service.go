package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memoria-social/backend/internal/metrics"
	"github.com/memoria-social/backend/internal/models"
	"github.com/memoria-social/backend/internal/repositories"
)

// Mutation names used in logs and metrics
const (
	OpAddComment = "add_comment"
	OpAddReply   = "add_reply"
	OpToggleLike = "toggle_like"
	OpDeleteNode = "delete_comment"
)

const defaultRetries = 3

// Publisher receives comment events after the post has been persisted.
type Publisher interface {
	Publish(event models.CommentEvent)
}

// CommentService exposes the comment forest operations of a post. Every
// operation loads the post, mutates the forest in memory and saves the
// whole document back.
type CommentService struct {
	postRepo         repositories.PostRepository
	notificationRepo repositories.NotificationRepository
	publisher        Publisher
	retries          int
	logger           *slog.Logger
}

// CommentServiceOption configures optional collaborators
type CommentServiceOption func(*CommentService)

// WithNotifications records notifications for comment activity.
func WithNotifications(repo repositories.NotificationRepository) CommentServiceOption {
	return func(s *CommentService) { s.notificationRepo = repo }
}

// WithPublisher pushes comment events to live subscribers.
func WithPublisher(p Publisher) CommentServiceOption {
	return func(s *CommentService) { s.publisher = p }
}

// WithConflictRetries sets how many times a mutation is replayed after
// losing a concurrent write race.
func WithConflictRetries(n int) CommentServiceOption {
	return func(s *CommentService) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) CommentServiceOption {
	return func(s *CommentService) { s.logger = l }
}

// NewCommentService creates a new CommentService
func NewCommentService(postRepo repositories.PostRepository, opts ...CommentServiceOption) *CommentService {
	s := &CommentService{
		postRepo: postRepo,
		retries:  defaultRetries,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadVisible fetches a post the viewer may see. Hidden posts are reported
// as missing.
func loadVisible(ctx context.Context, repo repositories.PostRepository, postID, viewerID string) (*models.Post, error) {
	post, err := repo.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.VisibleTo(viewerID) {
		return nil, repositories.ErrPostNotFound
	}
	return post, nil
}

// mutate runs the load, mutate, save cycle. fn is replayed on a freshly
// loaded post when the save loses a version race. When fn fails nothing is
// saved.
func (s *CommentService) mutate(ctx context.Context, op, postID, viewerID string, fn func(*models.Post) error) (*models.Post, error) {
	post, err := s.mutateOnce(ctx, op, postID, viewerID, fn)
	metrics.ObserveMutation(op, metrics.ResultOf(err, repositories.IsVersionConflict))
	return post, err
}

func (s *CommentService) mutateOnce(ctx context.Context, op, postID, viewerID string, fn func(*models.Post) error) (*models.Post, error) {
	for attempt := 0; ; attempt++ {
		post, err := loadVisible(ctx, s.postRepo, postID, viewerID)
		if err != nil {
			return nil, err
		}
		if err := fn(post); err != nil {
			return nil, err
		}
		err = s.postRepo.SavePost(ctx, post)
		if err == nil {
			return post, nil
		}
		if !repositories.IsVersionConflict(err) || attempt >= s.retries {
			return nil, err
		}
		s.logger.Warn("post save lost a concurrent write, retrying",
			"operation", op, "post_id", postID, "attempt", attempt+1)
	}
}

// ListComments returns the comment forest of a post
func (s *CommentService) ListComments(ctx context.Context, postID, viewerID string) ([]*models.Comment, error) {
	post, err := loadVisible(ctx, s.postRepo, postID, viewerID)
	if err != nil {
		return nil, err
	}
	return post.Comments, nil
}

// GetComment returns one node with its subtree
func (s *CommentService) GetComment(ctx context.Context, postID string, commentID int64, viewerID string) (*models.Comment, error) {
	post, err := loadVisible(ctx, s.postRepo, postID, viewerID)
	if err != nil {
		return nil, err
	}
	return post.FindComment(commentID)
}

// AddComment appends a top-level comment to the post
func (s *CommentService) AddComment(ctx context.Context, postID, content string, author models.Author) (*models.Comment, error) {
	var created *models.Comment
	post, err := s.mutate(ctx, OpAddComment, postID, author.ID, func(p *models.Post) error {
		c, err := p.AddComment(content, author)
		created = c
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, post.Author.ID, author, models.NotificationComment, post, created.ID,
		fmt.Sprintf("%s commented on your post", author.Name))
	s.publish(models.CommentEvent{
		Type:      models.EventCommentAdded,
		PostID:    post.ID.Hex(),
		CommentID: created.ID,
		Comment:   created.Clone(),
	})
	return created, nil
}

// AddReply appends a reply to the node parentID
func (s *CommentService) AddReply(ctx context.Context, postID string, parentID int64, content string, author models.Author) (*models.Comment, error) {
	var (
		created      *models.Comment
		parentAuthor string
	)
	post, err := s.mutate(ctx, OpAddReply, postID, author.ID, func(p *models.Post) error {
		c, err := p.AddReply(parentID, content, author)
		if err != nil {
			return err
		}
		created = c
		parent, _ := p.FindComment(parentID)
		parentAuthor = parent.Author.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, parentAuthor, author, models.NotificationReply, post, created.ID,
		fmt.Sprintf("%s replied to your comment", author.Name))
	s.publish(models.CommentEvent{
		Type:      models.EventReplyAdded,
		PostID:    post.ID.Hex(),
		CommentID: created.ID,
		ParentID:  &parentID,
		Comment:   created.Clone(),
	})
	return created, nil
}

// ToggleCommentLike flips the caller's like on a node
func (s *CommentService) ToggleCommentLike(ctx context.Context, postID string, commentID int64, actor models.Author) (*models.ToggleLikeResponse, error) {
	var (
		node  *models.Comment
		liked bool
	)
	post, err := s.mutate(ctx, OpToggleLike, postID, actor.ID, func(p *models.Post) error {
		n, l, err := p.ToggleCommentLike(commentID, actor.ID)
		node, liked = n, l
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := &models.ToggleLikeResponse{
		CommentID: node.ID,
		Liked:     liked,
		Likes:     node.Likes,
		LikedBy:   append([]string{}, node.LikedBy...),
	}
	if liked {
		s.notify(ctx, node.Author.ID, actor, models.NotificationCommentLike, post, node.ID,
			fmt.Sprintf("%s liked your comment", actor.Name))
	}
	likes := resp.Likes
	s.publish(models.CommentEvent{
		Type:      models.EventCommentLiked,
		PostID:    post.ID.Hex(),
		CommentID: node.ID,
		Likes:     &likes,
		LikedBy:   resp.LikedBy,
	})
	return resp, nil
}

// DeleteComment removes a node and its replies. Only the node's author may
// delete it.
func (s *CommentService) DeleteComment(ctx context.Context, postID string, commentID int64, requesterID string) error {
	post, err := s.mutate(ctx, OpDeleteNode, postID, requesterID, func(p *models.Post) error {
		_, err := p.DeleteComment(commentID, requesterID)
		return err
	})
	if err != nil {
		return err
	}

	s.publish(models.CommentEvent{
		Type:      models.EventCommentDeleted,
		PostID:    post.ID.Hex(),
		CommentID: commentID,
	})
	return nil
}

// notify records a notification for recipient. It never fails the caller:
// the mutation is already persisted.
func (s *CommentService) notify(ctx context.Context, recipientID string, actor models.Author, kind string, post *models.Post, commentID int64, message string) {
	if s.notificationRepo == nil || recipientID == "" || recipientID == actor.ID {
		return
	}
	n := &models.Notification{
		Type:        kind,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		RecipientID: recipientID,
		PostID:      post.ID.Hex(),
		CommentID:   commentID,
		Message:     message,
	}
	if err := s.notificationRepo.CreateNotification(ctx, n); err != nil {
		s.logger.Error("failed to record notification",
			"type", kind, "post_id", n.PostID, "comment_id", commentID, "error", err)
	}
}

func (s *CommentService) publish(event models.CommentEvent) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}
