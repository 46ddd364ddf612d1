package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Privacy controls who can see a post
type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

// Post represents a social media post stored as a single document, comment
// forest included. The whole document is the unit of persistence.
type Post struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Author     Author             `json:"author" bson:"author"`
	Content    string             `json:"content" bson:"content"`
	ImageURLs  []string           `json:"imageUrls,omitempty" bson:"imageUrls,omitempty"`
	VideoURLs  []string           `json:"videoUrls,omitempty" bson:"videoUrls,omitempty"`
	Privacy    Privacy            `json:"privacy" bson:"privacy"`
	Comments   []*Comment         `json:"comments" bson:"comments"`
	CommentSeq int64              `json:"commentSeq" bson:"commentSeq"`
	Version    int64              `json:"version" bson:"version"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// PostView is the API representation of a post
type PostView struct {
	*Post
	CommentCount int `json:"commentCount"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content   string   `json:"content" validate:"required,min=1,max=2000"`
	ImageURLs []string `json:"imageUrls,omitempty" validate:"omitempty,dive,url"`
	VideoURLs []string `json:"videoUrls,omitempty" validate:"omitempty,dive,url"`
	Privacy   Privacy  `json:"privacy,omitempty" validate:"omitempty,oneof=public private"`
}

// NewPost builds a post with an empty comment forest.
func NewPost(author Author, req CreatePostRequest) *Post {
	privacy := req.Privacy
	if privacy == "" {
		privacy = PrivacyPublic
	}
	now := Now()
	return &Post{
		Author:    author,
		Content:   req.Content,
		ImageURLs: req.ImageURLs,
		VideoURLs: req.VideoURLs,
		Privacy:   privacy,
		Comments:  []*Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Now returns the current UTC time at millisecond precision, the finest
// precision BSON dates keep.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// View wraps the post with derived fields for API responses.
func (p *Post) View() PostView {
	return PostView{Post: p, CommentCount: CountComments(p.Comments)}
}

// VisibleTo reports whether userID may read the post and its comments.
func (p *Post) VisibleTo(userID string) bool {
	return p.Privacy != PrivacyPrivate || p.Author.ID == userID
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	out := *p
	out.ImageURLs = append([]string(nil), p.ImageURLs...)
	out.VideoURLs = append([]string(nil), p.VideoURLs...)
	out.Comments = cloneForest(p.Comments)
	return &out
}

// FindComment returns the node with the given id anywhere in the forest.
func (p *Post) FindComment(commentID int64) (*Comment, error) {
	node, ok := FindComment(p.Comments, commentID)
	if !ok {
		return nil, fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
	}
	return node, nil
}

// AddComment appends a new top-level comment and returns it.
func (p *Post) AddComment(content string, author Author) (*Comment, error) {
	text, err := validateNewNode(content, author)
	if err != nil {
		return nil, err
	}
	node := newComment(p.allocateCommentID(), text, author, Now())
	p.Comments = append(p.Comments, node)
	p.touch()
	return node, nil
}

// AddReply appends a reply to the node parentID, wherever it sits.
func (p *Post) AddReply(parentID int64, content string, author Author) (*Comment, error) {
	text, err := validateNewNode(content, author)
	if err != nil {
		return nil, err
	}
	loc, ok := locate(&p.Comments, parentID)
	if !ok {
		return nil, fmt.Errorf("%w: parent comment %d", ErrNotFound, parentID)
	}
	node := newComment(p.allocateCommentID(), text, author, Now())
	loc.node.appendReply(node)
	p.touch()
	return node, nil
}

// ToggleCommentLike flips userID's like on the node and reports whether the
// user likes it afterwards.
func (p *Post) ToggleCommentLike(commentID int64, userID string) (*Comment, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	loc, ok := locate(&p.Comments, commentID)
	if !ok {
		return nil, false, fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
	}
	liked := loc.node.toggleLike(userID)
	p.touch()
	return loc.node, liked, nil
}

// DeleteComment removes the node and all of its replies. Only the node's
// author may delete it. The removed subtree is returned.
func (p *Post) DeleteComment(commentID int64, requesterID string) (*Comment, error) {
	loc, ok := locate(&p.Comments, commentID)
	if !ok {
		return nil, fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
	}
	if loc.node.Author.ID != requesterID {
		return nil, fmt.Errorf("%w: only the author can delete comment %d", ErrForbidden, commentID)
	}
	loc.remove()
	p.touch()
	return loc.node, nil
}

func (p *Post) touch() {
	p.UpdatedAt = Now()
}

func validateNewNode(content string, author Author) (string, error) {
	if author.ID == "" {
		return "", fmt.Errorf("%w: author id is required", ErrValidation)
	}
	return normalizeContent(content)
}
