package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxCommentLength is the maximum number of characters in a comment or reply.
const MaxCommentLength = 1000

// Author is the snapshot of a user's public profile captured when a post or
// comment is created. Later profile edits do not change it.
type Author struct {
	ID             string `json:"id" bson:"id"`
	Name           string `json:"name" bson:"name"`
	ProfilePicture string `json:"profilePicture" bson:"profilePicture"`
}

// Comment is a node of a post's comment forest. Top-level comments and
// replies share this shape; Replies holds the children in reply order.
type Comment struct {
	ID        int64      `json:"id" bson:"id"`
	Content   string     `json:"content" bson:"content"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	Author    Author     `json:"author" bson:"author"`
	Likes     int        `json:"likes" bson:"likes"`
	LikedBy   []string   `json:"likedBy" bson:"likedBy"`
	Replies   []*Comment `json:"replies" bson:"replies"`
}

// CreateCommentRequest defines the request body for adding a comment or reply
type CreateCommentRequest struct {
	Content string `json:"content" validate:"notblank"`
}

// ToggleLikeResponse is returned after a like toggle
type ToggleLikeResponse struct {
	CommentID int64    `json:"commentId"`
	Liked     bool     `json:"liked"`
	Likes     int      `json:"likes"`
	LikedBy   []string `json:"likedBy"`
}

// newComment builds a fresh node with an empty like-set and no replies.
func newComment(id int64, content string, author Author, now time.Time) *Comment {
	return &Comment{
		ID:        id,
		Content:   content,
		CreatedAt: now,
		Author:    author,
		Likes:     0,
		LikedBy:   []string{},
		Replies:   []*Comment{},
	}
}

// normalizeContent trims the text and enforces the length bounds.
func normalizeContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("%w: comment content cannot be empty", ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) > MaxCommentLength {
		return "", fmt.Errorf("%w: comment content exceeds %d characters", ErrValidation, MaxCommentLength)
	}
	return trimmed, nil
}

// IsLikedBy reports whether userID is in the node's like-set.
func (c *Comment) IsLikedBy(userID string) bool {
	for _, id := range c.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the node and its subtree.
func (c *Comment) Clone() *Comment {
	if c == nil {
		return nil
	}
	out := *c
	out.LikedBy = append([]string{}, c.LikedBy...)
	out.Replies = cloneForest(c.Replies)
	return &out
}

func cloneForest(nodes []*Comment) []*Comment {
	out := make([]*Comment, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Clone())
	}
	return out
}
