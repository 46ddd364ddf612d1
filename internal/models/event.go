package models

// Comment event types pushed to live subscribers of a post
const (
	EventCommentAdded   = "comment.added"
	EventReplyAdded     = "reply.added"
	EventCommentLiked   = "comment.liked"
	EventCommentDeleted = "comment.deleted"
)

// CommentEvent describes a persisted change to a post's comment forest.
type CommentEvent struct {
	Type      string   `json:"type"`
	PostID    string   `json:"postId"`
	CommentID int64    `json:"commentId"`
	ParentID  *int64   `json:"parentId,omitempty"`
	Comment   *Comment `json:"comment,omitempty"`
	Likes     *int     `json:"likes,omitempty"`
	LikedBy   []string `json:"likedBy,omitempty"`
}
