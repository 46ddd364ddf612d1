package models

import "time"

// Notification types recorded by the comment engine
const (
	NotificationComment     = "comment"
	NotificationReply       = "reply"
	NotificationCommentLike = "comment_like"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Type        string    `json:"type" gorm:"size:30;index"`
	ActorID     string    `json:"actorId" gorm:"size:64;index"`
	ActorName   string    `json:"actorName"`
	RecipientID string    `json:"recipientId" gorm:"size:64;index"`
	PostID      string    `json:"postId" gorm:"size:24;index"`
	CommentID   int64     `json:"commentId"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"isRead" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
}
