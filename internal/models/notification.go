package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType classifies the write that produced a notification.
type NotificationType string

const (
	NotificationFileUpload    NotificationType = "file_upload"
	NotificationAdminPost     NotificationType = "admin_post"
	NotificationFileReference NotificationType = "file_reference"
	NotificationComment       NotificationType = "comment"
)

// PostNotificationTypes are the types whose RelatedID points at a post.
func PostNotificationTypes() []NotificationType {
	return []NotificationType{NotificationAdminPost, NotificationFileReference, NotificationComment}
}

// Notification is a per-user inbox entry.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Content   string           `gorm:"type:text;not null" json:"content"`
	Type      NotificationType `gorm:"size:32;not null;index" json:"type"`
	IsRead    bool             `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"is_read"`
	RelatedID *uint            `gorm:"index" json:"related_id"`
	Metadata  datatypes.JSON   `json:"metadata,omitempty"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}
