package models

import (
	"time"
)

// Post is a message on the board. Admin posts double as announcements.
type Post struct {
	ID                   uint     `gorm:"primaryKey" json:"id"`
	Title                string   `gorm:"size:300;not null" json:"title"`
	Content              string   `gorm:"type:text;not null" json:"content"`
	AuthorID             uint     `gorm:"not null;index" json:"author_id"`
	Author               *Profile `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	IsAdminPost          bool     `gorm:"not null;default:false;index" json:"is_admin_post"`
	ReferencedFileID     *uint    `gorm:"index" json:"referenced_file_id"`
	ReferencedCategoryID *uint    `gorm:"index" json:"referenced_category_id"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64     `gorm:"->;-:migration" json:"comments_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PostListFilter narrows post listings.
type PostListFilter struct {
	// AdminPostsOnly returns announcements only.
	AdminPostsOnly bool
	// IncludeAdminPosts keeps announcements in the general feed.
	IncludeAdminPosts bool
	Limit             int
	Offset            int
}

// Comment belongs to a post and may reference a file or folder.
type Comment struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	PostID               uint      `gorm:"not null;index" json:"post_id"`
	UserID               uint      `gorm:"not null;index" json:"user_id"`
	User                 *Profile  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content              string    `gorm:"type:text;not null" json:"content"`
	ReferencedFileID     *uint     `gorm:"index" json:"referenced_file_id"`
	ReferencedCategoryID *uint     `gorm:"index" json:"referenced_category_id"`
	CreatedAt            time.Time `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
