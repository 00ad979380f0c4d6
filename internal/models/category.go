package models

import "time"

// Category is a folder node. ParentID forms the tree; roots have a nil parent.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedBy   uint      `gorm:"not null;index" json:"created_by"`
	ParentID    *uint     `gorm:"index" json:"parent_id"`
	AdminOnly   bool      `gorm:"not null;default:false;index" json:"admin_only"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VisibleTo reports whether a caller with the given admin status may see c.
func (c *Category) VisibleTo(isAdmin bool) bool {
	return c != nil && (isAdmin || !c.AdminOnly)
}
