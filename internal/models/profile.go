// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Role is the application-level permission tier of a profile.
type Role string

const (
	RoleUser       Role = "user"
	RoleCoreAdmin  Role = "core_admin"
	RoleSuperAdmin Role = "superadmin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCoreAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether r grants administrative access.
func (r Role) IsAdmin() bool {
	return r == RoleCoreAdmin || r == RoleSuperAdmin
}

// AdminRoles lists every role for which IsAdmin is true.
func AdminRoles() []Role {
	return []Role{RoleCoreAdmin, RoleSuperAdmin}
}

// Profile is the application user record.
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	AvatarURL string    `gorm:"size:1024" json:"avatar_url"`
	Role      Role      `gorm:"size:32;not null;default:user;index" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the profile has an administrative role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role.IsAdmin()
}

// ProfileSummary is the author block embedded in post and comment responses.
type ProfileSummary struct {
	ID        uint   `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// Summary returns the public subset of the profile.
func (p *Profile) Summary() ProfileSummary {
	if p == nil {
		return ProfileSummary{}
	}
	return ProfileSummary{ID: p.ID, FullName: p.FullName, AvatarURL: p.AvatarURL}
}

// UserPreference stores per-profile dashboard settings.
type UserPreference struct {
	UserID             uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	HideRecentActivity bool      `gorm:"not null;default:false" json:"hide_recent_activity"`
	HideRecentFiles    bool      `gorm:"not null;default:false" json:"hide_recent_files"`
	UpdatedAt          time.Time `json:"updated_at"`
}
