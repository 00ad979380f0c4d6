package database

import "github.com/Ding-Dongen/filesharingapp1--2/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate: referenced tables come first.
func PersistentModels() []any {
	return []any{
		&models.Profile{},
		&models.UserPreference{},
		&models.Category{},
		&models.File{},
		&models.Post{},
		&models.Comment{},
		&models.Notification{},
	}
}
