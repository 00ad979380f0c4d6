package repository

import (
	"context"
	"testing"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/database"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every new connection would get its own empty :memory: database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func createProfile(t *testing.T, db *gorm.DB, email string, role models.Role) *models.Profile {
	t.Helper()
	p := &models.Profile{Email: email, Password: "hash", FullName: email, Role: role}
	require.NoError(t, NewProfileRepository(db, cache.NewStore(nil)).Create(context.Background(), p))
	return p
}

func createCategory(t *testing.T, db *gorm.DB, name string, parentID *uint, adminOnly bool) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, CreatedBy: 1, ParentID: parentID, AdminOnly: adminOnly}
	require.NoError(t, NewCategoryRepository(db, cache.NewStore(nil)).Create(context.Background(), c))
	return c
}

func createFile(t *testing.T, db *gorm.DB, name string, categoryID *uint, uploader uint) *models.File {
	t.Helper()
	f := &models.File{
		Name:       name,
		FilePath:   name + ".path",
		FileSize:   10,
		FileType:   "text/plain",
		CategoryID: categoryID,
		UploadedBy: uploader,
	}
	require.NoError(t, NewFileRepository(db).Create(context.Background(), f))
	return f
}
