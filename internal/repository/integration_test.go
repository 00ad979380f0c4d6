//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/config"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/database"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(connStr), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{Env: "test", DBDriver: "postgres", DBSchemaMode: "sql"}
	require.NoError(t, database.ApplySchema(ctx, db, cfg))
	return db
}

func TestIntegration_SQLSchemaSupportsRepositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	store := cache.NewStore(nil)

	owner := createProfile(t, db, "owner@example.com", models.RoleSuperAdmin)
	categories := NewCategoryRepository(db, store)
	files := NewFileRepository(db)
	posts := NewPostRepository(db)

	root := &models.Category{Name: "Root", CreatedBy: owner.ID}
	require.NoError(t, categories.Create(ctx, root))
	board := &models.Category{Name: "Board", CreatedBy: owner.ID, ParentID: &root.ID, AdminOnly: true}
	require.NoError(t, categories.Create(ctx, board))
	child := &models.Category{Name: "Minutes", CreatedBy: owner.ID, ParentID: &board.ID}
	require.NoError(t, categories.Create(ctx, child))

	secret := createFile(t, db, "Secret_Plan.pdf", &board.ID, owner.ID)
	createFile(t, db, "public.pdf", &root.ID, owner.ID)

	visible, err := files.List(ctx, models.FileListFilter{Query: "plan"})
	require.NoError(t, err)
	assert.Empty(t, visible)

	adminView, err := files.List(ctx, models.FileListFilter{Query: "_PLAN", IncludeAdminOnly: true})
	require.NoError(t, err)
	require.Len(t, adminView, 1)
	assert.Equal(t, secret.ID, adminView[0].ID)

	require.NoError(t, categories.Delete(ctx, board.ID))
	moved, err := categories.GetByID(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, root.ID, *moved.ParentID)

	detached, err := files.GetByID(ctx, secret.ID)
	require.NoError(t, err)
	assert.Nil(t, detached.CategoryID)

	post := &models.Post{Title: "Heads up", Content: "Board folder removed", AuthorID: owner.ID, IsAdminPost: true}
	require.NoError(t, posts.Create(ctx, post))
	require.NoError(t, NewCommentRepository(db).Create(ctx, &models.Comment{PostID: post.ID, UserID: owner.ID, Content: "ok"}))

	got, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CommentsCount)
	require.NoError(t, posts.Delete(ctx, post.ID))

	status, err := database.GetSchemaStatus(ctx, db, &config.Config{Env: "test", DBDriver: "postgres", DBSchemaMode: "sql"})
	require.NoError(t, err)
	assert.NotNil(t, status)
}
