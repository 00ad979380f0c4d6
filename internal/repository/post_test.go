package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "Test Post", Content: "Content", AuthorID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListAndCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := createProfile(t, db, "author@example.com", models.RoleCoreAdmin)
	regular := &models.Post{Title: "hello", Content: "body", AuthorID: author.ID}
	announcement := &models.Post{Title: "notice", Content: "body", AuthorID: author.ID, IsAdminPost: true}
	require.NoError(t, repo.Create(ctx, regular))
	require.NoError(t, repo.Create(ctx, announcement))
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: regular.ID, UserID: author.ID, Content: "first"}))
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: regular.ID, UserID: author.ID, Content: "second"}))

	tests := []struct {
		name   string
		filter models.PostListFilter
		want   []uint
	}{
		{name: "feed without announcements", filter: models.PostListFilter{}, want: []uint{regular.ID}},
		{name: "admin feed", filter: models.PostListFilter{IncludeAdminPosts: true}, want: []uint{announcement.ID, regular.ID}},
		{name: "announcements only", filter: models.PostListFilter{AdminPostsOnly: true}, want: []uint{announcement.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			got := make([]uint, 0, len(posts))
			for _, p := range posts {
				got = append(got, p.ID)
				require.NotNil(t, p.Author)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := repo.GetByID(ctx, regular.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.CommentsCount)
	assert.Equal(t, author.ID, got.Author.ID)

	n, err := repo.Count(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPostRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	notifications := NewNotificationRepository(db)
	ctx := context.Background()

	author := createProfile(t, db, "a@example.com", models.RoleUser)
	post := &models.Post{Title: "t", Content: "c", AuthorID: author.ID}
	require.NoError(t, repo.Create(ctx, post))
	require.NoError(t, NewCommentRepository(db).Create(ctx, &models.Comment{PostID: post.ID, UserID: author.ID, Content: "x"}))

	file := createFile(t, db, "same-id.txt", nil, author.ID)
	require.Equal(t, post.ID, file.ID)
	require.NoError(t, notifications.CreateBatch(ctx, []*models.Notification{
		{UserID: author.ID, Type: models.NotificationComment, Content: "c", RelatedID: &post.ID},
		{UserID: author.ID, Type: models.NotificationFileUpload, Content: "f", RelatedID: &file.ID},
	}))

	require.NoError(t, repo.Delete(ctx, post.ID))

	_, err := repo.GetByID(ctx, post.ID)
	assert.True(t, models.IsNotFound(err))

	n, err := NewCommentRepository(db).CountByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The file_upload notification shares the numeric id but points at a file.
	left, err := notifications.List(ctx, author.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, models.NotificationFileUpload, left[0].Type)

	assert.True(t, models.IsNotFound(repo.Delete(ctx, post.ID)))
}
