package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/database"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/featureflags"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/storage"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingPublisher captures realtime pushes.
type recordingPublisher struct {
	mu     sync.Mutex
	pushes map[uint]int
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, userID uint, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushes == nil {
		p.pushes = make(map[uint]int)
	}
	p.pushes[userID]++
	return p.err
}

func (p *recordingPublisher) count(userID uint) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushes[userID]
}

// flakyBucket wraps a real bucket and can fail Remove.
type flakyBucket struct {
	storage.Bucket
	removeErr error
	removed   []string
}

func (b *flakyBucket) Remove(ctx context.Context, paths ...string) error {
	b.removed = append(b.removed, paths...)
	if b.removeErr != nil {
		return b.removeErr
	}
	return b.Bucket.Remove(ctx, paths...)
}

// failingFileRepo fails Create and passes everything else through.
type failingFileRepo struct {
	repository.FileRepository
}

func (failingFileRepo) Create(context.Context, *models.File) error {
	return errors.New("insert failed")
}

type fixture struct {
	db         *gorm.DB
	publisher  *recordingPublisher
	bucket     *flakyBucket
	profiles   repository.ProfileRepository
	files      repository.FileRepository
	categories repository.CategoryRepository
	posts      repository.PostRepository
	isAdmin    AdminCheck

	notifications *NotificationService
	auth          *AuthService
	profileSvc    *ProfileService
	categorySvc   *CategoryService
	fileSvc       *FileService
	postSvc       *PostService
	commentSvc    *CommentService
	dashboardSvc  *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	local, err := storage.NewLocalBucket(t.TempDir())
	require.NoError(t, err)

	store := cache.NewStore(nil)
	f := &fixture{
		db:         db,
		publisher:  &recordingPublisher{},
		bucket:     &flakyBucket{Bucket: local},
		profiles:   repository.NewProfileRepository(db, store),
		files:      repository.NewFileRepository(db),
		categories: repository.NewCategoryRepository(db, store),
		posts:      repository.NewPostRepository(db),
	}
	f.isAdmin = NewAdminCheck(f.profiles)
	f.notifications = NewNotificationService(repository.NewNotificationRepository(db), f.profiles, f.publisher)
	f.auth = NewAuthService(f.profiles, store, "test-secret")
	f.profileSvc = NewProfileService(f.profiles, f.isAdmin)
	f.categorySvc = NewCategoryService(f.categories, f.isAdmin)
	f.fileSvc = NewFileService(f.files, f.categories, f.bucket, storage.NewSigner("signing-secret"),
		f.notifications, featureflags.NewManager("file_previews=on"), f.isAdmin,
		FileServiceConfig{MaxUploadBytes: 1 << 20, SignedURLTTL: time.Minute})
	f.postSvc = NewPostService(f.posts, f.files, f.categories, f.notifications, f.isAdmin)
	f.commentSvc = NewCommentService(repository.NewCommentRepository(db), f.posts, f.files, f.categories, f.notifications, f.isAdmin)
	f.dashboardSvc = NewDashboardService(f.files, f.posts, f.profiles, repository.NewPreferenceRepository(db), store, nil, f.isAdmin)
	return f
}

func (f *fixture) profile(t *testing.T, email string, role models.Role) *models.Profile {
	t.Helper()
	p := &models.Profile{Email: email, Password: "x", FullName: strings.Split(email, "@")[0], Role: role}
	require.NoError(t, f.profiles.Create(context.Background(), p))
	return p
}

func (f *fixture) upload(t *testing.T, userID uint, name string, categoryID *uint) *models.File {
	t.Helper()
	file, err := f.fileSvc.Upload(context.Background(), UploadFileInput{
		UserID:      userID,
		Name:        name,
		CategoryID:  categoryID,
		ContentType: "text/plain",
		Size:        5,
		Body:        strings.NewReader("hello"),
	})
	require.NoError(t, err)
	return file
}

func (f *fixture) notificationCount(t *testing.T, userID uint) int64 {
	t.Helper()
	n, err := f.notifications.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	return n
}

func ptr[T any](v T) *T { return &v }
