package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/storage"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers  int
	NumAdmins int
	NumPosts  int
	NumFiles  int
	// CommentsPerPost is the upper bound of comments added to each post.
	CommentsPerPost int
	Factory         FactoryOptions
}

// Summary counts what a Seed run created.
type Summary struct {
	Profiles int
	Folders  int
	Files    int
	Posts    int
	Comments int
}

// Seeder populates a database with demo content.
type Seeder struct {
	db      *gorm.DB
	bucket  storage.Bucket
	factory *Factory
	logger  *slog.Logger
}

// NewSeeder binds a seeder to db. bucket may be nil.
func NewSeeder(db *gorm.DB, bucket storage.Bucket, opts FactoryOptions) *Seeder {
	return &Seeder{
		db:      db,
		bucket:  bucket,
		factory: NewFactory(db, bucket, opts),
		logger:  slog.Default(),
	}
}

// ClearAll deletes every seeded row. Stored objects are removed first so
// no file row outlives its object.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if s.bucket != nil {
		var files []models.File
		if err := s.db.WithContext(ctx).Select("file_path", "preview_path").Find(&files).Error; err != nil {
			return fmt.Errorf("list stored files: %w", err)
		}
		paths := make([]string, 0, len(files)*2)
		for _, f := range files {
			paths = append(paths, f.FilePath)
			if f.PreviewPath != "" {
				paths = append(paths, f.PreviewPath)
			}
		}
		if err := s.bucket.Remove(ctx, paths...); err != nil {
			s.logger.Warn("some stored objects could not be removed", slog.String("error", err.Error()))
		}
	}

	// children before parents
	tables := []any{
		&models.Notification{},
		&models.Comment{},
		&models.Post{},
		&models.File{},
		&models.Category{},
		&models.UserPreference{},
		&models.Profile{},
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clear %T: %w", m, err)
			}
		}
		return nil
	})
}

// Seed creates profiles, the folder tree, files, posts and comments.
func (s *Seeder) Seed(ctx context.Context, tree []FolderSpec, opts Options) (*Summary, error) {
	if opts.NumUsers < 0 || opts.NumAdmins < 0 || opts.NumPosts < 0 || opts.NumFiles < 0 {
		return nil, errors.New("seed counts must not be negative")
	}
	if opts.NumAdmins == 0 {
		opts.NumAdmins = 1
	}
	sum := &Summary{}

	admins := make([]*models.Profile, 0, opts.NumAdmins)
	for i := 0; i < opts.NumAdmins; i++ {
		role := models.RoleCoreAdmin
		if i == 0 {
			role = models.RoleSuperAdmin
		}
		p, err := s.factory.CreateProfile(role)
		if err != nil {
			return nil, fmt.Errorf("create admin: %w", err)
		}
		admins = append(admins, p)
	}
	users := make([]*models.Profile, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		p, err := s.factory.CreateProfile(models.RoleUser)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, p)
	}
	sum.Profiles = len(admins) + len(users)
	everyone := append(append([]*models.Profile{}, admins...), users...)
	s.logger.Info("seeded profiles", slog.Int("admins", len(admins)), slog.Int("users", len(users)))

	var folders []models.Category
	if !s.factory.opts.DryRun {
		created, err := Folders(s.db.WithContext(ctx), admins[0].ID, tree)
		if err != nil {
			return nil, err
		}
		sum.Folders = created
		if err := s.db.WithContext(ctx).Find(&folders).Error; err != nil {
			return nil, err
		}
	}

	for i := 0; i < opts.NumFiles; i++ {
		var (
			cat      *models.Category
			uploader = everyone[s.factory.rnd.Intn(len(everyone))]
		)
		// one in five files stays at the root
		if len(folders) > 0 && s.factory.rnd.Intn(5) != 0 {
			cat = &folders[s.factory.rnd.Intn(len(folders))]
		}
		if cat != nil && cat.AdminOnly {
			uploader = admins[s.factory.rnd.Intn(len(admins))]
		}
		if _, err := s.factory.CreateFile(ctx, uploader, cat); err != nil {
			return nil, fmt.Errorf("create file: %w", err)
		}
		sum.Files++
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		posts = append(posts, s.factory.BuildPost(everyone[s.factory.rnd.Intn(len(everyone))]))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	sum.Posts = len(posts)

	if opts.CommentsPerPost > 0 {
		for _, post := range posts {
			n := s.factory.rnd.Intn(opts.CommentsPerPost + 1)
			for j := 0; j < n; j++ {
				if _, err := s.factory.CreateComment(everyone[s.factory.rnd.Intn(len(everyone))], post); err != nil {
					return nil, fmt.Errorf("create comment: %w", err)
				}
				sum.Comments++
			}
		}
	}

	s.logger.Info("seed complete",
		slog.Int("folders", sum.Folders),
		slog.Int("files", sum.Files),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments))
	return sum, nil
}
