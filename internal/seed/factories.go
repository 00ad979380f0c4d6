// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is set on every seeded profile.
const DefaultPassword = "Seeded-Password-1"

// FactoryOptions tune generated data.
type FactoryOptions struct {
	// MaxDays spreads created_at timestamps over the last N days.
	MaxDays int
	// SkipBcrypt stores a cheap hash so large seeds finish quickly. Seeded
	// profiles cannot log in when it is set.
	SkipBcrypt bool
	// DryRun assigns synthetic IDs instead of writing.
	DryRun bool
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	bucket storage.Bucket
	opts   FactoryOptions
	rnd    *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory. bucket may be nil, in which case file rows
// are created without stored objects.
func NewFactory(db *gorm.DB, bucket storage.Bucket, opts FactoryOptions) *Factory {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, bucket: bucket, opts: opts, rnd: rand.New(rand.NewSource(time.Now().UnixNano())), nextID: 1000}
}

func (f *Factory) syntheticID() uint {
	f.nextID++
	return f.nextID
}

// pastTime returns a random moment within the configured window.
func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.rnd.Intn(f.opts.MaxDays))*24*time.Hour +
		time.Duration(f.rnd.Intn(24))*time.Hour +
		time.Duration(f.rnd.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

func (f *Factory) hashPassword() (string, error) {
	if f.opts.SkipBcrypt {
		return "!" + DefaultPassword, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CreateProfile persists a profile with a unique fake email.
func (f *Factory) CreateProfile(role models.Role, overrides ...func(*models.Profile)) (*models.Profile, error) {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	hash, err := f.hashPassword()
	if err != nil {
		return nil, err
	}
	p := &models.Profile{
		Email:     strings.ToLower(fmt.Sprintf("%s.%s.%d@example.com", first, last, gofakeit.Number(1000, 9999))),
		Password:  hash,
		FullName:  first + " " + last,
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Role:      role,
	}
	for _, o := range overrides {
		o(p)
	}

	if f.opts.DryRun {
		p.ID = f.syntheticID()
		slog.Debug("dry-run CreateProfile", slog.String("email", p.Email))
		return p, nil
	}
	if err := f.db.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// BuildPost returns an unsaved post by author. Admin authors produce
// announcements about half of the time.
func (f *Factory) BuildPost(author *models.Profile, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Title:       gofakeit.Sentence(5),
		Content:     gofakeit.Paragraph(1, 3, 8, "\n"),
		AuthorID:    author.ID,
		IsAdminPost: author.IsAdmin() && f.rnd.Intn(2) == 0,
	}
	post.CreatedAt = f.pastTime()
	post.UpdatedAt = post.CreatedAt
	for _, o := range overrides {
		o(post)
	}
	return post
}

// CreatePostsBatch persists posts in a single insert.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			p.ID = f.syntheticID()
		}
		slog.Debug("dry-run CreatePostsBatch", slog.Int("count", len(posts)))
		return nil
	}
	return f.db.CreateInBatches(posts, 100).Error
}

// CreateComment persists a comment by user on post.
func (f *Factory) CreateComment(user *models.Profile, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Content: gofakeit.Sentence(10),
	}
	comment.CreatedAt = post.CreatedAt.Add(time.Duration(f.rnd.Intn(72)+1) * time.Hour)
	if comment.CreatedAt.After(time.Now()) {
		comment.CreatedAt = time.Now()
	}
	for _, o := range overrides {
		o(comment)
	}

	if f.opts.DryRun {
		comment.ID = f.syntheticID()
		return comment, nil
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

var fakeDocumentKinds = []struct {
	ext         string
	contentType string
}{
	{".txt", "text/plain"},
	{".md", "text/markdown"},
	{".csv", "text/csv"},
	{".json", "application/json"},
}

// CreateFile stores a small generated text document and its metadata row.
// category may be nil for a root-level file.
func (f *Factory) CreateFile(ctx context.Context, uploader *models.Profile, category *models.Category, overrides ...func(*models.File)) (*models.File, error) {
	kind := fakeDocumentKinds[f.rnd.Intn(len(fakeDocumentKinds))]
	name := strings.ReplaceAll(strings.ToLower(gofakeit.BuzzWord()+"-"+gofakeit.Noun()), " ", "-") + kind.ext
	body := []byte(gofakeit.Paragraph(2, 4, 12, "\n\n"))

	file := &models.File{
		Name:        name,
		Description: gofakeit.Sentence(8),
		FilePath:    storage.NewObjectPath(name),
		FileSize:    int64(len(body)),
		FileType:    kind.contentType,
		UploadedBy:  uploader.ID,
	}
	if category != nil {
		id := category.ID
		file.CategoryID = &id
	}
	file.CreatedAt = f.pastTime()
	file.UpdatedAt = file.CreatedAt
	for _, o := range overrides {
		o(file)
	}

	if f.opts.DryRun {
		file.ID = f.syntheticID()
		return file, nil
	}
	if f.bucket != nil {
		if _, err := f.bucket.Put(ctx, file.FilePath, bytes.NewReader(body)); err != nil {
			return nil, fmt.Errorf("store %s: %w", file.FilePath, err)
		}
	}
	if err := f.db.Create(file).Error; err != nil {
		if f.bucket != nil {
			_ = f.bucket.Remove(ctx, file.FilePath)
		}
		return nil, err
	}
	return file, nil
}
