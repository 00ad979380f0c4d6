package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/observability"

	"gorm.io/gorm"
	"gorm.io/hints"
)

// FileRepository defines file metadata operations.
type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id uint) (*models.File, error)
	List(ctx context.Context, filter models.FileListFilter) ([]*models.File, error)
	Update(ctx context.Context, file *models.File) error
	SetPreviewPath(ctx context.Context, id uint, previewPath string) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context, includeAdminOnly bool, since time.Time) (int64, error)
}

type fileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

// visibleFiles hides files whose category is admin_only unless includeAdminOnly.
func visibleFiles(q *gorm.DB, includeAdminOnly bool) *gorm.DB {
	if includeAdminOnly {
		return q
	}
	return q.Where(
		"(files.category_id IS NULL OR files.category_id NOT IN (?))",
		q.Session(&gorm.Session{NewDB: true}).Model(&models.Category{}).Select("id").Where("admin_only = ?", true),
	)
}

func (r *fileRepository) Create(ctx context.Context, file *models.File) error {
	defer observability.TrackQuery("insert", "files")()
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Storage path already in use")
		}
		return err
	}
	return nil
}

func (r *fileRepository) GetByID(ctx context.Context, id uint) (*models.File, error) {
	var file models.File
	if err := r.db.WithContext(ctx).Preload("Uploader").First(&file, id).Error; err != nil {
		return nil, notFoundOr(err, "File", id)
	}
	return &file, nil
}

// List orders by newest first. CategoryID wins over RootOnly; Query is a
// case-insensitive substring match on the file name.
func (r *fileRepository) List(ctx context.Context, filter models.FileListFilter) ([]*models.File, error) {
	defer observability.TrackQuery("select", "files")()

	label := "file_list"
	q := r.db.WithContext(ctx).Model(&models.File{})
	switch {
	case filter.CategoryID != nil:
		q = q.Where("files.category_id = ?", *filter.CategoryID)
	case filter.RootOnly:
		q = q.Where("files.category_id IS NULL")
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		label = "file_search"
		q = q.Where("LOWER(files.name) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(term))+"%")
	}
	q = visibleFiles(q, filter.IncludeAdminOnly)

	var files []*models.File
	err := q.Clauses(hints.CommentBefore("select", label)).
		Preload("Uploader").
		Order("files.created_at DESC").
		Order("files.id DESC").
		Limit(clampLimit(filter.Limit)).
		Offset(clampOffset(filter.Offset)).
		Find(&files).Error
	return files, err
}

// Update writes the user-editable columns only.
func (r *fileRepository) Update(ctx context.Context, file *models.File) error {
	res := r.db.WithContext(ctx).Model(file).
		Select("name", "description", "category_id", "updated_at").
		Updates(file)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("File", file.ID)
	}
	return nil
}

func (r *fileRepository) SetPreviewPath(ctx context.Context, id uint, previewPath string) error {
	return r.db.WithContext(ctx).Model(&models.File{ID: id}).Update("preview_path", previewPath).Error
}

func (r *fileRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.File{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("File", id)
	}
	return nil
}

// Count counts visible files; a non-zero since restricts to files created at or after it.
func (r *fileRepository) Count(ctx context.Context, includeAdminOnly bool, since time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.File{})
	if !since.IsZero() {
		q = q.Where("files.created_at >= ?", since)
	}

	var n int64
	err := visibleFiles(q, includeAdminOnly).Count(&n).Error
	return n, err
}

// '!' escapes LIKE wildcards; it needs no quoting in any supported dialect.
var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
