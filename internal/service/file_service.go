package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/featureflags"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/middleware"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/observability"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/storage"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/validation"
)

// FlagFilePreviews gates thumbnail generation for image uploads.
const FlagFilePreviews = "file_previews"

// FileServiceConfig holds the upload and link limits.
type FileServiceConfig struct {
	MaxUploadBytes int64
	SignedURLTTL   time.Duration
}

type FileService struct {
	files         repository.FileRepository
	categories    repository.CategoryRepository
	bucket        storage.Bucket
	signer        *storage.Signer
	notifications *NotificationService
	flags         *featureflags.Manager
	isAdmin       AdminCheck
	cfg           FileServiceConfig
}

type UploadFileInput struct {
	UserID      uint
	Name        string
	Description string
	CategoryID  *uint
	ContentType string
	Size        int64
	Body        io.Reader
}

type ListFilesInput struct {
	UserID     uint
	CategoryID *uint
	RootOnly   bool
	Query      string
	Limit      int
	Offset     int
}

// UpdateFileInput carries optional changes. ClearCategory moves the file to
// the root and wins over CategoryID.
type UpdateFileInput struct {
	UserID        uint
	FileID        uint
	Name          *string
	Description   *string
	CategoryID    *uint
	ClearCategory bool
}

func NewFileService(
	files repository.FileRepository,
	categories repository.CategoryRepository,
	bucket storage.Bucket,
	signer *storage.Signer,
	notifications *NotificationService,
	flags *featureflags.Manager,
	isAdmin AdminCheck,
	cfg FileServiceConfig,
) *FileService {
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = storage.DefaultSignedURLTTL
	}
	return &FileService{
		files:         files,
		categories:    categories,
		bucket:        bucket,
		signer:        signer,
		notifications: notifications,
		flags:         flags,
		isAdmin:       isAdmin,
		cfg:           cfg,
	}
}

// Upload stores the object, then inserts its row. If the insert fails the
// stored object is removed again.
func (s *FileService) Upload(ctx context.Context, in UploadFileInput) (file *models.File, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FileService", "Upload")
	defer func() {
		result := "success"
		if err != nil {
			result = "failed"
			observability.RecordError(span, err)
		}
		observability.FileUploadsTotal.WithLabelValues(result).Inc()
		span.End()
	}()

	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateFileName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Body == nil {
		return nil, models.NewValidationError("File content is required")
	}
	if s.cfg.MaxUploadBytes > 0 && in.Size > s.cfg.MaxUploadBytes {
		return nil, s.tooLarge()
	}

	admin, err := s.isAdmin(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		if err := s.checkTargetCategory(ctx, *in.CategoryID, admin); err != nil {
			return nil, err
		}
	}

	objectPath := storage.NewObjectPath(name)
	body := in.Body
	if s.cfg.MaxUploadBytes > 0 {
		body = io.LimitReader(body, s.cfg.MaxUploadBytes+1)
	}
	written, err := s.bucket.Put(ctx, objectPath, body)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("store object: %w", err))
	}
	if s.cfg.MaxUploadBytes > 0 && written > s.cfg.MaxUploadBytes {
		s.removeObjects(ctx, objectPath)
		return nil, s.tooLarge()
	}

	file = &models.File{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		FilePath:    objectPath,
		FileSize:    written,
		FileType:    contentTypeOrDefault(in.ContentType),
		CategoryID:  in.CategoryID,
		UploadedBy:  in.UserID,
	}
	if err := s.files.Create(ctx, file); err != nil {
		s.removeObjects(ctx, objectPath)
		return nil, err
	}
	observability.FileUploadBytes.Observe(float64(written))

	if storage.IsPreviewable(file.FileType) && s.flags.Enabled(FlagFilePreviews, in.UserID) {
		s.attachPreview(ctx, file)
	}

	fileID := file.ID
	s.notifications.notifyBestEffort(ctx, func(ctx context.Context) ([]*models.Notification, error) {
		return s.notifications.NotifyAll(ctx, NotifyInput{
			Type:      models.NotificationFileUpload,
			Content:   "New file uploaded: " + file.Name,
			RelatedID: &fileID,
			Metadata:  map[string]any{"file_name": file.Name, "category_id": file.CategoryID},
		})
	})

	return file, nil
}

func (s *FileService) tooLarge() error {
	return models.NewValidationError(fmt.Sprintf("File too large (max %d MB)", s.cfg.MaxUploadBytes>>20))
}

func contentTypeOrDefault(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

// attachPreview writes a WebP thumbnail next to the object. Failures are logged only.
func (s *FileService) attachPreview(ctx context.Context, file *models.File) {
	logFailure := func(err error) {
		middleware.Logger.WarnContext(ctx, "preview generation failed",
			slog.Uint64("file_id", uint64(file.ID)),
			slog.String("error", err.Error()))
	}

	src, err := s.bucket.Open(ctx, file.FilePath)
	if err != nil {
		logFailure(err)
		return
	}
	thumb, err := storage.BuildPreview(src, storage.PreviewMaxDimension)
	_ = src.Close()
	if err != nil {
		logFailure(err)
		return
	}

	previewPath := storage.PreviewPathFor(file.FilePath)
	if _, err := s.bucket.Put(ctx, previewPath, bytes.NewReader(thumb)); err != nil {
		logFailure(err)
		return
	}
	if err := s.files.SetPreviewPath(ctx, file.ID, previewPath); err != nil {
		s.removeObjects(ctx, previewPath)
		logFailure(err)
		return
	}
	file.PreviewPath = previewPath
}

// removeObjects is best-effort; failures are logged and swallowed.
func (s *FileService) removeObjects(ctx context.Context, paths ...string) {
	if err := s.bucket.Remove(ctx, paths...); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to remove storage objects",
			slog.Any("paths", paths),
			slog.String("error", err.Error()))
	}
}

// checkTargetCategory requires the category to exist and, when admin_only, an admin caller.
func (s *FileService) checkTargetCategory(ctx context.Context, categoryID uint, admin bool) error {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return referenceError(err, "Folder not found")
	}
	if category.AdminOnly && !admin {
		return models.NewUnauthorizedError("Only admins can upload to this folder")
	}
	return nil
}

// visible reports whether file may be shown to a caller with the given admin status.
func (s *FileService) visible(ctx context.Context, file *models.File, admin bool) (bool, error) {
	if admin || file.CategoryID == nil {
		return true, nil
	}
	category, err := s.categories.GetByID(ctx, *file.CategoryID)
	if err != nil {
		if models.IsNotFound(err) {
			return true, nil
		}
		return false, err
	}
	return category.VisibleTo(admin), nil
}

func (s *FileService) Get(ctx context.Context, userID, id uint) (*models.File, error) {
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.visible(ctx, file, admin)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("File", id)
	}
	return file, nil
}

func (s *FileService) List(ctx context.Context, in ListFilesInput) ([]*models.File, error) {
	admin, err := s.isAdmin(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	return s.files.List(ctx, models.FileListFilter{
		CategoryID:       in.CategoryID,
		RootOnly:         in.RootOnly,
		Query:            in.Query,
		IncludeAdminOnly: admin,
		Limit:            in.Limit,
		Offset:           in.Offset,
	})
}

// Search is List with a required query.
func (s *FileService) Search(ctx context.Context, in ListFilesInput) ([]*models.File, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.List(ctx, in)
}

func (s *FileService) Update(ctx context.Context, in UpdateFileInput) (*models.File, error) {
	file, err := s.files.GetByID(ctx, in.FileID)
	if err != nil {
		return nil, err
	}
	admin, err := s.isAdmin(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !admin && file.UploadedBy != in.UserID {
		return nil, models.NewUnauthorizedError("Only the uploader or an admin can edit this file")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateFileName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		file.Name = name
	}
	if in.Description != nil {
		file.Description = strings.TrimSpace(*in.Description)
	}
	switch {
	case in.ClearCategory:
		file.CategoryID = nil
	case in.CategoryID != nil:
		if err := s.checkTargetCategory(ctx, *in.CategoryID, admin); err != nil {
			return nil, err
		}
		categoryID := *in.CategoryID
		file.CategoryID = &categoryID
	}

	if err := s.files.Update(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

// Delete removes the stored objects first, then the row. Storage failures do
// not block the row delete.
func (s *FileService) Delete(ctx context.Context, userID, id uint) error {
	if err := s.isAdmin.require(ctx, userID, "Only admins can delete files"); err != nil {
		return err
	}
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}

	paths := []string{file.FilePath}
	if file.PreviewPath != "" {
		paths = append(paths, file.PreviewPath)
	}
	s.removeObjects(ctx, paths...)

	return s.files.Delete(ctx, id)
}

// DownloadURL signs a short-lived link to the file's object.
func (s *FileService) DownloadURL(ctx context.Context, userID, id uint) (*models.DownloadLink, error) {
	file, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.sign(file.FilePath, file.Name)
}

// PreviewURL signs a link to the file's thumbnail, if it has one.
func (s *FileService) PreviewURL(ctx context.Context, userID, id uint) (*models.DownloadLink, error) {
	file, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if file.PreviewPath == "" {
		return nil, models.NewNotFoundError("Preview", id)
	}
	return s.sign(file.PreviewPath, strings.TrimSuffix(file.Name, filepath.Ext(file.Name))+".webp")
}

func (s *FileService) sign(objectPath, fileName string) (*models.DownloadLink, error) {
	url, expiresAt, err := s.signer.SignedURL(objectPath, fileName, s.cfg.SignedURLTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &models.DownloadLink{URL: url, FileName: fileName, ExpiresAt: expiresAt}, nil
}

// SignedObject is an open object granted by a signed URL.
type SignedObject struct {
	Body     io.ReadCloser
	FileName string
	Size     int64
}

// OpenSigned verifies token against objectPath and opens the object.
// The caller must close Body.
func (s *FileService) OpenSigned(ctx context.Context, token, objectPath string) (*SignedObject, error) {
	grant, err := s.signer.Verify(token, objectPath)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired link")
	}
	info, err := s.bucket.Stat(ctx, grant.Path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, models.NewNotFoundError("Object", grant.Path)
		}
		return nil, models.NewInternalError(err)
	}
	body, err := s.bucket.Open(ctx, grant.Path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, models.NewNotFoundError("Object", grant.Path)
		}
		return nil, models.NewInternalError(err)
	}
	return &SignedObject{Body: body, FileName: grant.FileName, Size: info.Size}, nil
}
