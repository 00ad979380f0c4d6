package service

import (
	"context"
	"strings"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/validation"
)

type PostService struct {
	posts         repository.PostRepository
	refs          referenceResolver
	notifications *NotificationService
	isAdmin       AdminCheck
}

type CreatePostInput struct {
	UserID               uint
	Title                string
	Content              string
	IsAdminPost          bool
	ReferencedFileID     *uint
	ReferencedCategoryID *uint
}

type ListPostsInput struct {
	UserID    uint
	AdminOnly bool
	Limit     int
	Offset    int
}

type UpdatePostInput struct {
	UserID      uint
	PostID      uint
	Title       *string
	Content     *string
	IsAdminPost *bool
}

func NewPostService(
	posts repository.PostRepository,
	files repository.FileRepository,
	categories repository.CategoryRepository,
	notifications *NotificationService,
	isAdmin AdminCheck,
) *PostService {
	return &PostService{
		posts:         posts,
		refs:          referenceResolver{files: files, categories: categories},
		notifications: notifications,
		isAdmin:       isAdmin,
	}
}

func validatePostText(title, content string) error {
	if err := validation.ValidateText("Title", title, validation.MaxPostTitleLength); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateText("Content", content, validation.MaxPostContentLength); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// CreatePost stores the post and fans out: admin posts and posts with a
// reference notify every profile.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	if err := validatePostText(title, in.Content); err != nil {
		return nil, err
	}

	admin, err := s.isAdmin(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if in.IsAdminPost && !admin {
		return nil, models.NewUnauthorizedError("Only admins can create announcements")
	}
	ref, err := s.refs.resolve(ctx, in.ReferencedFileID, in.ReferencedCategoryID, admin)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:                title,
		Content:              in.Content,
		AuthorID:             in.UserID,
		IsAdminPost:          in.IsAdminPost,
		ReferencedFileID:     in.ReferencedFileID,
		ReferencedCategoryID: in.ReferencedCategoryID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.fanOut(ctx, post, ref)

	if created, err := s.posts.GetByID(ctx, post.ID); err == nil {
		return created, nil
	}
	return post, nil
}

// fanOut sends at most one notification per profile for a new post.
// An announcement that also references something is reported as an announcement.
func (s *PostService) fanOut(ctx context.Context, post *models.Post, ref *reference) {
	var in NotifyInput
	switch {
	case post.IsAdminPost:
		in = NotifyInput{Type: models.NotificationAdminPost, Content: "New announcement: " + post.Title}
	case ref != nil && ref.File != nil:
		in = NotifyInput{
			Type:     models.NotificationFileReference,
			Content:  "New message referencing file: " + ref.File.Name,
			Metadata: map[string]any{"file_id": ref.File.ID},
		}
	case ref != nil && ref.Category != nil:
		in = NotifyInput{
			Type:     models.NotificationFileReference,
			Content:  "New message referencing folder: " + ref.Category.Name,
			Metadata: map[string]any{"category_id": ref.Category.ID},
		}
	default:
		return
	}

	postID := post.ID
	in.RelatedID = &postID
	s.notifications.notifyBestEffort(ctx, func(ctx context.Context) ([]*models.Notification, error) {
		return s.notifications.NotifyAll(ctx, in)
	})
}

// ListPosts: AdminOnly lists announcements for anyone; otherwise non-admins
// see regular posts only and admins see everything.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	filter := models.PostListFilter{Limit: in.Limit, Offset: in.Offset}
	if in.AdminOnly {
		filter.AdminPostsOnly = true
	} else {
		admin, err := s.isAdmin(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		filter.IncludeAdminPosts = admin
	}
	return s.posts.List(ctx, filter)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// CanModify reports whether userID owns the post or is an admin.
func (s *PostService) CanModify(ctx context.Context, userID, postID uint) (bool, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return false, err
	}
	return s.isAdmin.canModify(ctx, userID, post.AuthorID)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	admin, err := s.isAdmin(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !admin && post.AuthorID != in.UserID {
		return nil, models.NewUnauthorizedError("Not authorized to update this post")
	}

	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if err := validatePostText(post.Title, post.Content); err != nil {
		return nil, err
	}
	if in.IsAdminPost != nil && *in.IsAdminPost != post.IsAdminPost {
		if !admin {
			return nil, models.NewUnauthorizedError("Only admins can change announcement status")
		}
		post.IsAdminPost = *in.IsAdminPost
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	ok, err := s.CanModify(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewUnauthorizedError("Not authorized to delete this post")
	}
	return s.posts.Delete(ctx, postID)
}
