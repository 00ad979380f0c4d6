package service

import (
	"context"
	"fmt"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/validation"
)

type CommentService struct {
	comments      repository.CommentRepository
	posts         repository.PostRepository
	refs          referenceResolver
	notifications *NotificationService
	isAdmin       AdminCheck
}

type CreateCommentInput struct {
	UserID               uint
	PostID               uint
	Content              string
	ReferencedFileID     *uint
	ReferencedCategoryID *uint
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	files repository.FileRepository,
	categories repository.CategoryRepository,
	notifications *NotificationService,
	isAdmin AdminCheck,
) *CommentService {
	return &CommentService{
		comments:      comments,
		posts:         posts,
		refs:          referenceResolver{files: files, categories: categories},
		notifications: notifications,
		isAdmin:       isAdmin,
	}
}

func validateCommentContent(content string) error {
	if err := validation.ValidateText("Comment content", content, validation.MaxCommentLength); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// CreateComment notifies the post author unless they wrote the comment.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if err := validateCommentContent(in.Content); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	admin, err := s.isAdmin(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.refs.resolve(ctx, in.ReferencedFileID, in.ReferencedCategoryID, admin); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:               in.PostID,
		UserID:               in.UserID,
		Content:              in.Content,
		ReferencedFileID:     in.ReferencedFileID,
		ReferencedCategoryID: in.ReferencedCategoryID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	if post.AuthorID != in.UserID {
		postID := post.ID
		s.notifications.notifyBestEffort(ctx, func(ctx context.Context) ([]*models.Notification, error) {
			return s.notifications.Notify(ctx, []uint{post.AuthorID}, NotifyInput{
				Type:      models.NotificationComment,
				Content:   fmt.Sprintf("New comment on your message: %s", post.Title),
				RelatedID: &postID,
				Metadata:  map[string]any{"comment_id": comment.ID, "commenter_id": in.UserID},
			})
		})
	}

	if created, err := s.comments.GetByID(ctx, comment.ID); err == nil {
		return created, nil
	}
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPost(ctx, postID)
}

func (s *CommentService) CountComments(ctx context.Context, postID uint) (int64, error) {
	return s.comments.CountByPost(ctx, postID)
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	if err := validateCommentContent(in.Content); err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	ok, err := s.isAdmin.canModify(ctx, in.UserID, comment.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewUnauthorizedError("Not authorized to update this comment")
	}

	comment.Content = in.Content
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	ok, err := s.isAdmin.canModify(ctx, userID, comment.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewUnauthorizedError("Not authorized to delete this comment")
	}
	return s.comments.Delete(ctx, commentID)
}
