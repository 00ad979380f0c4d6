package repository

import (
	"context"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, filter models.PostListFilter) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context, includeAdminPosts bool) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// withDetails selects the computed comment count and preloads the author.
func (r *postRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count").
		Preload("Author")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.withDetails(ctx).Where("posts.id = ?", id).First(&post).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter models.PostListFilter) ([]*models.Post, error) {
	q := r.withDetails(ctx)
	switch {
	case filter.AdminPostsOnly:
		q = q.Where("posts.is_admin_post = ?", true)
	case !filter.IncludeAdminPosts:
		q = q.Where("posts.is_admin_post = ?", false)
	}

	var posts []*models.Post
	err := q.Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(clampLimit(filter.Limit)).
		Offset(clampOffset(filter.Offset)).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).Model(post).
		Select("title", "content", "is_admin_post", "updated_at").
		Updates(post)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

// Delete removes the post's comments, the post, and the notifications that
// point at it, in one transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}

		return tx.Where("related_id = ? AND type IN ?", id, models.PostNotificationTypes()).
			Delete(&models.Notification{}).Error
	})
}

func (r *postRepository) Count(ctx context.Context, includeAdminPosts bool) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if !includeAdminPosts {
		q = q.Where("is_admin_post = ?", false)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
