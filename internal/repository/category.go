package repository

import (
	"context"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"gorm.io/gorm"
)

// CategoryRepository defines the folder tree data operations.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	List(ctx context.Context, includeAdminOnly bool) ([]*models.Category, error)
	ListChildren(ctx context.Context, parentID *uint, includeAdminOnly bool) ([]*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error
	AdminOnlyIDs(ctx context.Context) ([]uint, error)
}

type categoryRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

func NewCategoryRepository(db *gorm.DB, store *cache.Store) CategoryRepository {
	return &categoryRepository{db: db, cache: store}
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return err
	}
	r.cache.Invalidate(ctx, cache.CategoryListKey)
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	err := r.cache.Aside(ctx, cache.CategoryKey(id), &category, cache.CategoryTTL, func() error {
		return notFoundOr(r.db.WithContext(ctx).First(&category, id).Error, "Category", id)
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// List returns every category ordered by name. The unfiltered list is cached;
// admin_only rows are dropped in memory for non-admin callers.
func (r *categoryRepository) List(ctx context.Context, includeAdminOnly bool) ([]*models.Category, error) {
	var all []*models.Category
	err := r.cache.Aside(ctx, cache.CategoryListKey, &all, cache.CategoryTTL, func() error {
		return r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&all).Error
	})
	if err != nil {
		return nil, err
	}
	if includeAdminOnly {
		return all, nil
	}

	visible := make([]*models.Category, 0, len(all))
	for _, c := range all {
		if !c.AdminOnly {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

func (r *categoryRepository) ListChildren(ctx context.Context, parentID *uint, includeAdminOnly bool) ([]*models.Category, error) {
	q := r.db.WithContext(ctx).Model(&models.Category{})
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	if !includeAdminOnly {
		q = q.Where("admin_only = ?", false)
	}

	var children []*models.Category
	err := q.Order("name ASC").Order("id ASC").Find(&children).Error
	return children, err
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	res := r.db.WithContext(ctx).Model(category).
		Select("name", "description", "parent_id", "admin_only", "updated_at").
		Updates(category)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Category", category.ID)
	}
	r.cache.InvalidateCategory(ctx, category.ID)
	return nil
}

// Delete removes a category in one transaction: its files lose their
// category, its direct children move up to its parent, then the row goes.
func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, id).Error; err != nil {
			return notFoundOr(err, "Category", id)
		}

		if err := tx.Model(&models.File{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Category{}).
			Where("parent_id = ?", id).
			Update("parent_id", category.ParentID).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Category{}, id).Error
	})
	if err != nil {
		return err
	}

	// Children changed parent; drop the whole listing rather than each row.
	r.cache.InvalidateCategory(ctx, id)
	r.invalidateChildren(ctx)
	return nil
}

func (r *categoryRepository) invalidateChildren(ctx context.Context) {
	client := r.cache.Client()
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, "category:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	r.cache.Invalidate(ctx, keys...)
}

// AdminOnlyIDs returns ids of every admin_only category.
func (r *categoryRepository) AdminOnlyIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Category{}).
		Where("admin_only = ?", true).
		Pluck("id", &ids).Error
	return ids, err
}
