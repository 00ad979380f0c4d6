package repository

import (
	"context"
	"strings"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"gorm.io/gorm"
)

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uint) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	List(ctx context.Context, limit, offset int) ([]*models.Profile, error)
	ListAdmins(ctx context.Context) ([]*models.Profile, error)
	ListIDs(ctx context.Context) ([]uint, error)
	UpdateDetails(ctx context.Context, id uint, fullName, avatarURL string) error
	UpdateRole(ctx context.Context, id uint, role models.Role) error
	Count(ctx context.Context) (int64, error)
}

type profileRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewProfileRepository returns a ProfileRepository; store may wrap a nil client.
func NewProfileRepository(db *gorm.DB, store *cache.Store) ProfileRepository {
	return &profileRepository{db: db, cache: store}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Email already registered")
		}
		return err
	}
	return nil
}

// GetByID is cache-aside. Cached copies never carry the password hash.
func (r *profileRepository) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	var profile models.Profile
	err := r.cache.Aside(ctx, cache.ProfileKey(id), &profile, cache.ProfileTTL, func() error {
		return notFoundOr(r.db.WithContext(ctx).First(&profile, id).Error, "Profile", id)
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&profile).Error
	if err != nil {
		return nil, notFoundOr(err, "Profile", email)
	}
	return &profile, nil
}

func (r *profileRepository) List(ctx context.Context, limit, offset int) ([]*models.Profile, error) {
	var profiles []*models.Profile
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(clampLimit(limit)).
		Offset(clampOffset(offset)).
		Find(&profiles).Error
	return profiles, err
}

func (r *profileRepository) ListAdmins(ctx context.Context) ([]*models.Profile, error) {
	var profiles []*models.Profile
	err := r.db.WithContext(ctx).
		Where("role IN ?", models.AdminRoles()).
		Order("id ASC").
		Find(&profiles).Error
	return profiles, err
}

// ListIDs returns every profile id; it is the recipient set of broadcast notifications.
func (r *profileRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *profileRepository) UpdateDetails(ctx context.Context, id uint, fullName, avatarURL string) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{ID: id}).Updates(map[string]any{
		"full_name":  fullName,
		"avatar_url": avatarURL,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", id)
	}
	r.cache.InvalidateProfile(ctx, id)
	return nil
}

func (r *profileRepository) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{ID: id}).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", id)
	}
	r.cache.InvalidateProfile(ctx, id)
	return nil
}

func (r *profileRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Count(&n).Error
	return n, err
}
