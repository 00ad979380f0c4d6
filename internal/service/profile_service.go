package service

import (
	"context"
	"strings"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/validation"
)

const maxAvatarURLLength = 1024

type ProfileService struct {
	profiles repository.ProfileRepository
	isAdmin  AdminCheck
}

// UpdateProfileInput carries optional changes; nil fields are left as-is.
type UpdateProfileInput struct {
	UserID    uint
	FullName  *string
	AvatarURL *string
}

type UpdateRoleInput struct {
	ActorID  uint
	TargetID uint
	Role     models.Role
}

func NewProfileService(profiles repository.ProfileRepository, isAdmin AdminCheck) *ProfileService {
	return &ProfileService{profiles: profiles, isAdmin: isAdmin}
}

func (s *ProfileService) GetProfile(ctx context.Context, id uint) (*models.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

func (s *ProfileService) ListProfiles(ctx context.Context, limit, offset int) ([]*models.Profile, error) {
	return s.profiles.List(ctx, limit, offset)
}

func (s *ProfileService) ListAdmins(ctx context.Context) ([]*models.Profile, error) {
	return s.profiles.ListAdmins(ctx)
}

// IsAdmin is the role check used by the admin middleware.
func (s *ProfileService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	return s.isAdmin(ctx, userID)
}

func (s *ProfileService) UpdateMyProfile(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	fullName, avatarURL := profile.FullName, profile.AvatarURL
	if in.FullName != nil {
		fullName = strings.TrimSpace(*in.FullName)
		if err := validation.ValidateFullName(fullName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if in.AvatarURL != nil {
		avatarURL = strings.TrimSpace(*in.AvatarURL)
		if len(avatarURL) > maxAvatarURLLength {
			return nil, models.NewValidationError("Avatar URL too long (max 1024 characters)")
		}
	}

	if err := s.profiles.UpdateDetails(ctx, in.UserID, fullName, avatarURL); err != nil {
		return nil, err
	}
	profile.FullName, profile.AvatarURL = fullName, avatarURL
	return profile, nil
}

// UpdateRole changes a profile's role. Only admins may call it, nobody may
// change their own role, and only a superadmin may grant or revoke superadmin.
func (s *ProfileService) UpdateRole(ctx context.Context, in UpdateRoleInput) (*models.Profile, error) {
	if !in.Role.Valid() {
		return nil, models.NewValidationError("Invalid role")
	}

	actor, err := s.profiles.GetByID(ctx, in.ActorID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewUnauthorizedError("Admin access required")
		}
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, models.NewUnauthorizedError("Admin access required")
	}
	if in.ActorID == in.TargetID {
		return nil, models.NewUnauthorizedError("You cannot change your own role")
	}

	target, err := s.profiles.GetByID(ctx, in.TargetID)
	if err != nil {
		return nil, err
	}
	touchesSuper := target.Role == models.RoleSuperAdmin || in.Role == models.RoleSuperAdmin
	if touchesSuper && actor.Role != models.RoleSuperAdmin {
		return nil, models.NewUnauthorizedError("Only a superadmin can grant or revoke superadmin")
	}
	if target.Role == in.Role {
		return target, nil
	}

	if err := s.profiles.UpdateRole(ctx, in.TargetID, in.Role); err != nil {
		return nil, err
	}
	target.Role = in.Role
	return target, nil
}
