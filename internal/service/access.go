// Package service holds the business rules: authorization, visibility,
// validation and notification fan-out. Handlers stay thin.
package service

import (
	"context"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"
)

// AdminCheck resolves whether a profile holds an admin role.
type AdminCheck func(ctx context.Context, userID uint) (bool, error)

// NewAdminCheck builds the single role lookup every service and middleware
// uses. Profile reads are cached by the repository.
func NewAdminCheck(profiles repository.ProfileRepository) AdminCheck {
	return func(ctx context.Context, userID uint) (bool, error) {
		if userID == 0 {
			return false, nil
		}
		p, err := profiles.GetByID(ctx, userID)
		if err != nil {
			if models.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		return p.IsAdmin(), nil
	}
}

func (check AdminCheck) require(ctx context.Context, userID uint, message string) error {
	admin, err := check(ctx, userID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewUnauthorizedError(message)
	}
	return nil
}

// canModify allows the owner or any admin.
func (check AdminCheck) canModify(ctx context.Context, userID, ownerID uint) (bool, error) {
	if userID != 0 && userID == ownerID {
		return true, nil
	}
	return check(ctx, userID)
}
