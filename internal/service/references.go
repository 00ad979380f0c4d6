package service

import (
	"context"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"
)

// reference is a resolved file or folder attached to a post or comment.
type reference struct {
	File     *models.File
	Category *models.Category
}

type referenceResolver struct {
	files      repository.FileRepository
	categories repository.CategoryRepository
}

// resolve checks that at most one reference is set and that it exists and is
// visible to the caller. A nil reference means nothing was attached.
func (r referenceResolver) resolve(ctx context.Context, fileID, categoryID *uint, isAdmin bool) (*reference, error) {
	if fileID != nil && categoryID != nil {
		return nil, models.NewValidationError("Reference either a file or a folder, not both")
	}

	switch {
	case fileID != nil:
		file, err := r.files.GetByID(ctx, *fileID)
		if err != nil {
			return nil, referenceError(err, "Referenced file not found")
		}
		if file.CategoryID != nil {
			cat, err := r.categories.GetByID(ctx, *file.CategoryID)
			if err != nil && !models.IsNotFound(err) {
				return nil, err
			}
			if err == nil && !cat.VisibleTo(isAdmin) {
				return nil, models.NewValidationError("Referenced file not found")
			}
		}
		return &reference{File: file}, nil

	case categoryID != nil:
		cat, err := r.categories.GetByID(ctx, *categoryID)
		if err != nil {
			return nil, referenceError(err, "Referenced folder not found")
		}
		if !cat.VisibleTo(isAdmin) {
			return nil, models.NewValidationError("Referenced folder not found")
		}
		return &reference{Category: cat}, nil
	}
	return nil, nil
}

func referenceError(err error, message string) error {
	if models.IsNotFound(err) {
		return models.NewValidationError(message)
	}
	return err
}
