package service

import (
	"context"
	"slices"
	"strings"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/validation"
)

// maxTreeDepth bounds every parent-chain walk.
const maxTreeDepth = 64

type CategoryService struct {
	categories repository.CategoryRepository
	isAdmin    AdminCheck
}

type CreateCategoryInput struct {
	UserID      uint
	Name        string
	Description string
	ParentID    *uint
	AdminOnly   bool
}

// UpdateCategoryInput carries optional changes. ClearParent moves the
// category to the root and wins over ParentID.
type UpdateCategoryInput struct {
	UserID      uint
	CategoryID  uint
	Name        *string
	Description *string
	ParentID    *uint
	ClearParent bool
	AdminOnly   *bool
}

func NewCategoryService(categories repository.CategoryRepository, isAdmin AdminCheck) *CategoryService {
	return &CategoryService{categories: categories, isAdmin: isAdmin}
}

func (s *CategoryService) Create(ctx context.Context, in CreateCategoryInput) (*models.Category, error) {
	if err := s.isAdmin.require(ctx, in.UserID, "Only admins can create folders"); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateCategoryName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.ParentID != nil {
		if _, err := s.categories.GetByID(ctx, *in.ParentID); err != nil {
			return nil, referenceError(err, "Parent folder not found")
		}
	}

	category := &models.Category{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   in.UserID,
		ParentID:    in.ParentID,
		AdminOnly:   in.AdminOnly,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Get hides admin_only categories from non-admins as not found.
func (s *CategoryService) Get(ctx context.Context, userID, id uint) (*models.Category, error) {
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !category.VisibleTo(admin) {
		return nil, models.NewNotFoundError("Category", id)
	}
	return category, nil
}

func (s *CategoryService) List(ctx context.Context, userID uint) ([]*models.Category, error) {
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.categories.List(ctx, admin)
}

// ListChildren lists direct children of parentID, or the roots when nil.
func (s *CategoryService) ListChildren(ctx context.Context, userID uint, parentID *uint) ([]*models.Category, error) {
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.categories.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if !parent.VisibleTo(admin) {
			return nil, models.NewNotFoundError("Category", *parentID)
		}
	}
	return s.categories.ListChildren(ctx, parentID, admin)
}

func (s *CategoryService) Update(ctx context.Context, in UpdateCategoryInput) (*models.Category, error) {
	if err := s.isAdmin.require(ctx, in.UserID, "Only admins can edit folders"); err != nil {
		return nil, err
	}

	category, err := s.categories.GetByID(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateCategoryName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		category.Name = name
	}
	if in.Description != nil {
		category.Description = strings.TrimSpace(*in.Description)
	}
	if in.AdminOnly != nil {
		category.AdminOnly = *in.AdminOnly
	}

	switch {
	case in.ClearParent:
		category.ParentID = nil
	case in.ParentID != nil:
		if err := s.checkReparent(ctx, category.ID, *in.ParentID); err != nil {
			return nil, err
		}
		parentID := *in.ParentID
		category.ParentID = &parentID
	}

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// checkReparent rejects a new parent that is the category itself or lies in
// its subtree, by walking up from the proposed parent.
func (s *CategoryService) checkReparent(ctx context.Context, id, newParentID uint) error {
	if newParentID == id {
		return models.NewValidationError("A folder cannot be its own parent")
	}

	visited := make(map[uint]struct{})
	current := &newParentID
	for depth := 0; current != nil; depth++ {
		if *current == id {
			return models.NewValidationError("A folder cannot be moved into its own subfolder")
		}
		if _, seen := visited[*current]; seen || depth >= maxTreeDepth {
			return models.NewValidationError("Folder hierarchy is too deep or cyclic")
		}
		visited[*current] = struct{}{}

		node, err := s.categories.GetByID(ctx, *current)
		if err != nil {
			return referenceError(err, "Parent folder not found")
		}
		current = node.ParentID
	}
	return nil
}

func (s *CategoryService) Delete(ctx context.Context, userID, id uint) error {
	if err := s.isAdmin.require(ctx, userID, "Only admins can delete folders"); err != nil {
		return err
	}
	return s.categories.Delete(ctx, id)
}

// Breadcrumbs returns the ancestor path root-first, ending with the category
// itself. The walk stops on a revisited id or at maxTreeDepth, at an ancestor
// that no longer exists, and at the first ancestor the caller may not see.
func (s *CategoryService) Breadcrumbs(ctx context.Context, userID, id uint) ([]*models.Category, error) {
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}

	leaf, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !leaf.VisibleTo(admin) {
		return nil, models.NewNotFoundError("Category", id)
	}

	path := []*models.Category{leaf}
	visited := map[uint]struct{}{leaf.ID: {}}
	for next := leaf.ParentID; next != nil && len(path) < maxTreeDepth; {
		if _, seen := visited[*next]; seen {
			break
		}
		node, err := s.categories.GetByID(ctx, *next)
		if err != nil {
			if models.IsNotFound(err) {
				break
			}
			return nil, err
		}
		if !node.VisibleTo(admin) {
			break
		}
		visited[node.ID] = struct{}{}
		path = append(path, node)
		next = node.ParentID
	}

	slices.Reverse(path)
	return path, nil
}
