package server

import (
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListCategories handles GET /api/categories
// @Summary List folders
// @Description Without filters returns every visible folder ordered by name. parent_id lists the
// @Description direct children of one folder and root=true lists top-level folders.
// @Tags categories
// @Security BearerAuth
// @Param parent_id query int false "Parent folder"
// @Param root query bool false "Only top-level folders"
// @Success 200 {array} models.Category
// @Router /categories [get]
func (s *Server) ListCategories(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	parentID, err := parseOptionalQueryID(c, "parent_id")
	if err != nil {
		return nil
	}

	var categories []*models.Category
	switch {
	case parentID != nil || c.QueryBool("root"):
		categories, err = s.categoryService.ListChildren(ctx, userID, parentID)
	default:
		categories, err = s.categoryService.List(ctx, userID)
	}
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(categories)
}

// GetCategory handles GET /api/categories/:id
func (s *Server) GetCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	category, err := s.categoryService.Get(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(category)
}

// GetBreadcrumbs handles GET /api/categories/:id/breadcrumbs
// @Summary Folder path, root first
// @Tags categories
// @Security BearerAuth
// @Param id path int true "Folder ID"
// @Success 200 {array} models.Category
// @Router /categories/{id}/breadcrumbs [get]
func (s *Server) GetBreadcrumbs(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	path, err := s.categoryService.Breadcrumbs(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(path)
}

// CreateCategory handles POST /api/categories
// @Summary Create a folder (admin)
// @Tags categories
// @Security BearerAuth
// @Param request body object{name=string,description=string,parent_id=int,admin_only=bool} true "Folder"
// @Success 201 {object} models.Category
// @Failure 403 {object} models.ErrorResponse
// @Router /categories [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ParentID    *uint  `json:"parent_id"`
		AdminOnly   bool   `json:"admin_only"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	category, err := s.categoryService.Create(c.UserContext(), service.CreateCategoryInput{
		UserID:      currentUserID(c),
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		AdminOnly:   req.AdminOnly,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory handles PUT /api/categories/:id
// @Summary Rename, move or re-flag a folder (admin)
// @Tags categories
// @Security BearerAuth
// @Param id path int true "Folder ID"
// @Param request body object{name=string,description=string,parent_id=int,clear_parent=bool,admin_only=bool} true "Changes"
// @Success 200 {object} models.Category
// @Failure 400 {object} models.ErrorResponse "Cycle or invalid parent"
// @Router /categories/{id} [put]
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ParentID    *uint   `json:"parent_id"`
		ClearParent bool    `json:"clear_parent"`
		AdminOnly   *bool   `json:"admin_only"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	category, err := s.categoryService.Update(c.UserContext(), service.UpdateCategoryInput{
		UserID:      currentUserID(c),
		CategoryID:  id,
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		ClearParent: req.ClearParent,
		AdminOnly:   req.AdminOnly,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(category)
}

// DeleteCategory handles DELETE /api/categories/:id
// @Summary Delete a folder (admin)
// @Description Files move to the root and child folders move to the deleted folder's parent.
// @Tags categories
// @Security BearerAuth
// @Param id path int true "Folder ID"
// @Success 204
// @Router /categories/{id} [delete]
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.categoryService.Delete(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
