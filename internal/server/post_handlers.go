package server

import (
	"github.com/Ding-Dongen/filesharingapp1--2/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary List posts, newest first
// @Tags posts
// @Security BearerAuth
// @Param admin_only query bool false "Only announcements"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		UserID:    currentUserID(c),
		AdminOnly: c.QueryBool("admin_only"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Only admins may set is_admin_post. A post may reference either a file or a folder, not both.
// @Tags posts
// @Security BearerAuth
// @Param request body object{title=string,content=string,is_admin_post=bool,referenced_file_id=int,referenced_category_id=int} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Title                string `json:"title"`
		Content              string `json:"content"`
		IsAdminPost          bool   `json:"is_admin_post"`
		ReferencedFileID     *uint  `json:"referenced_file_id"`
		ReferencedCategoryID *uint  `json:"referenced_category_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:               currentUserID(c),
		Title:                req.Title,
		Content:              req.Content,
		IsAdminPost:          req.IsAdminPost,
		ReferencedFileID:     req.ReferencedFileID,
		ReferencedCategoryID: req.ReferencedCategoryID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// GetPostPermissions handles GET /api/posts/:id/permissions
// @Summary Whether the caller may edit or delete the post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{can_modify=bool}
// @Router /posts/{id}/permissions [get]
func (s *Server) GetPostPermissions(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ok, err := s.postService.CanModify(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"can_modify": ok})
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Edit a post (author or admin)
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{title=string,content=string,is_admin_post=bool} true "Changes"
// @Success 200 {object} models.Post
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Title       *string `json:"title"`
		Content     *string `json:"content"`
		IsAdminPost *bool   `json:"is_admin_post"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:      currentUserID(c),
		PostID:      id,
		Title:       req.Title,
		Content:     req.Content,
		IsAdminPost: req.IsAdminPost,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
