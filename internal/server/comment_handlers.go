package server

import (
	"strconv"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/posts/:id/comments
// @Summary List comments on a post, oldest first
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {array} models.Comment
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.postService.GetPost(c.UserContext(), postID); err != nil {
		return respondServiceError(c, err)
	}
	comments, err := s.commentService.ListComments(c.UserContext(), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	c.Set("X-Total-Count", strconv.Itoa(len(comments)))
	return c.JSON(comments)
}

// GetCommentCount handles GET /api/posts/:id/comments/count
// @Summary Number of comments on a post
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{count=int}
// @Router /posts/{id}/comments/count [get]
func (s *Server) GetCommentCount(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	count, err := s.commentService.CountComments(c.UserContext(), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// CreateComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Description The post author is notified unless they wrote the comment.
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{content=string,referenced_file_id=int,referenced_category_id=int} true "Comment"
// @Success 201 {object} models.Comment
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content              string `json:"content"`
		ReferencedFileID     *uint  `json:"referenced_file_id"`
		ReferencedCategoryID *uint  `json:"referenced_category_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:               currentUserID(c),
		PostID:               postID,
		Content:              req.Content,
		ReferencedFileID:     req.ReferencedFileID,
		ReferencedCategoryID: req.ReferencedCategoryID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/comments/:id
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    currentUserID(c),
		CommentID: id,
		Content:   req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.DeleteComment(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
