package server

import (
	"net/url"
	"strings"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadFile handles POST /api/files
// @Summary Upload a file
// @Description Multipart upload. Every user, the uploader included, is notified of the new file.
// @Tags files
// @Security BearerAuth
// @Accept multipart/form-data
// @Param file formData file true "File content"
// @Param name formData string false "Display name, defaults to the uploaded file name"
// @Param description formData string false "Description"
// @Param category_id formData int false "Target folder"
// @Success 201 {object} models.File
// @Failure 400 {object} models.ErrorResponse
// @Router /files [post]
func (s *Server) UploadFile(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A file is required"))
	}

	var categoryID *uint
	if raw := strings.TrimSpace(c.FormValue("category_id")); raw != "" {
		id, convErr := parseFormID(raw)
		if convErr != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid category ID"))
		}
		categoryID = &id
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		name = header.Filename
	}

	body, err := header.Open()
	if err != nil {
		return respondServiceError(c, err)
	}
	defer body.Close()

	file, err := s.fileService.Upload(c.UserContext(), service.UploadFileInput{
		UserID:      currentUserID(c),
		Name:        name,
		Description: c.FormValue("description"),
		CategoryID:  categoryID,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Size:        header.Size,
		Body:        body,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(file)
}

func (s *Server) listFilesInput(c *fiber.Ctx) (service.ListFilesInput, error) {
	categoryID, err := parseOptionalQueryID(c, "category_id")
	if err != nil {
		return service.ListFilesInput{}, err
	}
	page := parsePagination(c, 50)
	return service.ListFilesInput{
		UserID:     currentUserID(c),
		CategoryID: categoryID,
		RootOnly:   c.QueryBool("root"),
		Query:      c.Query("q"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}, nil
}

// ListFiles handles GET /api/files
// @Summary List files
// @Tags files
// @Security BearerAuth
// @Param category_id query int false "Only files in this folder"
// @Param root query bool false "Only files outside any folder"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset"
// @Success 200 {array} models.File
// @Router /files [get]
func (s *Server) ListFiles(c *fiber.Ctx) error {
	in, err := s.listFilesInput(c)
	if err != nil {
		return nil
	}
	files, err := s.fileService.List(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(files)
}

// SearchFiles handles GET /api/files/search?q=
// @Summary Search files by name (case-insensitive)
// @Tags files
// @Security BearerAuth
// @Param q query string true "Search text"
// @Success 200 {array} models.File
// @Router /files/search [get]
func (s *Server) SearchFiles(c *fiber.Ctx) error {
	in, err := s.listFilesInput(c)
	if err != nil {
		return nil
	}
	files, err := s.fileService.Search(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(files)
}

// GetFile handles GET /api/files/:id
func (s *Server) GetFile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	file, err := s.fileService.Get(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(file)
}

// UpdateFile handles PUT /api/files/:id
// @Summary Rename or move a file
// @Description Allowed for the uploader and for admins.
// @Tags files
// @Security BearerAuth
// @Param id path int true "File ID"
// @Param request body object{name=string,description=string,category_id=int,clear_category=bool} true "Changes"
// @Success 200 {object} models.File
// @Failure 403 {object} models.ErrorResponse
// @Router /files/{id} [put]
func (s *Server) UpdateFile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Name          *string `json:"name"`
		Description   *string `json:"description"`
		CategoryID    *uint   `json:"category_id"`
		ClearCategory bool    `json:"clear_category"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	file, err := s.fileService.Update(c.UserContext(), service.UpdateFileInput{
		UserID:        currentUserID(c),
		FileID:        id,
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(file)
}

// DeleteFile handles DELETE /api/files/:id
func (s *Server) DeleteFile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.fileService.Delete(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetDownloadURL handles GET /api/files/:id/download
// @Summary Issue a short-lived signed download link
// @Tags files
// @Security BearerAuth
// @Param id path int true "File ID"
// @Success 200 {object} models.DownloadLink
// @Router /files/{id}/download [get]
func (s *Server) GetDownloadURL(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	link, err := s.fileService.DownloadURL(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(link)
}

// GetPreviewURL handles GET /api/files/:id/preview
// @Summary Issue a signed link to the image preview
// @Tags files
// @Security BearerAuth
// @Param id path int true "File ID"
// @Success 200 {object} models.DownloadLink
// @Failure 404 {object} models.ErrorResponse "File has no preview"
// @Router /files/{id}/preview [get]
func (s *Server) GetPreviewURL(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	link, err := s.fileService.PreviewURL(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(link)
}

// ServeSignedObject handles GET /api/storage/files/<path>?token=
// @Summary Stream an object addressed by a signed link
// @Tags storage
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} models.ErrorResponse
// @Router /storage/files/{path} [get]
func (s *Server) ServeSignedObject(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Missing token"))
	}

	objectPath, err := url.PathUnescape(c.Params("+"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Invalid object path"))
	}
	obj, err := s.fileService.OpenSigned(c.UserContext(), token, objectPath)
	if err != nil {
		return respondServiceError(c, err)
	}

	c.Attachment(obj.FileName)
	c.Set(fiber.HeaderCacheControl, "private, no-store")
	// fasthttp closes the body once it has been written.
	return c.SendStream(obj.Body, int(obj.Size))
}
