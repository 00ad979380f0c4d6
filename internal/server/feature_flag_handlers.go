package server

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/featureflags"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/middleware"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := currentUserID(c)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}

// SetFeatureFlag handles PUT /api/admin/feature-flags/:name
// @Summary Set a runtime feature flag (admin)
// @Description value is on, off, or a rollout percentage such as 25%.
// @Tags admin
// @Security BearerAuth
// @Param name path string true "Flag name"
// @Param request body object{value=string} true "Flag value"
// @Success 200 {object} object{raw=object,evaluated=object}
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/feature-flags/{name} [put]
func (s *Server) SetFeatureFlag(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Params("name"))
	var req struct {
		Value string `json:"value"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	if err := s.featureFlags.Set(name, req.Value); err != nil {
		if errors.Is(err, featureflags.ErrInvalidValue) {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
		}
		return respondServiceError(c, err)
	}
	middleware.Logger.InfoContext(c.UserContext(), "feature flag set",
		slog.String("flag", name), slog.String("value", req.Value), slog.Uint64("by", uint64(currentUserID(c))))
	return s.GetFeatureFlags(c)
}

// DeleteFeatureFlag handles DELETE /api/admin/feature-flags/:name
func (s *Server) DeleteFeatureFlag(c *fiber.Ctx) error {
	s.featureFlags.Delete(strings.TrimSpace(c.Params("name")))
	return c.SendStatus(fiber.StatusNoContent)
}
