package server

import (
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/profiles/me
// @Summary Current profile
// @Tags profiles
// @Security BearerAuth
// @Success 200 {object} models.Profile
// @Router /profiles/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/profiles/me
// @Summary Update own name or avatar
// @Tags profiles
// @Security BearerAuth
// @Param request body object{full_name=string,avatar_url=string} true "Fields to change"
// @Success 200 {object} models.Profile
// @Router /profiles/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		FullName  *string `json:"full_name"`
		AvatarURL *string `json:"avatar_url"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	profile, err := s.profileService.UpdateMyProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:    currentUserID(c),
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// ListProfiles handles GET /api/profiles
// @Summary List profiles, newest first
// @Tags profiles
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Profile
// @Router /profiles [get]
func (s *Server) ListProfiles(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	profiles, err := s.profileService.ListProfiles(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profiles)
}

// GetProfile handles GET /api/profiles/:id
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.profileService.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// ListAdmins handles GET /api/admin/admins
func (s *Server) ListAdmins(c *fiber.Ctx) error {
	admins, err := s.profileService.ListAdmins(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(admins)
}

// UpdateRole handles PUT /api/admin/profiles/:id/role
// @Summary Change a profile's role
// @Description Only a superadmin may grant or revoke superadmin. Nobody may change their own role.
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Param request body object{role=string} true "user, core_admin or superadmin"
// @Success 200 {object} models.Profile
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/profiles/{id}/role [put]
func (s *Server) UpdateRole(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	profile, err := s.profileService.UpdateRole(c.UserContext(), service.UpdateRoleInput{
		ActorID:  currentUserID(c),
		TargetID: targetID,
		Role:     req.Role,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}
