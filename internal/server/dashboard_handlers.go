package server

import (
	"github.com/Ding-Dongen/filesharingapp1--2/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetDashboard handles GET /api/dashboard
// @Summary Dashboard totals and recent activity
// @Description Recent lists are empty when the caller's preferences hide them.
// @Tags dashboard
// @Security BearerAuth
// @Success 200 {object} models.DashboardStats
// @Router /dashboard [get]
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	stats, err := s.dashboardService.Stats(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stats)
}

// GetPreferences handles GET /api/preferences
func (s *Server) GetPreferences(c *fiber.Ctx) error {
	prefs, err := s.dashboardService.GetPreferences(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(prefs)
}

// UpdatePreferences handles PUT /api/preferences
// @Summary Update dashboard preferences
// @Tags dashboard
// @Security BearerAuth
// @Param request body object{hide_recent_activity=bool,hide_recent_files=bool} true "Changes"
// @Success 200 {object} models.UserPreference
// @Router /preferences [put]
func (s *Server) UpdatePreferences(c *fiber.Ctx) error {
	var req struct {
		HideRecentActivity *bool `json:"hide_recent_activity"`
		HideRecentFiles    *bool `json:"hide_recent_files"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	prefs, err := s.dashboardService.UpdatePreferences(c.UserContext(), service.UpdatePreferencesInput{
		UserID:             currentUserID(c),
		HideRecentActivity: req.HideRecentActivity,
		HideRecentFiles:    req.HideRecentFiles,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(prefs)
}
