package service

import (
	"context"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"
)

const dashboardRecentLimit = 5

// OnlineCounter reports how many users hold a live notification socket.
type OnlineCounter interface {
	OnlineCount(ctx context.Context) int
}

type DashboardService struct {
	files    repository.FileRepository
	posts    repository.PostRepository
	profiles repository.ProfileRepository
	prefs    repository.PreferenceRepository
	store    *cache.Store
	online   OnlineCounter
	isAdmin  AdminCheck
	now      func() time.Time
}

type UpdatePreferencesInput struct {
	UserID             uint
	HideRecentActivity *bool
	HideRecentFiles    *bool
}

type dashboardCounts struct {
	TotalFiles int64 `json:"total_files"`
	FilesToday int64 `json:"files_today"`
	TotalPosts int64 `json:"total_posts"`
	TotalUsers int64 `json:"total_users"`
}

// NewDashboardService builds the service; online may be nil.
func NewDashboardService(
	files repository.FileRepository,
	posts repository.PostRepository,
	profiles repository.ProfileRepository,
	prefs repository.PreferenceRepository,
	store *cache.Store,
	online OnlineCounter,
	isAdmin AdminCheck,
) *DashboardService {
	return &DashboardService{
		files:    files,
		posts:    posts,
		profiles: profiles,
		prefs:    prefs,
		store:    store,
		online:   online,
		isAdmin:  isAdmin,
		now:      time.Now,
	}
}

// Stats applies the same visibility rules as the file and post listings.
// Recent lists are left empty when the caller's preferences hide them.
func (s *DashboardService) Stats(ctx context.Context, userID uint) (*models.DashboardStats, error) {
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	pref, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	var counts dashboardCounts
	err = s.store.Aside(ctx, cache.DashboardCountsKey(admin), &counts, cache.DashboardTTL, func() error {
		return s.loadCounts(ctx, admin, &counts)
	})
	if err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{
		TotalFiles:  counts.TotalFiles,
		FilesToday:  counts.FilesToday,
		TotalPosts:  counts.TotalPosts,
		TotalUsers:  counts.TotalUsers,
		RecentFiles: []*models.File{},
		RecentPosts: []*models.Post{},
		Preferences: *pref,
	}
	if s.online != nil {
		stats.OnlineUsers = s.online.OnlineCount(ctx)
	}

	if !pref.HideRecentFiles {
		stats.RecentFiles, err = s.files.List(ctx, models.FileListFilter{IncludeAdminOnly: admin, Limit: dashboardRecentLimit})
		if err != nil {
			return nil, err
		}
	}
	if !pref.HideRecentActivity {
		stats.RecentPosts, err = s.posts.List(ctx, models.PostListFilter{IncludeAdminPosts: admin, Limit: dashboardRecentLimit})
		if err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *DashboardService) loadCounts(ctx context.Context, admin bool, out *dashboardCounts) error {
	var err error
	if out.TotalFiles, err = s.files.Count(ctx, admin, time.Time{}); err != nil {
		return err
	}
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if out.FilesToday, err = s.files.Count(ctx, admin, midnight); err != nil {
		return err
	}
	if out.TotalPosts, err = s.posts.Count(ctx, admin); err != nil {
		return err
	}
	out.TotalUsers, err = s.profiles.Count(ctx)
	return err
}

func (s *DashboardService) GetPreferences(ctx context.Context, userID uint) (*models.UserPreference, error) {
	return s.prefs.Get(ctx, userID)
}

func (s *DashboardService) UpdatePreferences(ctx context.Context, in UpdatePreferencesInput) (*models.UserPreference, error) {
	pref, err := s.prefs.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if in.HideRecentActivity != nil {
		pref.HideRecentActivity = *in.HideRecentActivity
	}
	if in.HideRecentFiles != nil {
		pref.HideRecentFiles = *in.HideRecentFiles
	}
	pref.UpdatedAt = s.now()
	if err := s.prefs.Upsert(ctx, pref); err != nil {
		return nil, err
	}
	return pref, nil
}
