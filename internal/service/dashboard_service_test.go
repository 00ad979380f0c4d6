package service

import (
	"context"
	"testing"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedOnline int

func (n fixedOnline) OnlineCount(context.Context) int { return int(n) }

func TestDashboardService_StatsRespectPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.profile(t, "user@example.com", models.RoleUser)
	f.upload(t, user.ID, "a.txt", nil)
	_, err := f.postSvc.CreatePost(ctx, CreatePostInput{UserID: user.ID, Title: "Hi", Content: "x"})
	require.NoError(t, err)

	stats, err := f.dashboardSvc.Stats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalFiles)
	assert.Equal(t, int64(1), stats.FilesToday)
	assert.Equal(t, int64(1), stats.TotalPosts)
	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Len(t, stats.RecentFiles, 1)
	assert.Len(t, stats.RecentPosts, 1)
	assert.Zero(t, stats.OnlineUsers)

	pref, err := f.dashboardSvc.UpdatePreferences(ctx, UpdatePreferencesInput{UserID: user.ID, HideRecentFiles: ptr(true)})
	require.NoError(t, err)
	assert.True(t, pref.HideRecentFiles)
	assert.False(t, pref.HideRecentActivity)

	stats, err = f.dashboardSvc.Stats(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stats.RecentFiles)
	assert.Empty(t, stats.RecentFiles)
	assert.Len(t, stats.RecentPosts, 1)
	assert.True(t, stats.Preferences.HideRecentFiles)
}

func TestDashboardService_CountsAreCachedPerAudience(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client, err := cache.NewClient(ctx, mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	svc := NewDashboardService(f.files, f.posts, f.profiles, repository.NewPreferenceRepository(f.db),
		cache.NewStore(client), fixedOnline(3), f.isAdmin)
	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	user := f.profile(t, "user@example.com", models.RoleUser)
	admin := f.profile(t, "admin@example.com", models.RoleCoreAdmin)
	f.upload(t, user.ID, "a.txt", nil)

	stats, err := svc.Stats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalFiles)
	assert.Zero(t, stats.FilesToday)
	assert.Equal(t, 3, stats.OnlineUsers)
	assert.True(t, mr.Exists(cache.DashboardCountsKey(false)))
	assert.False(t, mr.Exists(cache.DashboardCountsKey(true)))

	f.upload(t, user.ID, "b.txt", nil)
	stats, err = svc.Stats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalFiles, "served from cache")
	assert.Len(t, stats.RecentFiles, 2)

	stats, err = svc.Stats(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalFiles)
}
