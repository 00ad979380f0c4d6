package models

// DashboardStats is the landing page summary.
type DashboardStats struct {
	TotalFiles  int64          `json:"total_files"`
	FilesToday  int64          `json:"files_today"`
	TotalPosts  int64          `json:"total_posts"`
	TotalUsers  int64          `json:"total_users"`
	OnlineUsers int            `json:"online_users"`
	RecentFiles []*File        `json:"recent_files"`
	RecentPosts []*Post        `json:"recent_posts"`
	Preferences UserPreference `json:"preferences"`
}
