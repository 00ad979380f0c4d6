package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix      = "profile:%d"
	CategoryKeyPrefix     = "category:%d"
	CategoryListKey       = "categories:all"
	WSTicketKeyPrefix     = "ws_ticket:%s"
	TokenBlacklistPrefix  = "blacklist:%s"
	DashboardCountsPrefix = "dashboard:counts"
)

const (
	ProfileTTL   = 5 * time.Minute
	CategoryTTL  = 10 * time.Minute
	WSTicketTTL  = 30 * time.Second
	DashboardTTL = 30 * time.Second
)

func ProfileKey(id uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, id)
}

func CategoryKey(id uint) string {
	return fmt.Sprintf(CategoryKeyPrefix, id)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistPrefix, jti)
}

// DashboardCountsKey separates admin and non-admin totals, which differ by visibility.
func DashboardCountsKey(admin bool) string {
	if admin {
		return DashboardCountsPrefix + ":admin"
	}
	return DashboardCountsPrefix + ":user"
}

func (s *Store) InvalidateProfile(ctx context.Context, id uint) {
	s.Invalidate(ctx, ProfileKey(id))
}

// InvalidateCategory drops the cached row and the full listing.
func (s *Store) InvalidateCategory(ctx context.Context, id uint) {
	s.Invalidate(ctx, CategoryKey(id), CategoryListKey)
}
