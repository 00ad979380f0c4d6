package bootstrap

import (
	"context"
	"testing"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/config"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func devConfig() *config.Config {
	return &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootEmail:     " Root@Example.com ",
		DevRootPassword:  "Root-Password-99",
	}
}

func TestEnsureDevRootAdmin_CreatesSuperadmin(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	root, err := ensureDevRootAdmin(context.Background(), devConfig(), db)
	require.NoError(t, err)
	require.NotNil(t, root)

	var stored models.Profile
	require.NoError(t, db.Where("email = ?", "root@example.com").First(&stored).Error)
	assert.Equal(t, models.RoleSuperAdmin, stored.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("Root-Password-99")))

	again, err := ensureDevRootAdmin(context.Background(), devConfig(), db)
	require.NoError(t, err)
	assert.Equal(t, root.ID, again.ID)

	var n int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestEnsureDevRootAdmin_PromotesExistingProfile(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	existing := models.Profile{Email: "root@example.com", Password: "keep", Role: models.RoleUser}
	require.NoError(t, db.Create(&existing).Error)

	root, err := ensureDevRootAdmin(context.Background(), devConfig(), db)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, root.ID)

	var stored models.Profile
	require.NoError(t, db.First(&stored, existing.ID).Error)
	assert.Equal(t, models.RoleSuperAdmin, stored.Role)
	assert.Equal(t, "keep", stored.Password)
}

func TestEnsureDevRootAdmin_Skips(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	tests := []struct {
		name string
		mut  func(*config.Config)
	}{
		{"production", func(c *config.Config) { c.Env = "production" }},
		{"disabled", func(c *config.Config) { c.DevBootstrapRoot = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := devConfig()
			tt.mut(cfg)
			root, err := ensureDevRootAdmin(context.Background(), cfg, db)
			require.NoError(t, err)
			assert.Nil(t, root)
		})
	}
}

func TestEnsureDevRootAdmin_RejectsWeakPassword(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	cfg := devConfig()
	cfg.DevRootPassword = "short"
	_, err := ensureDevRootAdmin(context.Background(), cfg, db)
	assert.Error(t, err)

	cfg.DevRootPassword = ""
	_, err = ensureDevRootAdmin(context.Background(), cfg, db)
	assert.ErrorContains(t, err, "DEV_ROOT_PASSWORD")
}
