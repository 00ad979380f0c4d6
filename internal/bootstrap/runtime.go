// Package bootstrap wires the database and Redis connections a process needs
// before it can serve or administer the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/config"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/database"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/seed"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedFolders creates the default folder tree when a root admin exists.
	SeedFolders bool
}

// InitRuntime connects to DB and Redis and optionally runs built-in seeding.
// An unreachable Redis is logged and yields a nil client; the server then
// runs without caching or realtime delivery.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb, err := cache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, continuing without cache", slog.String("error", err.Error()))
		rdb = nil
	}

	root, err := ensureDevRootAdmin(ctx, cfg, db)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedFolders && root != nil {
		created, err := seed.Folders(db.WithContext(ctx), root.ID, seed.DefaultFolders())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed default folders: %w", err)
		}
		if created > 0 {
			slog.Info("seeded default folders", slog.Int("created", created))
		}
	}

	return db, rdb, nil
}

// ensureDevRootAdmin creates or promotes the configured root superadmin in
// development. It returns nil without error when bootstrapping is disabled.
func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) (*models.Profile, error) {
	if cfg == nil || db == nil {
		return nil, nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil, nil
	}

	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@filesharing.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return nil, errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("DEV_ROOT_PASSWORD: %w", err)
	}

	var root models.Profile
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("email = ?", email).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash root password: %w", err)
			}
			root = models.Profile{
				Email:    email,
				Password: string(hashed),
				FullName: "Root Admin",
				Role:     models.RoleSuperAdmin,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		case root.Role != models.RoleSuperAdmin:
			root.Role = models.RoleSuperAdmin
			return tx.Model(&root).Update("role", models.RoleSuperAdmin).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("development root admin ensured", slog.Uint64("id", uint64(root.ID)), slog.String("email", email))
	return &root, nil
}
