package main

import (
	"bytes"
	"testing"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/config"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var quiet = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

// sqliteOpener hands each command a shared in-memory database that outlives
// the pool the command closes.
func sqliteOpener(t *testing.T, name string) (opener, *gorm.DB) {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	keep, err := gorm.Open(sqlite.Open(dsn), quiet)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := keep.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	open := func() (*gorm.DB, *config.Config, error) {
		db, err := gorm.Open(sqlite.Open(dsn), quiet)
		return db, &config.Config{Env: "development", DBDriver: "sqlite"}, err
	}
	return open, keep
}

func execute(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatus_SQLiteUsesAutoMigrate(t *testing.T) {
	open, _ := sqliteOpener(t, "status")
	out, err := execute(t, open, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "mode")
	assert.Contains(t, out, "hybrid")
	assert.Regexp(t, `sql migrations\s+false`, out)
	assert.Regexp(t, `auto-migrate\s+true`, out)
}

func TestAuto_CreatesTables(t *testing.T) {
	open, db := sqliteOpener(t, "auto")
	out, err := execute(t, open, "auto")
	require.NoError(t, err)
	assert.Contains(t, out, "auto-migrate complete")
	assert.True(t, db.Migrator().HasTable(&models.Profile{}))
	assert.True(t, db.Migrator().HasTable(&models.File{}))
}

func TestDown_NothingApplied(t *testing.T) {
	open, _ := sqliteOpener(t, "down_empty")
	_, err := execute(t, open, "down")
	assert.EqualError(t, err, "no migrations have been applied")
}

func TestDown_RejectsBadVersion(t *testing.T) {
	open, _ := sqliteOpener(t, "down_bad")
	_, err := execute(t, open, "down", "latest")
	assert.ErrorContains(t, err, `invalid version "latest"`)

	_, err = execute(t, open, "down", "1", "2")
	assert.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	open, _ := sqliteOpener(t, "unknown")
	_, err := execute(t, open, "sideways")
	assert.Error(t, err)
}
