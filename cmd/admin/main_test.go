package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRepo(t *testing.T) (repository.ProfileRepository, *gorm.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return repository.NewProfileRepository(db, cache.NewStore(nil)), db
}

func run(t *testing.T, repo repository.ProfileRepository, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(func(context.Context) (repository.ProfileRepository, func(), error) {
		return repo, func() {}, nil
	})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func addProfile(t *testing.T, db *gorm.DB, email string, role models.Role) *models.Profile {
	t.Helper()
	p := &models.Profile{Email: email, Password: "x", FullName: "Test " + email, Role: role}
	require.NoError(t, db.Create(p).Error)
	return p
}

func roleOf(t *testing.T, db *gorm.DB, id uint) models.Role {
	t.Helper()
	var p models.Profile
	require.NoError(t, db.First(&p, id).Error)
	return p.Role
}

func TestPromoteAndDemote(t *testing.T) {
	repo, db := newRepo(t)
	p := addProfile(t, db, "ada@example.com", models.RoleUser)

	out, err := run(t, repo, "promote", "ADA@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "user -> core_admin")
	assert.Equal(t, models.RoleCoreAdmin, roleOf(t, db, p.ID))

	out, err = run(t, repo, "promote", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "already has role")

	_, err = run(t, repo, "demote", "1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, roleOf(t, db, p.ID))
}

func TestSetRole(t *testing.T) {
	repo, db := newRepo(t)
	p := addProfile(t, db, "grace@example.com", models.RoleUser)

	_, err := run(t, repo, "set-role", "grace@example.com", "SuperAdmin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, roleOf(t, db, p.ID))

	_, err = run(t, repo, "set-role", "grace@example.com", "owner")
	assert.ErrorContains(t, err, "unknown role")

	_, err = run(t, repo, "set-role", "grace@example.com")
	assert.Error(t, err)
}

func TestLastSuperadminIsKept(t *testing.T) {
	repo, db := newRepo(t)
	root := addProfile(t, db, "root@example.com", models.RoleSuperAdmin)

	_, err := run(t, repo, "demote", "root@example.com")
	assert.ErrorContains(t, err, "last superadmin")
	assert.Equal(t, models.RoleSuperAdmin, roleOf(t, db, root.ID))

	addProfile(t, db, "second@example.com", models.RoleSuperAdmin)
	_, err = run(t, repo, "demote", "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, roleOf(t, db, root.ID))
}

func TestUnknownProfile(t *testing.T) {
	repo, _ := newRepo(t)
	_, err := run(t, repo, "promote", "nobody@example.com")
	assert.ErrorContains(t, err, "no profile matches")
	_, err = run(t, repo, "promote", "99")
	assert.ErrorContains(t, err, "no profile matches")
}

func TestListAdmins(t *testing.T) {
	repo, db := newRepo(t)
	out, err := run(t, repo, "list-admins")
	require.NoError(t, err)
	assert.Contains(t, out, "no administrators")

	addProfile(t, db, "user@example.com", models.RoleUser)
	addProfile(t, db, "core@example.com", models.RoleCoreAdmin)
	addProfile(t, db, "super@example.com", models.RoleSuperAdmin)

	out, err = run(t, repo, "list-admins")
	require.NoError(t, err)
	assert.Contains(t, out, "core@example.com")
	assert.Contains(t, out, "super@example.com")
	assert.NotContains(t, out, "user@example.com")
}
