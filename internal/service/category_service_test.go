package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(cats []*models.Category) []string {
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.Name)
	}
	return out
}

func TestCategoryService_CreateRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.profile(t, "user@example.com", models.RoleUser)
	admin := f.profile(t, "admin@example.com", models.RoleCoreAdmin)

	_, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: user.ID, Name: "Docs"})
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	_, err = f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "   "})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "Child", ParentID: ptr(uint(999))})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	cat, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "  Docs  "})
	require.NoError(t, err)
	assert.Equal(t, "Docs", cat.Name)
	assert.Equal(t, admin.ID, cat.CreatedBy)
}

func TestCategoryService_AdminOnlyHiddenFromUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.profile(t, "user@example.com", models.RoleUser)
	admin := f.profile(t, "admin@example.com", models.RoleSuperAdmin)

	_, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "Public"})
	require.NoError(t, err)
	board, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "Board", AdminOnly: true})
	require.NoError(t, err)

	list, err := f.categorySvc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Public"}, names(list))

	list, err = f.categorySvc.List(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Board", "Public"}, names(list))

	_, err = f.categorySvc.Get(ctx, user.ID, board.ID)
	assert.True(t, models.IsNotFound(err))
	_, err = f.categorySvc.ListChildren(ctx, user.ID, &board.ID)
	assert.True(t, models.IsNotFound(err))
	_, err = f.categorySvc.Breadcrumbs(ctx, user.ID, board.ID)
	assert.True(t, models.IsNotFound(err))
}

func TestCategoryService_RejectsCycles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.profile(t, "admin@example.com", models.RoleCoreAdmin)

	a, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "A"})
	require.NoError(t, err)
	b, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "B", ParentID: &a.ID})
	require.NoError(t, err)
	c, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "C", ParentID: &b.ID})
	require.NoError(t, err)

	tests := []struct {
		name     string
		id       uint
		parentID uint
	}{
		{name: "self parent", id: a.ID, parentID: a.ID},
		{name: "direct child", id: a.ID, parentID: b.ID},
		{name: "grandchild", id: a.ID, parentID: c.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.categorySvc.Update(ctx, UpdateCategoryInput{UserID: admin.ID, CategoryID: tt.id, ParentID: &tt.parentID})
			assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		})
	}

	moved, err := f.categorySvc.Update(ctx, UpdateCategoryInput{UserID: admin.ID, CategoryID: c.ID, ParentID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, a.ID, *moved.ParentID)

	rooted, err := f.categorySvc.Update(ctx, UpdateCategoryInput{UserID: admin.ID, CategoryID: c.ID, ClearParent: true, Name: ptr("C2")})
	require.NoError(t, err)
	assert.Nil(t, rooted.ParentID)
	assert.Equal(t, "C2", rooted.Name)
}

func TestCategoryService_BreadcrumbsRootFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.profile(t, "admin@example.com", models.RoleCoreAdmin)

	a, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "A"})
	require.NoError(t, err)
	b, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "B", ParentID: &a.ID})
	require.NoError(t, err)
	c, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "C", ParentID: &b.ID})
	require.NoError(t, err)

	crumbs, err := f.categorySvc.Breadcrumbs(ctx, admin.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names(crumbs))

	// Corrupt the tree behind the service's back: A -> C closes a loop.
	require.NoError(t, f.db.Model(&models.Category{}).Where("id = ?", a.ID).Update("parent_id", c.ID).Error)

	crumbs, err = f.categorySvc.Breadcrumbs(ctx, admin.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names(crumbs))
}

func TestCategoryService_BreadcrumbsHideAdminOnlyAncestors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.profile(t, "user@example.com", models.RoleUser)
	admin := f.profile(t, "admin@example.com", models.RoleCoreAdmin)

	root, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "Company"})
	require.NoError(t, err)
	board, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "Board", ParentID: &root.ID, AdminOnly: true})
	require.NoError(t, err)
	shared, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "Shared", ParentID: &board.ID})
	require.NoError(t, err)

	crumbs, err := f.categorySvc.Breadcrumbs(ctx, user.ID, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shared"}, names(crumbs))

	crumbs, err = f.categorySvc.Breadcrumbs(ctx, admin.ID, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Company", "Board", "Shared"}, names(crumbs))
}

func TestCategoryService_DeepChainIsCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.profile(t, "admin@example.com", models.RoleCoreAdmin)

	const levels = 70
	chain := make([]*models.Category, 0, levels)
	var parent *uint
	for i := 0; i < levels; i++ {
		cat := &models.Category{Name: fmt.Sprintf("L%02d", i), CreatedBy: admin.ID, ParentID: parent}
		require.NoError(t, f.db.Create(cat).Error)
		chain = append(chain, cat)
		parent = &cat.ID
	}
	leaf := chain[levels-1]

	crumbs, err := f.categorySvc.Breadcrumbs(ctx, admin.ID, leaf.ID)
	require.NoError(t, err)
	require.Len(t, crumbs, maxTreeDepth)
	assert.Equal(t, "L06", crumbs[0].Name)
	assert.Equal(t, leaf.Name, crumbs[len(crumbs)-1].Name)

	loose, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "Loose"})
	require.NoError(t, err)

	_, err = f.categorySvc.Update(ctx, UpdateCategoryInput{UserID: admin.ID, CategoryID: loose.ID, ParentID: &leaf.ID})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	moved, err := f.categorySvc.Update(ctx, UpdateCategoryInput{UserID: admin.ID, CategoryID: loose.ID, ParentID: &chain[10].ID})
	require.NoError(t, err)
	assert.Equal(t, chain[10].ID, *moved.ParentID)
}

func TestCategoryService_DeleteDetachesFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.profile(t, "admin@example.com", models.RoleCoreAdmin)
	user := f.profile(t, "user@example.com", models.RoleUser)

	cat, err := f.categorySvc.Create(ctx, CreateCategoryInput{UserID: admin.ID, Name: "Docs"})
	require.NoError(t, err)
	file := f.upload(t, user.ID, "notes.txt", &cat.ID)

	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(f.categorySvc.Delete(ctx, user.ID, cat.ID)))
	require.NoError(t, f.categorySvc.Delete(ctx, admin.ID, cat.ID))

	got, err := f.fileSvc.Get(ctx, user.ID, file.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}
