package services

import (
	"context"
	"testing"

	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/models"
	"bakaaro-pos/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func branchByName(t *testing.T, f *fixture, name string) *models.Branch {
	t.Helper()
	var b models.Branch
	require.NoError(t, f.db.Where("name = ?", name).First(&b).Error)
	return &b
}

func TestBranchService_CreateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.branches.Create(ctx, f.mainAdmin, BranchInput{Name: "Airport", Address: "Aden Adde", Manager: "Omar"})
	require.NoError(t, err)
	assert.True(t, b.Active)

	_, err = f.branches.Create(ctx, f.mainAdmin, BranchInput{Name: "Airport"})
	assertKind(t, err, apperr.KindConflict)
	assert.Equal(t, "Branch with this name already exists", apperr.Message(err))

	_, err = f.branches.Create(ctx, f.mainAdmin, BranchInput{Name: " "})
	assertKind(t, err, apperr.KindInvalidInput)

	_, err = f.branches.Create(ctx, f.mainStaff, BranchInput{Name: "Port"})
	assertKind(t, err, apperr.KindForbidden)

	branches, err := f.branches.List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"Airport", "B", "Main"}, names)
}

func TestBranchService_ToggleTwiceRestores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := branchByName(t, f, "Main")
	require.NoError(t, f.db.Model(original).Updates(map[string]any{"address": "Bakaaro Market", "phone": "+252"}).Error)
	original = branchByName(t, f, "Main")

	off, err := f.branches.ToggleStatus(ctx, f.mainAdmin, original.ID)
	require.NoError(t, err)
	assert.False(t, off.Active)

	on, err := f.branches.ToggleStatus(ctx, f.mainAdmin, original.ID)
	require.NoError(t, err)
	assert.True(t, on.Active)

	after := branchByName(t, f, "Main")
	assert.Equal(t, original.Name, after.Name)
	assert.Equal(t, original.Address, after.Address)
	assert.Equal(t, original.Phone, after.Phone)
	assert.Equal(t, original.Manager, after.Manager)
	assert.Equal(t, original.Active, after.Active)

	_, err = f.branches.ToggleStatus(ctx, f.mainAdmin, "missing")
	assertKind(t, err, apperr.KindNotFound)
}

func TestBranchService_RenameCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.Product(t, f.db, "X1", 10, 5, "Main")
	_, err := f.sales.Create(ctx, f.mainStaff, cart(models.PaymentCash, SaleItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	mainBranch := branchByName(t, f, "Main")

	renamed, err := f.branches.Update(ctx, f.mainAdmin, mainBranch.ID, BranchInput{Name: "Main Branch", Address: "Bakaaro"})
	require.NoError(t, err)
	assert.Equal(t, "Main Branch", renamed.Name)
	assert.True(t, renamed.Active, "active is kept when not sent")

	assert.Equal(t, "Main Branch", testutil.Reload[models.User](t, f.db, f.mainStaff.ID).Branch)
	assert.Equal(t, "Main Branch", testutil.Reload[models.Product](t, f.db, p.ID).Branch)
	var sale models.Sale
	require.NoError(t, f.db.First(&sale).Error)
	assert.Equal(t, "Main Branch", sale.Branch)
	assert.Equal(t, "B", testutil.Reload[models.User](t, f.db, f.otherAdmin.ID).Branch)

	_, err = f.branches.Update(ctx, f.mainAdmin, mainBranch.ID, BranchInput{Name: "B"})
	assertKind(t, err, apperr.KindConflict)

	_, err = f.branches.Update(ctx, f.mainAdmin, "missing", BranchInput{Name: "C"})
	assertKind(t, err, apperr.KindNotFound)
}

func TestBranchService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := branchByName(t, f, "B")

	err := f.branches.Delete(ctx, f.mainAdmin, b.ID)
	assertKind(t, err, apperr.KindConflict)

	require.NoError(t, f.db.Delete(&models.User{}, "id = ?", f.otherAdmin.ID).Error)
	require.NoError(t, f.branches.Delete(ctx, f.mainAdmin, b.ID))
	assertKind(t, f.branches.Delete(ctx, f.mainAdmin, b.ID), apperr.KindNotFound)

	exists, err := f.branches.Exists(ctx, "B")
	require.NoError(t, err)
	assert.False(t, exists)
}
