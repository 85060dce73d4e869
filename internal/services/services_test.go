package services

import (
	"testing"

	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/auth"
	"bakaaro-pos/internal/models"
	"bakaaro-pos/internal/testutil"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	products *ProductService
	sales    *SaleService
	staff    *StaffService
	branches *BranchService
	auth     *AuthService
	reports  *ReportService

	mainAdmin  *models.User
	mainStaff  *models.User
	otherAdmin *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testutil.Config()
	db := testutil.NewDBWithConfig(t, cfg)
	logger := testutil.Logger()
	hasher := auth.NewHasher(cfg)

	testutil.Branch(t, db, "Main")
	testutil.Branch(t, db, "B")

	return &fixture{
		db:         db,
		products:   NewProductService(db, logger),
		sales:      NewSaleService(db, logger),
		staff:      NewStaffService(db, hasher, logger),
		branches:   NewBranchService(db, logger),
		auth:       NewAuthService(db, hasher, auth.NewTokenService(cfg), logger),
		reports:    NewReportService(db, cfg),
		mainAdmin:  testutil.User(t, db, "admin-main", models.RoleAdmin, "Main"),
		mainStaff:  testutil.User(t, db, "staff-main", models.RoleStaff, "Main"),
		otherAdmin: testutil.User(t, db, "admin-b", models.RoleAdmin, "B"),
	}
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Equal(t, kind, apperr.KindOf(err), err.Error())
	}
}

func ptr[T any](v T) *T { return &v }
