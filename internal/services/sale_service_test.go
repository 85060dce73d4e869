package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/models"
	"bakaaro-pos/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func cart(method models.PaymentMethod, items ...SaleItemInput) SaleInput {
	return SaleInput{Items: items, PaymentMethod: method}
}

func countSales(t *testing.T, f *fixture) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Sale{}).Count(&n).Error)
	return n
}

func TestSaleService_Create_DecrementsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.Product(t, f.db, "X1", 10, 5, "Main")

	sale, err := f.sales.Create(ctx, f.mainStaff, cart(models.PaymentCash, SaleItemInput{ProductID: p.ID, Quantity: 3}))
	require.NoError(t, err)

	assert.Equal(t, 30.0, sale.TotalPrice)
	assert.Equal(t, "Main", sale.Branch)
	assert.Equal(t, f.mainStaff.ID, sale.CreatedBy)
	assert.Equal(t, models.PaymentCash, sale.PaymentMethod)
	assert.False(t, sale.Date.IsZero())
	require.Len(t, sale.Items, 1)
	assert.Equal(t, 10.0, sale.Items[0].Price)
	assert.Equal(t, 3, sale.Items[0].Quantity)
	require.NotNil(t, sale.Items[0].Product)
	assert.Equal(t, p.Name, sale.Items[0].Product.Name)

	assert.Equal(t, 2, testutil.Reload[models.Product](t, f.db, p.ID).Quantity)
}

func TestSaleService_Create_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	p := testutil.Product(t, f.db, "X1", 10, 2, "Main")

	_, err := f.sales.Create(context.Background(), f.mainStaff, cart(models.PaymentCash, SaleItemInput{ProductID: p.ID, Quantity: 3}))
	assertKind(t, err, apperr.KindConflict)
	assert.Equal(t, "Insufficient stock for product: "+p.Name, apperr.Message(err))

	assert.Equal(t, 2, testutil.Reload[models.Product](t, f.db, p.ID).Quantity)
	assert.Zero(t, countSales(t, f))
}

func TestSaleService_Create_OtherBranchProduct(t *testing.T) {
	f := newFixture(t)
	p := testutil.Product(t, f.db, "X1", 10, 5, "Main")

	_, err := f.sales.Create(context.Background(), f.otherAdmin, cart(models.PaymentCash, SaleItemInput{ProductID: p.ID, Quantity: 1}))
	assertKind(t, err, apperr.KindForbidden)

	assert.Equal(t, 5, testutil.Reload[models.Product](t, f.db, p.ID).Quantity)
	assert.Zero(t, countSales(t, f))
}

func TestSaleService_Create_StockCheckedBeforeBranch(t *testing.T) {
	f := newFixture(t)
	p := testutil.Product(t, f.db, "X1", 10, 1, "Main")

	_, err := f.sales.Create(context.Background(), f.otherAdmin, cart(models.PaymentCash, SaleItemInput{ProductID: p.ID, Quantity: 2}))
	assertKind(t, err, apperr.KindConflict)
}

func TestSaleService_Create_FailedCartLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	first := testutil.Product(t, f.db, "X1", 10, 5, "Main")
	second := testutil.Product(t, f.db, "X2", 4, 1, "Main")

	_, err := f.sales.Create(context.Background(), f.mainStaff, cart(models.PaymentEVCPlus,
		SaleItemInput{ProductID: first.ID, Quantity: 2},
		SaleItemInput{ProductID: second.ID, Quantity: 3},
	))
	assertKind(t, err, apperr.KindConflict)

	assert.Equal(t, 5, testutil.Reload[models.Product](t, f.db, first.ID).Quantity)
	assert.Equal(t, 1, testutil.Reload[models.Product](t, f.db, second.ID).Quantity)
	assert.Zero(t, countSales(t, f))

	var items int64
	require.NoError(t, f.db.Model(&models.SaleItem{}).Count(&items).Error)
	assert.Zero(t, items)
}

func TestSaleService_Create_SameProductTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.Product(t, f.db, "X1", 10, 5, "Main")

	_, err := f.sales.Create(ctx, f.mainStaff, cart(models.PaymentCash,
		SaleItemInput{ProductID: p.ID, Quantity: 3},
		SaleItemInput{ProductID: p.ID, Quantity: 3},
	))
	assertKind(t, err, apperr.KindConflict)
	assert.Equal(t, 5, testutil.Reload[models.Product](t, f.db, p.ID).Quantity)

	sale, err := f.sales.Create(ctx, f.mainStaff, cart(models.PaymentCash,
		SaleItemInput{ProductID: p.ID, Quantity: 3},
		SaleItemInput{ProductID: p.ID, Quantity: 2},
	))
	require.NoError(t, err)
	assert.Equal(t, 50.0, sale.TotalPrice)
	assert.Zero(t, testutil.Reload[models.Product](t, f.db, p.ID).Quantity)
}

func TestSaleService_Create_ValidationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.Product(t, f.db, "X1", 10, 5, "Main")

	tests := []struct {
		name string
		in   SaleInput
		kind apperr.Kind
		msg  string
	}{
		{"no items", cart("Bitcoin"), apperr.KindInvalidInput, "Items array is required and cannot be empty"},
		{"payment method", cart("Card", SaleItemInput{ProductID: "missing", Quantity: 0}), apperr.KindInvalidInput, "Invalid or missing payment method"},
		{"payment method is case sensitive", cart("cash", SaleItemInput{ProductID: p.ID, Quantity: 1}), apperr.KindInvalidInput, "Invalid or missing payment method"},
		{"zero quantity", cart(models.PaymentCash, SaleItemInput{ProductID: p.ID, Quantity: 0}), apperr.KindInvalidInput, "items[0].quantity must be at least 1"},
		{"missing product id", cart(models.PaymentCash, SaleItemInput{Quantity: 1}), apperr.KindInvalidInput, "items[0].productId is required"},
		{"unknown product", cart(models.PaymentCash, SaleItemInput{ProductID: "missing", Quantity: 1}), apperr.KindNotFound, "Product not found: missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sales.Create(ctx, f.mainStaff, tt.in)
			assertKind(t, err, tt.kind)
			assert.Equal(t, tt.msg, apperr.Message(err))
		})
	}
	assert.Equal(t, 5, testutil.Reload[models.Product](t, f.db, p.ID).Quantity)
}

func TestSaleService_PriceSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.Product(t, f.db, "X1", 10, 5, "Main")

	_, err := f.sales.Create(ctx, f.mainStaff, cart(models.PaymentCash, SaleItemInput{ProductID: p.ID, Quantity: 2}))
	require.NoError(t, err)
	_, err = f.products.SetPrice(ctx, f.mainAdmin, p.ID, 99)
	require.NoError(t, err)

	sales, err := f.sales.List(ctx, f.mainStaff)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 20.0, sales[0].TotalPrice)
	assert.Equal(t, 10.0, sales[0].Items[0].Price)
	assert.Equal(t, 99.0, sales[0].Items[0].Product.Price)
}

func TestSaleService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.Product(t, f.db, "X1", 10, 50, "Main")
	b := testutil.Product(t, f.db, "X2", 1, 50, "Main")
	o := testutil.Product(t, f.db, "O1", 1, 50, "B")

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, line := range []SaleItemInput{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 2}} {
		at := base.Add(time.Duration(i) * time.Hour)
		f.sales.now = func() time.Time { return at }
		_, err := f.sales.Create(ctx, f.mainStaff, cart(models.PaymentCash, line))
		require.NoError(t, err)
	}
	_, err := f.sales.Create(ctx, f.otherAdmin, cart(models.PaymentCash, SaleItemInput{ProductID: o.ID, Quantity: 1}))
	require.NoError(t, err)

	require.NoError(t, f.products.Delete(ctx, f.mainAdmin, a.ID))

	sales, err := f.sales.List(ctx, f.mainStaff)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, b.ID, sales[0].Items[0].ProductID, "newest first")
	assert.Equal(t, a.ID, sales[1].Items[0].ProductID)
	assert.Nil(t, sales[1].Items[0].Product, "deleted product")
	for _, s := range sales {
		assert.Equal(t, "Main", s.Branch)
	}
}

func TestSaleService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.Product(t, f.db, "X1", 10, 5, "Main")
	sale, err := f.sales.Create(ctx, f.mainStaff, cart(models.PaymentCash, SaleItemInput{ProductID: p.ID, Quantity: 3}))
	require.NoError(t, err)

	assertKind(t, f.sales.Delete(ctx, f.mainStaff, sale.ID), apperr.KindForbidden)
	assertKind(t, f.sales.Delete(ctx, f.otherAdmin, sale.ID), apperr.KindForbidden)
	require.NoError(t, f.sales.Delete(ctx, f.mainAdmin, sale.ID))
	assertKind(t, f.sales.Delete(ctx, f.mainAdmin, sale.ID), apperr.KindNotFound)

	assert.Zero(t, countSales(t, f))
	var items int64
	require.NoError(t, f.db.Model(&models.SaleItem{}).Count(&items).Error)
	assert.Zero(t, items)
	assert.Equal(t, 2, testutil.Reload[models.Product](t, f.db, p.ID).Quantity, "stock is not restored")
}

func TestSaleService_TotalMatchesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.Product(t, f.db, "X1", 2.5, 10, "Main")
	b := testutil.Product(t, f.db, "X2", 7.25, 10, "Main")

	sale, err := f.sales.Create(ctx, f.mainStaff, cart(models.PaymentEVCPlus,
		SaleItemInput{ProductID: a.ID, Quantity: 4},
		SaleItemInput{ProductID: b.ID, Quantity: 2},
	))
	require.NoError(t, err)

	var sum float64
	for _, item := range sale.Items {
		sum += item.Price * float64(item.Quantity)
	}
	assert.InDelta(t, sum, sale.TotalPrice, 1e-9)
	assert.Equal(t, []string{a.ID, b.ID}, []string{sale.Items[0].ProductID, sale.Items[1].ProductID})
}

func TestSaleService_Create_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t)
	const stock, buyers = 5, 20
	p := testutil.Product(t, f.db, "C1", 2, stock, "Main")

	var wg sync.WaitGroup
	errs := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sales.Create(context.Background(), f.mainStaff,
				cart(models.PaymentCash, SaleItemInput{ProductID: p.ID, Quantity: 1}))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var sold, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			sold++
		case apperr.KindOf(err) == apperr.KindConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, stock, sold)
	assert.Equal(t, buyers-stock, conflicts)
	assert.Equal(t, 0, testutil.Reload[models.Product](t, f.db, p.ID).Quantity)
	assert.EqualValues(t, stock, countSales(t, f))
}

func TestSaleService_Create_StockTakenBeforeDecrement(t *testing.T) {
	f := newFixture(t)
	p := testutil.Product(t, f.db, "R1", 4, 3, "Main")
	other := testutil.Product(t, f.db, "R2", 1, 9, "Main")

	// Another checkout empties R1 between this sale's read and its decrement.
	drained := false
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:drain_stock", func(tx *gorm.DB) {
		if drained || tx.Statement.Table != "products" {
			return
		}
		drained = true
		if err := tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE products SET quantity = 0 WHERE id = ?", p.ID).Error; err != nil {
			t.Errorf("drain stock: %v", err)
		}
	}))

	_, err := f.sales.Create(context.Background(), f.mainStaff, cart(models.PaymentCash,
		SaleItemInput{ProductID: p.ID, Quantity: 2},
		SaleItemInput{ProductID: other.ID, Quantity: 1},
	))
	assertKind(t, err, apperr.KindConflict)
	assert.Equal(t, "Insufficient stock for product: Product R1", apperr.Message(err))
	assert.True(t, drained)

	assert.EqualValues(t, 0, countSales(t, f))
	assert.Equal(t, 9, testutil.Reload[models.Product](t, f.db, other.ID).Quantity)
}
