package services

import (
	"errors"
	"testing"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSale_AppendsLedgerRow(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "seller")
	name, price, stock := "Mug", decimal.RequireFromString("12.50"), 3
	p, err := CreateProduct(db, u.ID, ProductInput{Name: &name, Price: &price, Stock: &stock})
	require.NoError(t, err)
	now := time.Date(2026, 5, 10, 3, 0, 0, 0, time.UTC)

	sale, err := RecordSale(db, u.ID, p.ID, 5, now)
	require.NoError(t, err)
	assert.True(t, sale.TotalPrice.Equal(decimal.RequireFromString("62.50")))

	var rows []models.TotalIncome
	require.NoError(t, db.Where("user_id = ?", u.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.IncomeSourceSale, rows[0].SourceType)
	assert.Nil(t, rows[0].TaskID)
	assert.True(t, rows[0].Total.Equal(sale.TotalPrice))

	reloaded, err := LoadOwnProduct(db, p.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Stock)
	assert.Equal(t, 5, reloaded.TotalSold)

	// the ledger row keeps the sale price after a price change
	newPrice := decimal.NewFromInt(99)
	_, err = UpdateProduct(db, p.ID, u.ID, ProductInput{Price: &newPrice})
	require.NoError(t, err)
	require.NoError(t, db.First(&rows[0], rows[0].ID).Error)
	assert.True(t, rows[0].Total.Equal(decimal.RequireFromString("62.50")))
}

func TestRecordSale_Rejects(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "owner")
	stranger := mkUser(t, db, "stranger")
	name, price := "Tee", decimal.NewFromInt(10)
	p, err := CreateProduct(db, owner.ID, ProductInput{Name: &name, Price: &price})
	require.NoError(t, err)

	_, err = RecordSale(db, owner.ID, p.ID, 0, time.Now())
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = RecordSale(db, stranger.ID, p.ID, 1, time.Now())
	assert.True(t, errors.Is(err, ErrNotFound))

	var n int64
	require.NoError(t, db.Model(&models.TotalIncome{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateProduct_Validation(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "maker")
	name := "Cap"
	_, err := CreateProduct(db, u.ID, ProductInput{Name: &name})
	assert.True(t, errors.Is(err, ErrValidation))
	neg := decimal.NewFromInt(-1)
	_, err = CreateProduct(db, u.ID, ProductInput{Name: &name, Price: &neg})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestListProducts_Search(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "shop")
	price := decimal.NewFromInt(5)
	for _, n := range []string{"Blue mug", "Red cap", "red mug"} {
		n := n
		_, err := CreateProduct(db, u.ID, ProductInput{Name: &n, Price: &price})
		require.NoError(t, err)
	}
	got, err := ListProducts(db, u.ID, "MUG")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Blue mug", got[0].Name)
}

func TestSalesPeriodStart(t *testing.T) {
	// Wednesday 2026-08-19 10:00 local
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, testLoc)
	cases := map[string]time.Time{
		"day":     time.Date(2026, 8, 19, 0, 0, 0, 0, testLoc),
		"week":    time.Date(2026, 8, 17, 0, 0, 0, 0, testLoc),
		"month":   time.Date(2026, 8, 1, 0, 0, 0, 0, testLoc),
		"quarter": time.Date(2026, 7, 1, 0, 0, 0, 0, testLoc),
		"6months": time.Date(2026, 7, 1, 0, 0, 0, 0, testLoc),
		"year":    time.Date(2026, 1, 1, 0, 0, 0, 0, testLoc),
		"bogus":   time.Date(2026, 8, 1, 0, 0, 0, 0, testLoc),
	}
	for period, want := range cases {
		_, got := SalesPeriodStart(period, now, testLoc)
		assert.True(t, got.Equal(want), "%s: %s", period, got)
	}
}

func TestComputeSalesStats(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "vendor")
	mug, tee := "Mug", "Tee"
	p5, p20 := decimal.NewFromInt(5), decimal.NewFromInt(20)
	a, err := CreateProduct(db, u.ID, ProductInput{Name: &mug, Price: &p5})
	require.NoError(t, err)
	b, err := CreateProduct(db, u.ID, ProductInput{Name: &tee, Price: &p20})
	require.NoError(t, err)

	now := time.Date(2026, 8, 19, 10, 0, 0, 0, testLoc)
	_, err = RecordSale(db, u.ID, a.ID, 3, now.AddDate(0, -1, 0))
	require.NoError(t, err)
	_, err = RecordSale(db, u.ID, a.ID, 2, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = RecordSale(db, u.ID, b.ID, 1, now.Add(-2*time.Hour))
	require.NoError(t, err)

	stats, err := ComputeSalesStats(db, u.ID, "month", now, testLoc)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTransactions)
	assert.Equal(t, 3, stats.TotalQuantity)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(30)))
	require.Len(t, stats.ByProduct, 2)
	assert.Equal(t, "Tee", stats.ByProduct[0].Name)

	recent, err := RecentSales(db, u.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, a.ID, recent[0].ProductID)
}
