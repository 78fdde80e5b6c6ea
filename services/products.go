package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductInput carries the writable product fields; nil means unchanged.
type ProductInput struct {
	Name     *string
	Price    *decimal.Decimal
	Stock    *int
	ImageURL *string
}

// ListProducts returns uid's catalog ordered by name, optionally filtered by
// a case-insensitive name match.
func ListProducts(db *gorm.DB, uid uint, search string) ([]models.Product, error) {
	q := db.Where("user_id = ?", uid)
	if s := strings.TrimSpace(search); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	out := []models.Product{}
	err := q.Order("name ASC, id ASC").Find(&out).Error
	return out, err
}

// LoadOwnProduct returns the product when uid owns it. Other users' products
// read as missing.
func LoadOwnProduct(db *gorm.DB, id, uid uint) (*models.Product, error) {
	var p models.Product
	if err := db.Where("id = ? AND user_id = ?", id, uid).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("product %d not found", id)
		}
		return nil, err
	}
	return &p, nil
}

func CreateProduct(db *gorm.DB, uid uint, in ProductInput) (*models.Product, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, Invalid("name is required")
	}
	if in.Price == nil {
		return nil, Invalid("price is required")
	}
	if in.Price.IsNegative() {
		return nil, Invalid("price must not be negative")
	}
	p := &models.Product{
		UserID:   uid,
		Name:     strings.TrimSpace(*in.Name),
		Price:    in.Price.Round(2),
		ImageURL: in.ImageURL,
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return nil, Invalid("stock must not be negative")
		}
		p.Stock = *in.Stock
	}
	if err := db.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func UpdateProduct(db *gorm.DB, id, uid uint, in ProductInput) (*models.Product, error) {
	p, err := LoadOwnProduct(db, id, uid)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		if n == "" {
			return nil, Invalid("name must not be empty")
		}
		updates["name"] = n
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, Invalid("price must not be negative")
		}
		updates["price"] = in.Price.Round(2)
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return nil, Invalid("stock must not be negative")
		}
		updates["stock"] = *in.Stock
	}
	if in.ImageURL != nil {
		updates["image_url"] = *in.ImageURL
	}
	if len(updates) > 0 {
		if err := db.Model(p).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return LoadOwnProduct(db, id, uid)
}

// DeleteProduct removes the product and its sales. Ledger rows already
// written for those sales stay.
func DeleteProduct(db *gorm.DB, id, uid uint) error {
	if _, err := LoadOwnProduct(db, id, uid); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.Sale{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, id).Error
	})
}

// RecordSale stores a sale at the product's current price and appends the
// matching ledger row in the same transaction. Stock never drops below zero.
func RecordSale(db *gorm.DB, uid, productID uint, quantity int, now time.Time) (*models.Sale, error) {
	if quantity <= 0 {
		return nil, Invalid("quantity must be at least 1")
	}
	var sale *models.Sale
	err := db.Transaction(func(tx *gorm.DB) error {
		p, err := LoadOwnProduct(tx, productID, uid)
		if err != nil {
			return err
		}
		sale = &models.Sale{
			UserID:     uid,
			ProductID:  p.ID,
			Quantity:   quantity,
			TotalPrice: p.Price.Mul(decimal.NewFromInt(int64(quantity))).Round(2),
			SaleDate:   now.UTC(),
		}
		if err := tx.Create(sale).Error; err != nil {
			return err
		}
		stock := p.Stock - quantity
		if stock < 0 {
			stock = 0
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
			"stock":      stock,
			"total_sold": gorm.Expr("total_sold + ?", quantity),
		}).Error; err != nil {
			return err
		}
		if sale.TotalPrice.IsPositive() {
			row := &models.TotalIncome{
				UserID:     uid,
				Total:      sale.TotalPrice,
				FromSource: p.Name,
				SourceType: models.IncomeSourceSale,
				Noted:      fmt.Sprintf("Sale #%d: %d x %s", sale.ID, quantity, p.Name),
				CreatedAt:  now.UTC(),
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		sale.Product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// SalesPeriodStart returns the local calendar start of the named period.
// Unknown periods fall back to month.
func SalesPeriodStart(period string, now time.Time, loc *time.Location) (string, time.Time) {
	n := now.In(loc)
	y, m, d := n.Date()
	switch period {
	case "day":
		return period, time.Date(y, m, d, 0, 0, 0, 0, loc)
	case "week":
		back := (int(n.Weekday()) + 6) % 7
		return period, time.Date(y, m, d-back, 0, 0, 0, 0, loc)
	case "quarter":
		q := time.Month((int(m)-1)/3*3 + 1)
		return period, time.Date(y, q, 1, 0, 0, 0, 0, loc)
	case "6months":
		half := time.January
		if m > time.June {
			half = time.July
		}
		return period, time.Date(y, half, 1, 0, 0, 0, 0, loc)
	case "year":
		return period, time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return "month", time.Date(y, m, 1, 0, 0, 0, 0, loc)
	}
}

// ProductSales is one product's share of a period.
type ProductSales struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type SalesStats struct {
	Period            string          `json:"period"`
	StartDate         time.Time       `json:"start_date"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalQuantity     int             `json:"total_quantity"`
	TotalTransactions int             `json:"total_transactions"`
	ByProduct         []ProductSales  `json:"by_product"`
}

// ComputeSalesStats totals uid's sales since the period start, with a
// per-product breakdown ordered by revenue.
func ComputeSalesStats(db *gorm.DB, uid uint, period string, now time.Time, loc *time.Location) (*SalesStats, error) {
	period, start := SalesPeriodStart(period, now, loc)
	var sales []models.Sale
	if err := db.Preload("Product").Where("user_id = ? AND sale_date >= ?", uid, start.UTC()).
		Order("sale_date ASC, id ASC").Find(&sales).Error; err != nil {
		return nil, err
	}
	stats := &SalesStats{Period: period, StartDate: start, TotalRevenue: decimal.Zero, ByProduct: []ProductSales{}}
	idx := map[uint]int{}
	for _, s := range sales {
		stats.TotalRevenue = stats.TotalRevenue.Add(s.TotalPrice)
		stats.TotalQuantity += s.Quantity
		stats.TotalTransactions++
		i, ok := idx[s.ProductID]
		if !ok {
			ps := ProductSales{ProductID: s.ProductID, Revenue: decimal.Zero}
			if s.Product != nil {
				ps.Name = s.Product.Name
			}
			stats.ByProduct = append(stats.ByProduct, ps)
			i = len(stats.ByProduct) - 1
			idx[s.ProductID] = i
		}
		stats.ByProduct[i].Quantity += s.Quantity
		stats.ByProduct[i].Revenue = stats.ByProduct[i].Revenue.Add(s.TotalPrice)
	}
	sort.SliceStable(stats.ByProduct, func(i, j int) bool {
		return stats.ByProduct[i].Revenue.GreaterThan(stats.ByProduct[j].Revenue)
	})
	return stats, nil
}

// RecentSales returns the latest sales, newest first.
func RecentSales(db *gorm.DB, uid uint, limit int) ([]models.Sale, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	out := []models.Sale{}
	err := db.Preload("Product").Where("user_id = ?", uid).
		Order("sale_date DESC, id DESC").Limit(limit).Find(&out).Error
	return out, err
}
