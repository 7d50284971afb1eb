package repository

import (
	"context"
	"time"

	"shopbill/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesTotals is one aggregate row over a date range of bills
type SalesTotals struct {
	BillCount  int64
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
}

// TopProduct is one row of the best-sellers aggregate
type TopProduct struct {
	ProductID    string
	Name         string
	QuantitySold int64
	Revenue      decimal.Decimal
}

// PaymentTotals is the per-payment-method slice of a sales summary
type PaymentTotals struct {
	PaymentMethod string
	BillCount     int64
	GrandTotal    decimal.Decimal
}

type ReportRepository interface {
	SalesTotals(ctx context.Context, start, end time.Time) (SalesTotals, error)
	TopProducts(ctx context.Context, start, end time.Time, limit int) ([]TopProduct, error)
	PaymentBreakdown(ctx context.Context, start, end time.Time) ([]PaymentTotals, error)
	LowStockProducts(ctx context.Context, threshold int) ([]model.Product, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) SalesTotals(ctx context.Context, start, end time.Time) (SalesTotals, error) {
	var totals SalesTotals
	err := GetDB(ctx, r.db).Model(&model.Bill{}).
		Select("COUNT(*) AS bill_count, "+
			"COALESCE(SUM(subtotal), 0) AS subtotal, "+
			"COALESCE(SUM(discount_amount), 0) AS discount, "+
			"COALESCE(SUM(tax_amount), 0) AS tax, "+
			"COALESCE(SUM(grand_total), 0) AS grand_total").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Scan(&totals).Error
	return totals, err
}

func (r *reportRepository) TopProducts(ctx context.Context, start, end time.Time, limit int) ([]TopProduct, error) {
	var rows []TopProduct
	err := GetDB(ctx, r.db).Model(&model.BillItem{}).
		Select("bill_items.product_id AS product_id, "+
			"bill_items.name AS name, "+
			"SUM(bill_items.quantity) AS quantity_sold, "+
			"COALESCE(SUM(bill_items.amount), 0) AS revenue").
		Joins("JOIN bills ON bills.id = bill_items.bill_id").
		Where("bills.created_at >= ? AND bills.created_at <= ?", start, end).
		Group("bill_items.product_id, bill_items.name").
		Order("quantity_sold DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *reportRepository) PaymentBreakdown(ctx context.Context, start, end time.Time) ([]PaymentTotals, error) {
	var rows []PaymentTotals
	err := GetDB(ctx, r.db).Model(&model.Bill{}).
		Select("payment_method, COUNT(*) AS bill_count, COALESCE(SUM(grand_total), 0) AS grand_total").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("payment_method").
		Order("grand_total DESC").
		Find(&rows).Error
	return rows, err
}

func (r *reportRepository) LowStockProducts(ctx context.Context, threshold int) ([]model.Product, error) {
	var products []model.Product
	err := GetDB(ctx, r.db).
		Where("stock <= ?", threshold).
		Order("stock asc").
		Find(&products).Error
	return products, err
}
