package service

import (
	"context"
	"testing"
	"time"

	"shopbill/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalesSummaryAndTopProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pen := env.addProduct(t, "Pen", "100", 50)
	book := env.addProduct(t, "Book", "250", 50)

	_, _, err := env.billService.CreateBill(ctx, CreateBillRequest{
		Items: []BillItemRequest{
			{ProductID: pen.ID.String(), Quantity: 3},
			{ProductID: book.ID.String(), Quantity: 1},
		},
		Discount: strPtr("0"), Tax: strPtr("0"),
	}, env.userID)
	require.NoError(t, err)

	_, _, err = env.billService.CreateBill(ctx, CreateBillRequest{
		Items:         []BillItemRequest{{ProductID: pen.ID.String(), Quantity: 2}},
		Discount:      strPtr("0"),
		Tax:           strPtr("0"),
		PaymentMethod: "UPI",
	}, env.userID)
	require.NoError(t, err)

	reportService := NewReportService(repository.NewReportRepository(env.db), NewSettingService(env.settingRepo, repository.NewAuditRepository(env.db), repository.NewTransactionManager(env.db)))

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)

	summary, err := reportService.SalesSummary(ctx, start, end)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.BillCount)
	assert.Equal(t, "750.00", summary.Subtotal)
	assert.Equal(t, "750.00", summary.GrandTotal)

	top, err := reportService.TopProducts(ctx, start, end, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Pen", top[0].Name)
	assert.EqualValues(t, 5, top[0].QuantitySold)
	assert.Equal(t, "500.00", top[0].Revenue)
	assert.Equal(t, "Book", top[1].Name)

	payments, err := reportService.PaymentBreakdown(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, payments, 2)

	lowStock, err := reportService.LowStock(ctx)
	require.NoError(t, err)
	assert.Empty(t, lowStock)
}

func TestSalesSummaryEmptyRange(t *testing.T) {
	env := newTestEnv(t)

	reportService := NewReportService(repository.NewReportRepository(env.db), NewSettingService(env.settingRepo, repository.NewAuditRepository(env.db), repository.NewTransactionManager(env.db)))

	summary, err := reportService.SalesSummary(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Zero(t, summary.BillCount)
	assert.Equal(t, "0.00", summary.GrandTotal)
}
