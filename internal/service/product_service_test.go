package service

import (
	"context"
	"testing"

	"shopbill/internal/database"
	"shopbill/internal/model"
	"shopbill/internal/repository"
	"shopbill/internal/websocket"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newProductService(t *testing.T) (ProductService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	productRepo := repository.NewProductRepository(db)
	stockLogRepo := repository.NewStockLogRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	require.NoError(t, settingRepo.SeedDefaults(context.Background(), DefaultSettings()))

	settingService := NewSettingService(settingRepo, auditRepo, txManager)
	return NewProductService(productRepo, stockLogRepo, auditRepo, settingService, txManager, websocket.NewHub()), db
}

func TestCreateProductLogsOpeningStock(t *testing.T) {
	svc, db := newProductService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductRequest{
		SKU: "PEN-01", Name: "Pen", Rate: "12.50", GSTRate: "18", Stock: 40,
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "12.50", product.Rate)
	assert.Equal(t, 40, product.Stock)
	assert.False(t, product.LowStock)

	var entry model.StockLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, model.StockChangeIn, entry.ChangeType)
	assert.Equal(t, 40, entry.Quantity)
	assert.Equal(t, 40, entry.StockAfter)
	assert.Equal(t, "Opening stock", entry.Reference)
}

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductRequest{SKU: "PEN-01", Name: "Pen", Rate: "10"}, "")
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductRequest{SKU: "PEN-01", Name: "Other Pen", Rate: "11"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAdjustStock(t *testing.T) {
	svc, db := newProductService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductRequest{
		SKU: "INK-01", Name: "Ink", Rate: "80", Stock: 5,
	}, "")
	require.NoError(t, err)

	cases := []struct {
		name       string
		changeType string
		quantity   int
		wantStock  int
		wantErr    bool
	}{
		{"receive stock", model.StockChangeIn, 10, 15, false},
		{"remove stock", model.StockChangeOut, 4, 11, false},
		{"remove more than available", model.StockChangeOut, 100, 11, true},
		{"set absolute level", model.StockChangeAdjust, 7, 7, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := svc.AdjustStock(ctx, product.ID, AdjustStockRequest{
				ChangeType: tc.changeType,
				Quantity:   tc.quantity,
			}, "")
			if tc.wantErr {
				require.Error(t, err)
				got, getErr := svc.GetProduct(ctx, product.ID)
				require.NoError(t, getErr)
				assert.Equal(t, tc.wantStock, got.Stock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantStock, resp.Stock)
		})
	}

	// Opening stock entry plus one per successful adjustment
	var logCount int64
	require.NoError(t, db.Model(&model.StockLog{}).Count(&logCount).Error)
	assert.EqualValues(t, 4, logCount)
}

func TestLowStockFlagFollowsThreshold(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	low, err := svc.CreateProduct(ctx, CreateProductRequest{SKU: "A", Name: "A", Rate: "1", Stock: 3}, "")
	require.NoError(t, err)
	assert.True(t, low.LowStock)

	high, err := svc.CreateProduct(ctx, CreateProductRequest{SKU: "B", Name: "B", Rate: "1", Stock: 30}, "")
	require.NoError(t, err)
	assert.False(t, high.LowStock)
}

func TestDeleteProductIsSoft(t *testing.T) {
	svc, db := newProductService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductRequest{SKU: "DEL-01", Name: "Gone", Rate: "9"}, "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID, ""))

	_, err = svc.GetProduct(ctx, product.ID)
	require.Error(t, err)

	// Row survives with deleted_at set
	var count int64
	require.NoError(t, db.Unscoped().Model(&model.Product{}).Where("sku = ?", "DEL-01").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
