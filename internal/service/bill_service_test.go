package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shopbill/internal/billing"
	"shopbill/internal/database"
	"shopbill/internal/model"
	"shopbill/internal/notify"
	"shopbill/internal/repository"
	"shopbill/internal/websocket"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db           *gorm.DB
	billService  BillService
	productRepo  repository.ProductRepository
	stockLogRepo repository.StockLogRepository
	settingRepo  repository.SettingRepository
	userID       string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	txManager := repository.NewTransactionManager(db)
	productRepo := repository.NewProductRepository(db)
	stockLogRepo := repository.NewStockLogRepository(db)
	clientRepo := repository.NewClientRepository(db)
	billRepo := repository.NewBillRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)

	ctx := context.Background()
	require.NoError(t, settingRepo.SeedDefaults(ctx, DefaultSettings()))

	user := &model.User{Username: "cashier", Email: "cashier@example.com", Password: "x", Role: model.RoleStaff}
	require.NoError(t, userRepo.Create(ctx, user))

	settingService := NewSettingService(settingRepo, auditRepo, txManager)
	billService := NewBillService(
		billRepo, productRepo, clientRepo, stockLogRepo, auditRepo,
		settingService, txManager,
		notify.NewDispatcher(), websocket.NewHub(),
		"http://localhost:8080",
	)

	return &testEnv{
		db:           db,
		billService:  billService,
		productRepo:  productRepo,
		stockLogRepo: stockLogRepo,
		settingRepo:  settingRepo,
		userID:       user.ID.String(),
	}
}

func (e *testEnv) addProduct(t *testing.T, name, rate string, stock int) *model.Product {
	t.Helper()
	r, err := decimal.NewFromString(rate)
	require.NoError(t, err)
	p := &model.Product{
		SKU:     fmt.Sprintf("SKU-%s-%d", name, time.Now().UnixNano()),
		Name:    name,
		Rate:    r,
		GSTRate: decimal.NewFromInt(18),
		Stock:   stock,
	}
	require.NoError(t, e.productRepo.Create(context.Background(), p))
	return p
}

func strPtr(s string) *string { return &s }

func TestCreateBillComputesTotalsAndDecrementsStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pen := env.addProduct(t, "Pen", "100", 10)

	bill, warnings, err := env.billService.CreateBill(ctx, CreateBillRequest{
		CustomerName: "Asha",
		Items: []BillItemRequest{
			{ProductID: pen.ID.String(), Quantity: 2},
		},
		Discount:     strPtr("10"),
		DiscountType: "percent",
		Tax:          strPtr("18"),
		TaxType:      "percent",
	}, env.userID)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "200.00", bill.Subtotal)
	assert.Equal(t, "20.00", bill.DiscountAmount)
	assert.Equal(t, "32.40", bill.TaxAmount)
	assert.Equal(t, "212.40", bill.GrandTotal)
	assert.Equal(t, "Asha", bill.CustomerName)
	assert.Equal(t, model.PaymentCash, bill.PaymentMethod)
	assert.True(t, bill.Notified)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, "Pen", bill.Items[0].Name)
	assert.Equal(t, 2, bill.Items[0].Quantity)

	expectedPrefix := "BILL-" + time.Now().Format("20060102") + "-0001"
	assert.Equal(t, expectedPrefix, bill.BillNumber)

	// Stock decremented and movement logged
	reloaded, err := env.productRepo.FindByID(ctx, pen.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, reloaded.Stock)

	logs, total, err := env.stockLogRepo.List(ctx, pen.ID.String(), 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.StockChangeOut, logs[0].ChangeType)
	assert.Equal(t, 2, logs[0].Quantity)
	assert.Equal(t, 8, logs[0].StockAfter)
	assert.Equal(t, "Bill: "+bill.BillNumber, logs[0].Reference)
}

func TestCreateBillNumbersAreSequentialPerDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pen := env.addProduct(t, "Pen", "50", 100)

	first, _, err := env.billService.CreateBill(ctx, CreateBillRequest{
		Items: []BillItemRequest{{ProductID: pen.ID.String(), Quantity: 1}},
		Discount: strPtr("0"), Tax: strPtr("0"),
	}, env.userID)
	require.NoError(t, err)

	second, _, err := env.billService.CreateBill(ctx, CreateBillRequest{
		Items: []BillItemRequest{{ProductID: pen.ID.String(), Quantity: 1}},
		Discount: strPtr("0"), Tax: strPtr("0"),
	}, env.userID)
	require.NoError(t, err)

	today := time.Now().Format("20060102")
	assert.Equal(t, "BILL-"+today+"-0001", first.BillNumber)
	assert.Equal(t, "BILL-"+today+"-0002", second.BillNumber)
	assert.Equal(t, "Walk-in Customer", first.CustomerName)
}

func TestCreateBillRejectsWholeCartOnShortfall(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pen := env.addProduct(t, "Pen", "100", 10)
	book := env.addProduct(t, "Book", "250", 3)
	ink := env.addProduct(t, "Ink", "80", 0)

	_, _, err := env.billService.CreateBill(ctx, CreateBillRequest{
		Items: []BillItemRequest{
			{ProductID: pen.ID.String(), Quantity: 5},  // fine
			{ProductID: book.ID.String(), Quantity: 4}, // exceeds stock
			{ProductID: ink.ID.String(), Quantity: 1},  // out of stock
		},
	}, env.userID)
	require.Error(t, err)

	var shortfall *billing.StockShortfallError
	require.ErrorAs(t, err, &shortfall)
	require.Len(t, shortfall.Shortfalls, 2)
	assert.Equal(t, "Book", shortfall.Shortfalls[0].ProductName)
	assert.Equal(t, 4, shortfall.Shortfalls[0].Requested)
	assert.Equal(t, 3, shortfall.Shortfalls[0].Available)
	assert.Equal(t, "Ink", shortfall.Shortfalls[1].ProductName)

	// All-or-nothing: the passing line must not have shipped either
	reloaded, err := env.productRepo.FindByID(ctx, pen.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.Stock)

	var billCount int64
	require.NoError(t, env.db.Model(&model.Bill{}).Count(&billCount).Error)
	assert.Zero(t, billCount)
}

func TestCreateBillEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		items []BillItemRequest
	}{
		{"no items", nil},
		{"only blank lines", []BillItemRequest{{ProductID: "", Quantity: 5}, {ProductID: "ignored", Quantity: 0}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := env.billService.CreateBill(ctx, CreateBillRequest{Items: tc.items}, env.userID)
			require.ErrorIs(t, err, billing.ErrEmptyCart)
		})
	}
}

func TestCreateBillSkipsBlankLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pen := env.addProduct(t, "Pen", "100", 10)

	bill, _, err := env.billService.CreateBill(ctx, CreateBillRequest{
		Items: []BillItemRequest{
			{ProductID: "", Quantity: 3},
			{ProductID: pen.ID.String(), Quantity: 1},
			{ProductID: pen.ID.String(), Quantity: 0},
		},
		Discount: strPtr("0"), Tax: strPtr("0"),
	}, env.userID)
	require.NoError(t, err)

	require.Len(t, bill.Items, 1)
	assert.Equal(t, "100.00", bill.GrandTotal)
}

func TestCreateBillFixedDiscountCanExceedSubtotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pen := env.addProduct(t, "Pen", "100", 10)

	bill, _, err := env.billService.CreateBill(ctx, CreateBillRequest{
		Items:    []BillItemRequest{{ProductID: pen.ID.String(), Quantity: 1}},
		Discount: strPtr("150"), DiscountType: "fixed",
		Tax: strPtr("0"),
	}, env.userID)
	require.NoError(t, err)

	// No clamping: the stored grand total goes negative
	assert.Equal(t, "-50.00", bill.GrandTotal)
}

func TestCreateBillUsesShopDefaultsWhenUnset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pen := env.addProduct(t, "Pen", "100", 10)

	// Shop defaults: fixed 5 discount, fixed 10 tax
	bill, _, err := env.billService.CreateBill(ctx, CreateBillRequest{
		Items: []BillItemRequest{{ProductID: pen.ID.String(), Quantity: 2}},
	}, env.userID)
	require.NoError(t, err)

	assert.Equal(t, "200.00", bill.Subtotal)
	assert.Equal(t, "5.00", bill.DiscountAmount)
	assert.Equal(t, "10.00", bill.TaxAmount)
	assert.Equal(t, "205.00", bill.GrandTotal)
	assert.Equal(t, model.AmountModeFixed, bill.DiscountType)
	assert.Equal(t, model.AmountModeFixed, bill.TaxType)
}

func TestCreateBillPrefillsCustomerFromClient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	clientRepo := repository.NewClientRepository(env.db)
	client := &model.Client{Name: "Ravi Traders", Phone: "9999999999", Email: "ravi@example.com", GSTIN: "29ABCDE1234F1Z5"}
	require.NoError(t, clientRepo.Create(ctx, client))

	pen := env.addProduct(t, "Pen", "100", 10)

	bill, _, err := env.billService.CreateBill(ctx, CreateBillRequest{
		ClientID: client.ID.String(),
		Items:    []BillItemRequest{{ProductID: pen.ID.String(), Quantity: 1}},
		Discount: strPtr("0"), Tax: strPtr("0"),
	}, env.userID)
	require.NoError(t, err)

	assert.Equal(t, "Ravi Traders", bill.CustomerName)
	assert.Equal(t, "9999999999", bill.CustomerPhone)
	assert.Equal(t, "29ABCDE1234F1Z5", bill.CustomerGSTIN)
	require.NotNil(t, bill.ClientID)
	assert.Equal(t, client.ID.String(), *bill.ClientID)
}

func TestCreateBillRejectsNegativeDiscount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pen := env.addProduct(t, "Pen", "100", 10)

	_, _, err := env.billService.CreateBill(ctx, CreateBillRequest{
		Items:    []BillItemRequest{{ProductID: pen.ID.String(), Quantity: 1}},
		Discount: strPtr("-5"),
	}, env.userID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid discount")
}

func TestGetBillByShareToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pen := env.addProduct(t, "Pen", "100", 10)

	bill, _, err := env.billService.CreateBill(ctx, CreateBillRequest{
		Items:    []BillItemRequest{{ProductID: pen.ID.String(), Quantity: 1}},
		Discount: strPtr("0"), Tax: strPtr("0"),
	}, env.userID)
	require.NoError(t, err)

	var stored model.Bill
	require.NoError(t, env.db.First(&stored, "bill_number = ?", bill.BillNumber).Error)

	printable, err := env.billService.GetBillByShareToken(ctx, stored.ShareToken.String())
	require.NoError(t, err)
	assert.Equal(t, bill.BillNumber, printable.Bill.BillNumber)
	assert.Equal(t, "My Shop", printable.Shop.Name)
	assert.NotEmpty(t, printable.Greeting)

	_, err = env.billService.GetBillByShareToken(ctx, "not-a-token")
	require.Error(t, err)
}
