package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"shopbill/internal/billing"
	"shopbill/internal/model"
	"shopbill/internal/notify"
	"shopbill/internal/repository"
	"shopbill/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock movements older than this are rotated into the archive table
const stockLogRetention = 30 * 24 * time.Hour

// --- DTOs ---

type BillItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateBillRequest struct {
	ClientID      string            `json:"client_id"` // Optional: pre-fills customer fields
	CustomerName  string            `json:"customer_name"`
	CustomerGSTIN string            `json:"customer_gstin"`
	CustomerPhone string            `json:"customer_phone"`
	CustomerEmail string            `json:"customer_email"`
	// No binding validation on items: blank lines must reach the
	// calculator's skip policy, and an empty cart must surface as the
	// distinct empty-cart error rather than a generic 400
	Items         []BillItemRequest `json:"items"`
	Discount      *string           `json:"discount"`      // nil means use the shop default
	DiscountType  string            `json:"discount_type"` // fixed or percent
	Tax           *string           `json:"tax"`
	TaxType       string            `json:"tax_type"`
	PaymentMethod string            `json:"payment_method"`
}

type BillItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Rate      string `json:"rate"`
	GSTRate   string `json:"gst_rate"`
	Amount    string `json:"amount"`
}

type BillResponse struct {
	ID             string             `json:"id"`
	BillNumber     string             `json:"bill_number"`
	ClientID       *string            `json:"client_id"`
	CustomerName   string             `json:"customer_name"`
	CustomerGSTIN  string             `json:"customer_gstin,omitempty"`
	CustomerPhone  string             `json:"customer_phone,omitempty"`
	CustomerEmail  string             `json:"customer_email,omitempty"`
	Subtotal       string             `json:"subtotal"`
	Discount       string             `json:"discount"`
	DiscountType   string             `json:"discount_type"`
	DiscountAmount string             `json:"discount_amount"`
	Tax            string             `json:"tax"`
	TaxType        string             `json:"tax_type"`
	TaxAmount      string             `json:"tax_amount"`
	GrandTotal     string             `json:"grand_total"`
	PaymentMethod  string             `json:"payment_method"`
	Notified       bool               `json:"notified"`
	Items          []BillItemResponse `json:"items"`
	ShareURL       string             `json:"share_url,omitempty"`
	CreatedAt      string             `json:"created_at"`
}

type BillFilter struct {
	BillNumber string
	ClientID   string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	Limit      int
}

// PrintableBill is everything the receipt view needs in one payload
type PrintableBill struct {
	Shop     ShopProfile  `json:"shop"`
	Bill     BillResponse `json:"bill"`
	Greeting string       `json:"greeting"`
}

// --- Interface ---

type BillService interface {
	CreateBill(ctx context.Context, req CreateBillRequest, userID string) (BillResponse, []string, error)
	ListBills(ctx context.Context, filter BillFilter) ([]BillResponse, int64, error)
	GetBill(ctx context.Context, id string) (BillResponse, error)
	GetBillByShareToken(ctx context.Context, token string) (PrintableBill, error)
	PrintBill(ctx context.Context, id string) (PrintableBill, error)
	ResendNotification(ctx context.Context, id string) ([]string, error)
}

type billService struct {
	billRepo     repository.BillRepository
	productRepo  repository.ProductRepository
	clientRepo   repository.ClientRepository
	stockLogRepo repository.StockLogRepository
	auditRepo    repository.AuditRepository
	settings     SettingService
	txManager    repository.TransactionManager
	dispatcher   *notify.Dispatcher
	hub          *websocket.Hub
	baseURL      string
}

func NewBillService(
	billRepo repository.BillRepository,
	productRepo repository.ProductRepository,
	clientRepo repository.ClientRepository,
	stockLogRepo repository.StockLogRepository,
	auditRepo repository.AuditRepository,
	settings SettingService,
	txManager repository.TransactionManager,
	dispatcher *notify.Dispatcher,
	hub *websocket.Hub,
	baseURL string,
) BillService {
	return &billService{
		billRepo:     billRepo,
		productRepo:  productRepo,
		clientRepo:   clientRepo,
		stockLogRepo: stockLogRepo,
		auditRepo:    auditRepo,
		settings:     settings,
		txManager:    txManager,
		dispatcher:   dispatcher,
		hub:          hub,
		baseURL:      baseURL,
	}
}

// --- Implementation ---

// CreateBill validates the cart against live stock, persists the bill with
// its items, decrements stock and logs the movements, all in one
// transaction. Notification delivery happens after commit and reports
// failures as warnings rather than errors; a customer not getting a WhatsApp
// message must never un-ring a sale.
func (s *billService) CreateBill(ctx context.Context, req CreateBillRequest, userID string) (BillResponse, []string, error) {
	defaults, err := s.settings.BillingDefaults(ctx)
	if err != nil {
		return BillResponse{}, nil, err
	}

	discount, err := resolveAmountSpec(req.Discount, req.DiscountType, defaults.DiscountPercent, defaults.DiscountType)
	if err != nil {
		return BillResponse{}, nil, fmt.Errorf("invalid discount: %w", err)
	}
	tax, err := resolveAmountSpec(req.Tax, req.TaxType, defaults.TaxPercent, defaults.TaxType)
	if err != nil {
		return BillResponse{}, nil, fmt.Errorf("invalid tax: %w", err)
	}

	bill := model.Bill{
		CustomerName:   req.CustomerName,
		CustomerGSTIN:  req.CustomerGSTIN,
		CustomerPhone:  req.CustomerPhone,
		CustomerEmail:  req.CustomerEmail,
		Discount:       discount.Value,
		DiscountType:   string(discount.Mode),
		Tax:            tax.Value,
		TaxType:        string(tax.Mode),
		PaymentMethod:  req.PaymentMethod,
	}
	if bill.PaymentMethod == "" {
		bill.PaymentMethod = model.PaymentCash
	}

	// A linked client fills any customer field the request left empty,
	// hard-copied so later client edits never rewrite this bill
	if req.ClientID != "" {
		clientID, parseErr := uuid.Parse(req.ClientID)
		if parseErr != nil {
			return BillResponse{}, nil, fmt.Errorf("invalid client_id: %w", parseErr)
		}
		client, findErr := s.clientRepo.FindByID(ctx, clientID)
		if findErr != nil {
			return BillResponse{}, nil, fmt.Errorf("client not found: %w", findErr)
		}
		bill.ClientID = &client.ID
		if bill.CustomerName == "" {
			bill.CustomerName = client.Name
		}
		if bill.CustomerGSTIN == "" {
			bill.CustomerGSTIN = client.GSTIN
		}
		if bill.CustomerPhone == "" {
			bill.CustomerPhone = client.Phone
		}
		if bill.CustomerEmail == "" {
			bill.CustomerEmail = client.Email
		}
	}
	if bill.CustomerName == "" {
		bill.CustomerName = "Walk-in Customer"
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Lock every referenced product so concurrent bills cannot both
		// claim the last units
		products := make(map[string]*model.Product)
		for _, item := range req.Items {
			if item.ProductID == "" || item.Quantity <= 0 {
				continue // calculator skips these too
			}
			if _, seen := products[item.ProductID]; seen {
				continue
			}
			productID, parseErr := uuid.Parse(item.ProductID)
			if parseErr != nil {
				return fmt.Errorf("invalid product_id %q: %w", item.ProductID, parseErr)
			}
			product, findErr := s.productRepo.FindByIDForUpdate(txCtx, productID)
			if findErr != nil {
				return fmt.Errorf("product %s not found: %w", item.ProductID, findErr)
			}
			products[item.ProductID] = product
		}

		lines := make([]billing.LineRequest, 0, len(req.Items))
		stock := make(map[string]billing.StockLevel, len(products))
		for id, p := range products {
			stock[id] = billing.StockLevel{ProductName: p.Name, Available: p.Stock}
		}
		for _, item := range req.Items {
			line := billing.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity}
			if p, ok := products[item.ProductID]; ok {
				line.UnitRate = p.Rate
				line.GSTRate = p.GSTRate
			}
			lines = append(lines, line)
		}

		priced, priceErr := billing.ValidateAndPriceLines(lines, stock)
		if priceErr != nil {
			return priceErr
		}

		totals := billing.ComputeTotals(priced, discount, tax)
		bill.Subtotal = totals.Subtotal
		bill.DiscountAmount = totals.DiscountAmount
		bill.TaxAmount = totals.TaxAmount
		bill.GrandTotal = totals.GrandTotal

		number, numErr := s.generateBillNumber(txCtx)
		if numErr != nil {
			return fmt.Errorf("failed to generate bill number: %w", numErr)
		}
		bill.BillNumber = number

		for _, line := range priced {
			productID, _ := uuid.Parse(line.ProductID)
			bill.Items = append(bill.Items, model.BillItem{
				ProductID: productID,
				Name:      line.Name,
				Quantity:  line.Quantity,
				Rate:      line.UnitRate,
				GSTRate:   line.GSTRate,
				Amount:    line.Amount,
			})
		}

		if createErr := s.billRepo.Create(txCtx, &bill); createErr != nil {
			return fmt.Errorf("failed to create bill: %w", createErr)
		}

		// Decrement stock and record one OUT movement per line
		for _, line := range priced {
			product := products[line.ProductID]
			product.Stock -= line.Quantity
			if updateErr := s.productRepo.UpdateStock(txCtx, product.ID, product.Stock); updateErr != nil {
				return fmt.Errorf("failed to update stock for %s: %w", product.Name, updateErr)
			}
			logEntry := model.StockLog{
				ProductID:  product.ID,
				ChangeType: model.StockChangeOut,
				Quantity:   line.Quantity,
				StockAfter: product.Stock,
				Reference:  "Bill: " + bill.BillNumber,
			}
			if logErr := s.stockLogRepo.Create(txCtx, &logEntry); logErr != nil {
				return fmt.Errorf("failed to log stock movement: %w", logErr)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"bill_number": bill.BillNumber,
			"grand_total": bill.GrandTotal.StringFixed(2),
			"items":       len(bill.Items),
		})
		audit := model.AuditLog{
			Action:     model.ActionCreateBill,
			EntityID:   bill.ID.String(),
			EntityName: bill.BillNumber,
			Details:    string(details),
		}
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			audit.UserID = &parsed
		}
		return s.auditRepo.Log(txCtx, &audit)
	})
	if err != nil {
		return BillResponse{}, nil, err
	}

	s.hub.Publish(websocket.EventBillCreated, map[string]string{
		"bill_number": bill.BillNumber,
		"grand_total": bill.GrandTotal.StringFixed(2),
	})
	s.hub.Publish(websocket.EventStockUpdated, map[string]int{"lines": len(bill.Items)})

	warnings := s.notifyCustomer(ctx, &bill)

	// Opportunistic housekeeping: rotate stock movements past retention.
	// Failure here is logged, never surfaced to the sale.
	if _, archiveErr := s.stockLogRepo.ArchiveOlderThan(ctx, time.Now().Add(-stockLogRetention)); archiveErr != nil {
		log.Printf("stock log archival failed: %v", archiveErr)
	}

	return s.toBillResponse(bill), warnings, nil
}

func (s *billService) notifyCustomer(ctx context.Context, bill *model.Bill) []string {
	summary := notify.BillSummary{
		BillNumber:    bill.BillNumber,
		CustomerName:  bill.CustomerName,
		CustomerPhone: bill.CustomerPhone,
		CustomerEmail: bill.CustomerEmail,
		GrandTotal:    bill.GrandTotal.StringFixed(2),
		ShareURL:      s.shareURL(bill.ShareToken),
	}

	warnings := s.dispatcher.Dispatch(ctx, summary)
	if len(warnings) == 0 {
		if err := s.billRepo.MarkNotified(ctx, bill.ID, true); err != nil {
			log.Printf("failed to mark bill %s notified: %v", bill.BillNumber, err)
		} else {
			bill.Notified = true
		}
	}
	return warnings
}

func (s *billService) ListBills(ctx context.Context, filter BillFilter) ([]BillResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	bills, total, err := s.billRepo.List(ctx, repository.BillListFilter{
		BillNumber: filter.BillNumber,
		ClientID:   filter.ClientID,
		StartDate:  filter.StartDate,
		EndDate:    filter.EndDate,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch bills: %w", err)
	}

	result := make([]BillResponse, 0, len(bills))
	for _, bill := range bills {
		result = append(result, s.toBillResponse(bill))
	}
	return result, total, nil
}

func (s *billService) GetBill(ctx context.Context, id string) (BillResponse, error) {
	billID, err := uuid.Parse(id)
	if err != nil {
		return BillResponse{}, fmt.Errorf("invalid bill id: %w", err)
	}

	bill, err := s.billRepo.FindByIDWithItems(ctx, billID)
	if err != nil {
		return BillResponse{}, fmt.Errorf("bill not found: %w", err)
	}
	return s.toBillResponse(*bill), nil
}

// GetBillByShareToken serves the public receipt page. The token is the only
// credential, so an unparseable one gets the same "not found" as a wrong one.
func (s *billService) GetBillByShareToken(ctx context.Context, token string) (PrintableBill, error) {
	parsed, err := uuid.Parse(token)
	if err != nil {
		return PrintableBill{}, fmt.Errorf("bill not found")
	}

	bill, err := s.billRepo.FindByShareToken(ctx, parsed)
	if err != nil {
		return PrintableBill{}, fmt.Errorf("bill not found")
	}
	return s.toPrintable(ctx, *bill)
}

func (s *billService) PrintBill(ctx context.Context, id string) (PrintableBill, error) {
	billID, err := uuid.Parse(id)
	if err != nil {
		return PrintableBill{}, fmt.Errorf("invalid bill id: %w", err)
	}

	bill, err := s.billRepo.FindByIDWithItems(ctx, billID)
	if err != nil {
		return PrintableBill{}, fmt.Errorf("bill not found: %w", err)
	}
	return s.toPrintable(ctx, *bill)
}

func (s *billService) ResendNotification(ctx context.Context, id string) ([]string, error) {
	billID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid bill id: %w", err)
	}

	bill, err := s.billRepo.FindByID(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("bill not found: %w", err)
	}
	return s.notifyCustomer(ctx, bill), nil
}

func (s *billService) generateBillNumber(ctx context.Context) (string, error) {
	prefix := "BILL-" + time.Now().Format("20060102") + "-"

	count, err := s.billRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (s *billService) shareURL(token uuid.UUID) string {
	return s.baseURL + "/api/bills/shared/" + token.String()
}

func (s *billService) toPrintable(ctx context.Context, bill model.Bill) (PrintableBill, error) {
	shop, err := s.settings.ShopProfile(ctx)
	if err != nil {
		return PrintableBill{}, err
	}
	return PrintableBill{
		Shop:     shop,
		Bill:     s.toBillResponse(bill),
		Greeting: billing.Greeting(time.Now()),
	}, nil
}

// --- Helpers ---

// resolveAmountSpec parses an optional request value or falls back to the
// shop default. An explicit value with no mode inherits the default mode.
func resolveAmountSpec(value *string, mode string, defaultValue decimal.Decimal, defaultMode billing.Mode) (billing.AmountSpec, error) {
	spec := billing.AmountSpec{Value: defaultValue, Mode: defaultMode}
	if mode != "" {
		spec.Mode = billing.ParseMode(mode)
	}
	if value != nil {
		parsed, err := decimal.NewFromString(*value)
		if err != nil {
			return billing.AmountSpec{}, err
		}
		if parsed.IsNegative() {
			return billing.AmountSpec{}, fmt.Errorf("value must not be negative")
		}
		spec.Value = parsed
	}
	return spec, nil
}

// --- Mapping ---

func (s *billService) toBillResponse(bill model.Bill) BillResponse {
	resp := BillResponse{
		ID:             bill.ID.String(),
		BillNumber:     bill.BillNumber,
		CustomerName:   bill.CustomerName,
		CustomerGSTIN:  bill.CustomerGSTIN,
		CustomerPhone:  bill.CustomerPhone,
		CustomerEmail:  bill.CustomerEmail,
		Subtotal:       bill.Subtotal.StringFixed(2),
		Discount:       bill.Discount.StringFixed(2),
		DiscountType:   bill.DiscountType,
		DiscountAmount: bill.DiscountAmount.StringFixed(2),
		Tax:            bill.Tax.StringFixed(2),
		TaxType:        bill.TaxType,
		TaxAmount:      bill.TaxAmount.StringFixed(2),
		GrandTotal:     bill.GrandTotal.StringFixed(2),
		PaymentMethod:  bill.PaymentMethod,
		Notified:       bill.Notified,
		ShareURL:       s.shareURL(bill.ShareToken),
		CreatedAt:      bill.CreatedAt.Format(time.RFC3339),
	}

	if bill.ClientID != nil {
		id := bill.ClientID.String()
		resp.ClientID = &id
	}

	resp.Items = make([]BillItemResponse, 0, len(bill.Items))
	for _, item := range bill.Items {
		resp.Items = append(resp.Items, BillItemResponse{
			ProductID: item.ProductID.String(),
			Name:      item.Name,
			Quantity:  item.Quantity,
			Rate:      item.Rate.StringFixed(2),
			GSTRate:   item.GSTRate.StringFixed(2),
			Amount:    item.Amount.StringFixed(2),
		})
	}

	return resp
}
