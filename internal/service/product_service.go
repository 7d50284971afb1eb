package service

import (
	"context"
	"encoding/json"
	"fmt"

	"shopbill/internal/model"
	"shopbill/internal/repository"
	"shopbill/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateProductRequest struct {
	SKU     string `json:"sku" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Rate    string `json:"rate" binding:"required"`
	GSTRate string `json:"gst_rate"`
	Stock   int    `json:"stock"`
}

type UpdateProductRequest struct {
	SKU     *string `json:"sku"`
	Name    *string `json:"name"`
	Rate    *string `json:"rate"`
	GSTRate *string `json:"gst_rate"`
}

// AdjustStockRequest records a manual stock movement. IN receives stock,
// OUT removes it, ADJUST sets the absolute level after a physical count.
type AdjustStockRequest struct {
	ChangeType string `json:"change_type" binding:"required,oneof=IN OUT ADJUST"`
	Quantity   int    `json:"quantity" binding:"required"`
	Reference  string `json:"reference"`
}

type ProductResponse struct {
	ID       string `json:"id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Rate     string `json:"rate"`
	GSTRate  string `json:"gst_rate"`
	Stock    int    `json:"stock"`
	LowStock bool   `json:"low_stock"`
}

type ProductFilter struct {
	Search      string
	InStockOnly bool
	Page        int
	Limit       int
}

// --- Interface ---

type ProductService interface {
	CreateProduct(ctx context.Context, req CreateProductRequest, userID string) (ProductResponse, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest, userID string) (ProductResponse, error)
	DeleteProduct(ctx context.Context, id string, userID string) error
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]ProductResponse, int64, error)
	AdjustStock(ctx context.Context, id string, req AdjustStockRequest, userID string) (ProductResponse, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	stockLogRepo repository.StockLogRepository
	auditRepo    repository.AuditRepository
	settings     SettingService
	txManager    repository.TransactionManager
	hub          *websocket.Hub
}

func NewProductService(
	productRepo repository.ProductRepository,
	stockLogRepo repository.StockLogRepository,
	auditRepo repository.AuditRepository,
	settings SettingService,
	txManager repository.TransactionManager,
	hub *websocket.Hub,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		stockLogRepo: stockLogRepo,
		auditRepo:    auditRepo,
		settings:     settings,
		txManager:    txManager,
		hub:          hub,
	}
}

// --- Implementation ---

func (s *productService) CreateProduct(ctx context.Context, req CreateProductRequest, userID string) (ProductResponse, error) {
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid rate: %w", err)
	}
	if rate.IsNegative() {
		return ProductResponse{}, fmt.Errorf("rate must not be negative")
	}

	gstRate := decimal.Zero
	if req.GSTRate != "" {
		gstRate, err = decimal.NewFromString(req.GSTRate)
		if err != nil {
			return ProductResponse{}, fmt.Errorf("invalid gst_rate: %w", err)
		}
	}

	if req.Stock < 0 {
		return ProductResponse{}, fmt.Errorf("stock must not be negative")
	}

	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return ProductResponse{}, fmt.Errorf("a product with SKU %s already exists", req.SKU)
	}

	product := model.Product{
		SKU:     req.SKU,
		Name:    req.Name,
		Rate:    rate,
		GSTRate: gstRate,
		Stock:   req.Stock,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.productRepo.Create(txCtx, &product); createErr != nil {
			return fmt.Errorf("failed to create product: %w", createErr)
		}

		// Opening stock is a movement too, so history starts at the truth
		if product.Stock > 0 {
			entry := model.StockLog{
				ProductID:  product.ID,
				ChangeType: model.StockChangeIn,
				Quantity:   product.Stock,
				StockAfter: product.Stock,
				Reference:  "Opening stock",
			}
			if logErr := s.stockLogRepo.Create(txCtx, &entry); logErr != nil {
				return fmt.Errorf("failed to log opening stock: %w", logErr)
			}
		}

		return s.audit(txCtx, userID, model.ActionCreateProduct, product.ID.String(), product.Name, map[string]interface{}{
			"sku": product.SKU, "stock": product.Stock,
		})
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return s.toProductResponse(ctx, product), nil
}

func (s *productService) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest, userID string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("product not found: %w", err)
	}

	if req.SKU != nil && *req.SKU != product.SKU {
		if _, skuErr := s.productRepo.FindBySKU(ctx, *req.SKU); skuErr == nil {
			return ProductResponse{}, fmt.Errorf("a product with SKU %s already exists", *req.SKU)
		}
		product.SKU = *req.SKU
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Rate != nil {
		rate, parseErr := decimal.NewFromString(*req.Rate)
		if parseErr != nil {
			return ProductResponse{}, fmt.Errorf("invalid rate: %w", parseErr)
		}
		if rate.IsNegative() {
			return ProductResponse{}, fmt.Errorf("rate must not be negative")
		}
		product.Rate = rate
	}
	if req.GSTRate != nil {
		gstRate, parseErr := decimal.NewFromString(*req.GSTRate)
		if parseErr != nil {
			return ProductResponse{}, fmt.Errorf("invalid gst_rate: %w", parseErr)
		}
		product.GSTRate = gstRate
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.productRepo.Update(txCtx, product); updateErr != nil {
			return fmt.Errorf("failed to update product: %w", updateErr)
		}
		return s.audit(txCtx, userID, model.ActionUpdateProduct, product.ID.String(), product.Name, nil)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return s.toProductResponse(ctx, *product), nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string, userID string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("product not found: %w", err)
	}

	// Soft delete keeps historical bill lines resolvable
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.productRepo.Delete(txCtx, productID); delErr != nil {
			return fmt.Errorf("failed to delete product: %w", delErr)
		}
		return s.audit(txCtx, userID, model.ActionDeleteProduct, product.ID.String(), product.Name, nil)
	})
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("product not found: %w", err)
	}
	return s.toProductResponse(ctx, *product), nil
}

func (s *productService) ListProducts(ctx context.Context, filter ProductFilter) ([]ProductResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	products, total, err := s.productRepo.List(ctx, filter.Page, filter.Limit, filter.Search, filter.InStockOnly)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	threshold := s.settings.LowStockThreshold(ctx)
	result := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		result = append(result, toProductResponseWithThreshold(p, threshold))
	}
	return result, total, nil
}

func (s *productService) AdjustStock(ctx context.Context, id string, req AdjustStockRequest, userID string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid product id: %w", err)
	}
	if req.Quantity < 0 {
		return ProductResponse{}, fmt.Errorf("quantity must not be negative")
	}

	var product *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		product, findErr = s.productRepo.FindByIDForUpdate(txCtx, productID)
		if findErr != nil {
			return fmt.Errorf("product not found: %w", findErr)
		}

		switch req.ChangeType {
		case model.StockChangeIn:
			product.Stock += req.Quantity
		case model.StockChangeOut:
			if req.Quantity > product.Stock {
				return fmt.Errorf("cannot remove %d units: only %d in stock", req.Quantity, product.Stock)
			}
			product.Stock -= req.Quantity
		case model.StockChangeAdjust:
			product.Stock = req.Quantity
		default:
			return fmt.Errorf("unknown change type: %s", req.ChangeType)
		}

		if updateErr := s.productRepo.UpdateStock(txCtx, product.ID, product.Stock); updateErr != nil {
			return fmt.Errorf("failed to update stock: %w", updateErr)
		}

		reference := req.Reference
		if reference == "" {
			reference = "Manual adjustment"
		}
		entry := model.StockLog{
			ProductID:  product.ID,
			ChangeType: req.ChangeType,
			Quantity:   req.Quantity,
			StockAfter: product.Stock,
			Reference:  reference,
		}
		if logErr := s.stockLogRepo.Create(txCtx, &entry); logErr != nil {
			return fmt.Errorf("failed to log stock movement: %w", logErr)
		}

		return s.audit(txCtx, userID, model.ActionAdjustStock, product.ID.String(), product.Name, map[string]interface{}{
			"change_type": req.ChangeType, "quantity": req.Quantity, "stock_after": product.Stock,
		})
	})
	if err != nil {
		return ProductResponse{}, err
	}

	s.hub.Publish(websocket.EventStockUpdated, map[string]interface{}{
		"product_id": product.ID.String(),
		"stock":      product.Stock,
	})

	return s.toProductResponse(ctx, *product), nil
}

// --- Helpers ---

func (s *productService) audit(ctx context.Context, userID, action, entityID, entityName string, details map[string]interface{}) error {
	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
	}
	if details != nil {
		payload, _ := json.Marshal(details)
		entry.Details = string(payload)
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	return s.auditRepo.Log(ctx, &entry)
}

// --- Mapping ---

func (s *productService) toProductResponse(ctx context.Context, p model.Product) ProductResponse {
	return toProductResponseWithThreshold(p, s.settings.LowStockThreshold(ctx))
}

func toProductResponseWithThreshold(p model.Product, threshold int) ProductResponse {
	return ProductResponse{
		ID:       p.ID.String(),
		SKU:      p.SKU,
		Name:     p.Name,
		Rate:     p.Rate.StringFixed(2),
		GSTRate:  p.GSTRate.StringFixed(2),
		Stock:    p.Stock,
		LowStock: p.Stock <= threshold,
	}
}
