package service

import (
	"context"
	"fmt"
	"time"

	"shopbill/internal/repository"
)

// --- DTOs ---

type SalesSummaryResponse struct {
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	BillCount  int64  `json:"bill_count"`
	Subtotal   string `json:"subtotal"`
	Discount   string `json:"discount"`
	Tax        string `json:"tax"`
	GrandTotal string `json:"grand_total"`
}

type TopProductResponse struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	QuantitySold int64  `json:"quantity_sold"`
	Revenue      string `json:"revenue"`
}

type PaymentBreakdownResponse struct {
	PaymentMethod string `json:"payment_method"`
	BillCount     int64  `json:"bill_count"`
	GrandTotal    string `json:"grand_total"`
}

// --- Interface ---

type ReportService interface {
	SalesSummary(ctx context.Context, start, end time.Time) (SalesSummaryResponse, error)
	TopProducts(ctx context.Context, start, end time.Time, limit int) ([]TopProductResponse, error)
	PaymentBreakdown(ctx context.Context, start, end time.Time) ([]PaymentBreakdownResponse, error)
	LowStock(ctx context.Context) ([]ProductResponse, error)
}

type reportService struct {
	reportRepo repository.ReportRepository
	settings   SettingService
}

func NewReportService(reportRepo repository.ReportRepository, settings SettingService) ReportService {
	return &reportService{reportRepo: reportRepo, settings: settings}
}

// --- Implementation ---

func (s *reportService) SalesSummary(ctx context.Context, start, end time.Time) (SalesSummaryResponse, error) {
	totals, err := s.reportRepo.SalesTotals(ctx, start, end)
	if err != nil {
		return SalesSummaryResponse{}, fmt.Errorf("failed to compute sales summary: %w", err)
	}

	return SalesSummaryResponse{
		StartDate:  start.Format("2006-01-02"),
		EndDate:    end.Format("2006-01-02"),
		BillCount:  totals.BillCount,
		Subtotal:   totals.Subtotal.StringFixed(2),
		Discount:   totals.Discount.StringFixed(2),
		Tax:        totals.Tax.StringFixed(2),
		GrandTotal: totals.GrandTotal.StringFixed(2),
	}, nil
}

func (s *reportService) TopProducts(ctx context.Context, start, end time.Time, limit int) ([]TopProductResponse, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.reportRepo.TopProducts(ctx, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top products: %w", err)
	}

	result := make([]TopProductResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, TopProductResponse{
			ProductID:    row.ProductID,
			Name:         row.Name,
			QuantitySold: row.QuantitySold,
			Revenue:      row.Revenue.StringFixed(2),
		})
	}
	return result, nil
}

func (s *reportService) PaymentBreakdown(ctx context.Context, start, end time.Time) ([]PaymentBreakdownResponse, error) {
	rows, err := s.reportRepo.PaymentBreakdown(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to compute payment breakdown: %w", err)
	}

	result := make([]PaymentBreakdownResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, PaymentBreakdownResponse{
			PaymentMethod: row.PaymentMethod,
			BillCount:     row.BillCount,
			GrandTotal:    row.GrandTotal.StringFixed(2),
		})
	}
	return result, nil
}

func (s *reportService) LowStock(ctx context.Context) ([]ProductResponse, error) {
	threshold := s.settings.LowStockThreshold(ctx)

	products, err := s.reportRepo.LowStockProducts(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch low stock products: %w", err)
	}

	result := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		result = append(result, toProductResponseWithThreshold(p, threshold))
	}
	return result, nil
}
