package service

import (
	"context"
	"fmt"
	"time"

	"shopbill/internal/model"
	"shopbill/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type StockLogResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ChangeType  string `json:"change_type"`
	Quantity    int    `json:"quantity"`
	StockAfter  int    `json:"stock_after"`
	Reference   string `json:"reference,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// --- Interface ---

type StockHistoryService interface {
	ListMovements(ctx context.Context, productID string, page, limit int) ([]StockLogResponse, int64, error)
	ClearHistory(ctx context.Context, userID string) (int64, error)
	ArchiveOldMovements(ctx context.Context, olderThan time.Duration) (int64, error)
}

type stockHistoryService struct {
	stockLogRepo repository.StockLogRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewStockHistoryService(
	stockLogRepo repository.StockLogRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) StockHistoryService {
	return &stockHistoryService{
		stockLogRepo: stockLogRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// --- Implementation ---

func (s *stockHistoryService) ListMovements(ctx context.Context, productID string, page, limit int) ([]StockLogResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	logs, total, err := s.stockLogRepo.List(ctx, productID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch stock history: %w", err)
	}

	result := make([]StockLogResponse, 0, len(logs))
	for _, entry := range logs {
		result = append(result, StockLogResponse{
			ID:          entry.ID.String(),
			ProductID:   entry.ProductID.String(),
			ProductName: entry.Product.Name,
			ChangeType:  entry.ChangeType,
			Quantity:    entry.Quantity,
			StockAfter:  entry.StockAfter,
			Reference:   entry.Reference,
			CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, total, nil
}

// ClearHistory wipes the hot movement table. Archived rows are untouched.
func (s *stockHistoryService) ClearHistory(ctx context.Context, userID string) (int64, error) {
	var deleted int64
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var delErr error
		deleted, delErr = s.stockLogRepo.DeleteAll(txCtx)
		if delErr != nil {
			return fmt.Errorf("failed to clear stock history: %w", delErr)
		}

		entry := model.AuditLog{
			Action:  model.ActionClearStockHistory,
			Details: fmt.Sprintf(`{"deleted":%d}`, deleted),
		}
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			entry.UserID = &parsed
		}
		return s.auditRepo.Log(txCtx, &entry)
	})
	return deleted, err
}

// ArchiveOldMovements rotates entries past the retention window into the
// archive table. Also called opportunistically after each new bill.
func (s *stockHistoryService) ArchiveOldMovements(ctx context.Context, olderThan time.Duration) (int64, error) {
	var archived int64
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var archErr error
		archived, archErr = s.stockLogRepo.ArchiveOlderThan(txCtx, time.Now().Add(-olderThan))
		return archErr
	})
	if err != nil {
		return 0, fmt.Errorf("failed to archive stock history: %w", err)
	}
	return archived, nil
}
