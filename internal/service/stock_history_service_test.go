package service

import (
	"context"
	"testing"
	"time"

	"shopbill/internal/model"
	"shopbill/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearHistoryDeletesAndAudits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pen := env.addProduct(t, "Pen", "100", 10)
	_, _, err := env.billService.CreateBill(ctx, CreateBillRequest{
		Items:    []BillItemRequest{{ProductID: pen.ID.String(), Quantity: 2}},
		Discount: strPtr("0"), Tax: strPtr("0"),
	}, env.userID)
	require.NoError(t, err)

	auditRepo := repository.NewAuditRepository(env.db)
	svc := NewStockHistoryService(env.stockLogRepo, auditRepo, repository.NewTransactionManager(env.db))

	movements, total, err := svc.ListMovements(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Pen", movements[0].ProductName)

	deleted, err := svc.ClearHistory(ctx, env.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, total, err = svc.ListMovements(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	var auditCount int64
	require.NoError(t, env.db.Model(&model.AuditLog{}).
		Where("action = ?", model.ActionClearStockHistory).Count(&auditCount).Error)
	assert.EqualValues(t, 1, auditCount)
}

func TestArchiveOldMovements(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pen := env.addProduct(t, "Pen", "100", 10)

	old := model.StockLog{
		ProductID:  pen.ID,
		ChangeType: model.StockChangeIn,
		Quantity:   10,
		StockAfter: 10,
		Reference:  "Opening stock",
	}
	require.NoError(t, env.stockLogRepo.Create(ctx, &old))
	// Backdate past the retention window
	require.NoError(t, env.db.Model(&model.StockLog{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-45*24*time.Hour)).Error)

	recent := model.StockLog{
		ProductID:  pen.ID,
		ChangeType: model.StockChangeOut,
		Quantity:   2,
		StockAfter: 8,
	}
	require.NoError(t, env.stockLogRepo.Create(ctx, &recent))

	svc := NewStockHistoryService(env.stockLogRepo, repository.NewAuditRepository(env.db), repository.NewTransactionManager(env.db))

	archived, err := svc.ArchiveOldMovements(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, archived)

	// Hot table keeps only the recent entry
	_, total, err := svc.ListMovements(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	var archiveRows []model.StockLogArchive
	require.NoError(t, env.db.Find(&archiveRows).Error)
	require.Len(t, archiveRows, 1)
	assert.Equal(t, old.ID, archiveRows[0].ID)
	assert.Equal(t, "Opening stock", archiveRows[0].Reference)

	// Idempotent on a second run
	archived, err = svc.ArchiveOldMovements(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, archived)
}
