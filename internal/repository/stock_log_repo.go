package repository

import (
	"context"
	"time"

	"shopbill/internal/model"

	"gorm.io/gorm"
)

type StockLogRepository interface {
	Create(ctx context.Context, entry *model.StockLog) error
	List(ctx context.Context, productID string, page, limit int) ([]model.StockLog, int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type stockLogRepository struct {
	db *gorm.DB
}

func NewStockLogRepository(db *gorm.DB) StockLogRepository {
	return &stockLogRepository{db: db}
}

func (r *stockLogRepository) Create(ctx context.Context, entry *model.StockLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *stockLogRepository) List(ctx context.Context, productID string, page, limit int) ([]model.StockLog, int64, error) {
	var logs []model.StockLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockLog{})
	if productID != "" {
		db = db.Where("product_id = ?", productID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Product").Order("created_at desc").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *stockLogRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := GetDB(ctx, r.db).Where("1 = 1").Delete(&model.StockLog{})
	return res.RowsAffected, res.Error
}

// ArchiveOlderThan moves entries created before the cutoff into the archive
// table and removes them from the hot table. Runs inside the ambient
// transaction if one is present.
func (r *stockLogRepository) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	db := GetDB(ctx, r.db)

	var old []model.StockLog
	if err := db.Where("created_at < ?", cutoff).Find(&old).Error; err != nil {
		return 0, err
	}
	if len(old) == 0 {
		return 0, nil
	}

	archived := make([]model.StockLogArchive, 0, len(old))
	for _, entry := range old {
		archived = append(archived, model.StockLogArchive{
			ID:         entry.ID,
			ProductID:  entry.ProductID,
			ChangeType: entry.ChangeType,
			Quantity:   entry.Quantity,
			StockAfter: entry.StockAfter,
			Reference:  entry.Reference,
			CreatedAt:  entry.CreatedAt,
		})
	}

	if err := db.Create(&archived).Error; err != nil {
		return 0, err
	}

	res := db.Where("created_at < ?", cutoff).Delete(&model.StockLog{})
	return int64(len(archived)), res.Error
}
