package repository

import (
	"context"
	"time"

	"shopbill/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BillListFilter struct {
	BillNumber string // partial match
	ClientID   string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	Limit      int
}

type BillRepository interface {
	Create(ctx context.Context, bill *model.Bill) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Bill, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Bill, error)
	FindByShareToken(ctx context.Context, token uuid.UUID) (*model.Bill, error)
	List(ctx context.Context, filter BillListFilter) ([]model.Bill, int64, error)
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
	MarkNotified(ctx context.Context, id uuid.UUID, notified bool) error
}

type billRepository struct {
	db *gorm.DB
}

func NewBillRepository(db *gorm.DB) BillRepository {
	return &billRepository{db: db}
}

func (r *billRepository) Create(ctx context.Context, bill *model.Bill) error {
	return GetDB(ctx, r.db).Create(bill).Error
}

func (r *billRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	var bill model.Bill
	if err := GetDB(ctx, r.db).First(&bill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	var bill model.Bill
	if err := GetDB(ctx, r.db).Preload("Items").Preload("Client").First(&bill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) FindByShareToken(ctx context.Context, token uuid.UUID) (*model.Bill, error) {
	var bill model.Bill
	if err := GetDB(ctx, r.db).Preload("Items").Where("share_token = ?", token).First(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) List(ctx context.Context, filter BillListFilter) ([]model.Bill, int64, error) {
	var bills []model.Bill
	var total int64

	applyFilter := func(db *gorm.DB) *gorm.DB {
		if filter.BillNumber != "" {
			db = db.Where("LOWER(bill_number) LIKE LOWER(?)", "%"+filter.BillNumber+"%")
		}
		if filter.ClientID != "" {
			db = db.Where("client_id = ?", filter.ClientID)
		}
		if filter.StartDate != nil {
			db = db.Where("created_at >= ?", *filter.StartDate)
		}
		if filter.EndDate != nil {
			db = db.Where("created_at <= ?", *filter.EndDate)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := applyFilter(db.Model(&model.Bill{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := applyFilter(db.Preload("Items")).
		Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&bills).Error; err != nil {
		return nil, 0, err
	}

	return bills, total, nil
}

func (r *billRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Bill{}).Where("bill_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *billRepository) MarkNotified(ctx context.Context, id uuid.UUID, notified bool) error {
	return GetDB(ctx, r.db).Model(&model.Bill{}).Where("id = ?", id).Update("notified", notified).Error
}
