package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a sellable item with its current stock level
type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SKU       string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Rate      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"rate"`                 // Selling price per unit
	GSTRate   decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"gst_rate"`   // Percentage, stored per line for reporting
	Stock     int             `gorm:"type:int;default:0;not null" json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// BeforeCreate assigns the UUID in application code so the schema stays
// portable across the postgres and sqlite drivers.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// StockChangeType enum constants
const (
	StockChangeIn     = "IN"
	StockChangeOut    = "OUT"
	StockChangeAdjust = "ADJUST"
)

// StockLog records every stock movement strictly, with the resulting level
type StockLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product    Product   `gorm:"foreignKey:ProductID" json:"-"`
	ChangeType string    `gorm:"type:varchar(10);not null" json:"change_type"` // IN, OUT, ADJUST
	Quantity   int       `gorm:"type:int;not null" json:"quantity"`
	StockAfter int       `gorm:"type:int;not null" json:"stock_after"`
	Reference  string    `gorm:"type:varchar(255)" json:"reference"` // e.g. "Bill: BILL-20260828-0001"
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (l *StockLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// StockLogArchive holds stock movements rotated out of the hot table after 30 days
type StockLogArchive struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	ChangeType string    `gorm:"type:varchar(10);not null" json:"change_type"`
	Quantity   int       `gorm:"type:int;not null" json:"quantity"`
	StockAfter int       `gorm:"type:int;not null" json:"stock_after"`
	Reference  string    `gorm:"type:varchar(255)" json:"reference"`
	CreatedAt  time.Time `json:"created_at"`
	ArchivedAt time.Time `gorm:"autoCreateTime" json:"archived_at"`
}

func (StockLogArchive) TableName() string {
	return "stock_log_archive"
}
