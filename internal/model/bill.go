package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AmountMode enum constants: whether a discount/tax value is an absolute
// currency amount or a percentage of its base
const (
	AmountModeFixed   = "fixed"
	AmountModePercent = "percent"
)

// PaymentMethod enum constants
const (
	PaymentCash         = "Cash"
	PaymentCard         = "Card"
	PaymentUPI          = "UPI"
	PaymentBankTransfer = "Bank Transfer"
)

// Bill represents a finalized retail invoice with GST breakdown.
// Customer fields are hard copies taken at billing time so later client
// edits never rewrite history.
type Bill struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BillNumber     string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"bill_number"`
	ClientID       *uuid.UUID      `gorm:"type:uuid;index" json:"client_id"`
	Client         *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	CustomerName   string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerGSTIN  string          `gorm:"type:varchar(20)" json:"customer_gstin"`
	CustomerPhone  string          `gorm:"type:varchar(20)" json:"customer_phone"`
	CustomerEmail  string          `gorm:"type:varchar(255)" json:"customer_email"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	Discount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount"` // Raw value as entered
	DiscountType   string          `gorm:"type:varchar(10);not null;default:'fixed'" json:"discount_type"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_amount"`
	Tax            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax"`
	TaxType        string          `gorm:"type:varchar(10);not null;default:'fixed'" json:"tax_type"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	GrandTotal     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"grand_total"`
	PaymentMethod  string          `gorm:"type:varchar(20);not null;default:'Cash'" json:"payment_method"`
	ShareToken     uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"-"` // Opaque token for the public shared-bill view
	Notified       bool            `gorm:"default:false" json:"notified"`
	Items          []BillItem      `gorm:"foreignKey:BillID" json:"items"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (b *Bill) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.ShareToken == uuid.Nil {
		b.ShareToken = uuid.New()
	}
	return nil
}

// BillItem represents one product line on a bill
type BillItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BillID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"bill_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   Product         `gorm:"foreignKey:ProductID" json:"-"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"` // Product name at billing time
	Quantity  int             `gorm:"type:int;not null" json:"quantity"`
	Rate      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"rate"`
	GSTRate   decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"gst_rate"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
}

func (i *BillItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
