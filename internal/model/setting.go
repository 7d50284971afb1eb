package model

import "time"

// Well-known setting keys
const (
	SettingDefaultGSTRate         = "default_gst_rate"
	SettingDefaultDiscountType    = "default_discount_type"
	SettingDefaultDiscountPercent = "default_discount_percent"
	SettingDefaultTaxType         = "default_tax_type"
	SettingDefaultTaxPercent      = "default_tax_percent"
	SettingShopName               = "shop_name"
	SettingShopAddress            = "shop_address"
	SettingShopContact            = "shop_contact"
	SettingShopEmail              = "shop_email"
	SettingShopGSTIN              = "shop_gstin"
	SettingCurrencySymbol         = "currency_symbol"
	SettingLowStockThreshold      = "low_stock_threshold"
)

// Setting is a key-value row for shop configuration and billing defaults
type Setting struct {
	Key       string    `gorm:"type:varchar(100);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
