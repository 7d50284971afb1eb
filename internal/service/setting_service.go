package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"shopbill/internal/billing"
	"shopbill/internal/model"
	"shopbill/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

// BillingDefaults is the typed view of the settings rows that drive a new
// bill when the request leaves discount or tax unset
type BillingDefaults struct {
	GSTRate         decimal.Decimal
	DiscountType    billing.Mode
	DiscountPercent decimal.Decimal
	TaxType         billing.Mode
	TaxPercent      decimal.Decimal
}

// ShopProfile carries the shop identity fields printed on every bill
type ShopProfile struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	Contact        string `json:"contact"`
	Email          string `json:"email"`
	GSTIN          string `json:"gstin"`
	CurrencySymbol string `json:"currency_symbol"`
}

// --- Interface ---

type SettingService interface {
	GetSettings(ctx context.Context) (map[string]string, error)
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest, userID string) (map[string]string, error)
	BillingDefaults(ctx context.Context) (BillingDefaults, error)
	ShopProfile(ctx context.Context) (ShopProfile, error)
	LowStockThreshold(ctx context.Context) int
}

type settingService struct {
	settingRepo repository.SettingRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewSettingService(
	settingRepo repository.SettingRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) SettingService {
	return &settingService{
		settingRepo: settingRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

// DefaultSettings are seeded on startup for keys no operator has set yet
func DefaultSettings() map[string]string {
	return map[string]string{
		model.SettingDefaultGSTRate:         "18",
		model.SettingDefaultDiscountType:    model.AmountModeFixed,
		model.SettingDefaultDiscountPercent: "5",
		model.SettingDefaultTaxType:         model.AmountModeFixed,
		model.SettingDefaultTaxPercent:      "10",
		model.SettingShopName:               "My Shop",
		model.SettingShopAddress:            "",
		model.SettingShopContact:            "",
		model.SettingShopEmail:              "",
		model.SettingShopGSTIN:              "",
		model.SettingCurrencySymbol:         "₹",
		model.SettingLowStockThreshold:      "10",
	}
}

// --- Implementation ---

func (s *settingService) GetSettings(ctx context.Context) (map[string]string, error) {
	settings, err := s.settingRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	return settings, nil
}

func (s *settingService) UpdateSettings(ctx context.Context, req UpdateSettingsRequest, userID string) (map[string]string, error) {
	known := DefaultSettings()
	for key := range req.Settings {
		if _, ok := known[key]; !ok {
			return nil, fmt.Errorf("unknown setting key: %s", key)
		}
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for key, value := range req.Settings {
			if err := s.settingRepo.Upsert(txCtx, key, value); err != nil {
				return fmt.Errorf("failed to update setting %s: %w", key, err)
			}
		}

		details, _ := json.Marshal(req.Settings)
		entry := model.AuditLog{
			Action:  model.ActionUpdateSettings,
			Details: string(details),
		}
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			entry.UserID = &parsed
		}
		return s.auditRepo.Log(txCtx, &entry)
	})
	if err != nil {
		return nil, err
	}

	return s.GetSettings(ctx)
}

// BillingDefaults resolves the billing-related keys into typed values.
// A missing or malformed value falls back to the seeded default so a
// half-configured shop can still raise bills.
func (s *settingService) BillingDefaults(ctx context.Context) (BillingDefaults, error) {
	settings, err := s.settingRepo.GetAll(ctx)
	if err != nil {
		return BillingDefaults{}, fmt.Errorf("failed to fetch settings: %w", err)
	}

	fallback := DefaultSettings()
	get := func(key string) string {
		if v, ok := settings[key]; ok && v != "" {
			return v
		}
		return fallback[key]
	}
	getDecimal := func(key string) decimal.Decimal {
		if d, err := decimal.NewFromString(get(key)); err == nil {
			return d
		}
		d, _ := decimal.NewFromString(fallback[key])
		return d
	}

	return BillingDefaults{
		GSTRate:         getDecimal(model.SettingDefaultGSTRate),
		DiscountType:    billing.ParseMode(get(model.SettingDefaultDiscountType)),
		DiscountPercent: getDecimal(model.SettingDefaultDiscountPercent),
		TaxType:         billing.ParseMode(get(model.SettingDefaultTaxType)),
		TaxPercent:      getDecimal(model.SettingDefaultTaxPercent),
	}, nil
}

func (s *settingService) ShopProfile(ctx context.Context) (ShopProfile, error) {
	settings, err := s.settingRepo.GetAll(ctx)
	if err != nil {
		return ShopProfile{}, fmt.Errorf("failed to fetch settings: %w", err)
	}

	fallback := DefaultSettings()
	get := func(key string) string {
		if v, ok := settings[key]; ok && v != "" {
			return v
		}
		return fallback[key]
	}

	return ShopProfile{
		Name:           get(model.SettingShopName),
		Address:        settings[model.SettingShopAddress],
		Contact:        settings[model.SettingShopContact],
		Email:          settings[model.SettingShopEmail],
		GSTIN:          settings[model.SettingShopGSTIN],
		CurrencySymbol: get(model.SettingCurrencySymbol),
	}, nil
}

// LowStockThreshold never fails; a bad or missing value means the default
func (s *settingService) LowStockThreshold(ctx context.Context) int {
	value, err := s.settingRepo.Get(ctx, model.SettingLowStockThreshold)
	if err == nil {
		if n, convErr := strconv.Atoi(value); convErr == nil && n >= 0 {
			return n
		}
	}
	n, _ := strconv.Atoi(DefaultSettings()[model.SettingLowStockThreshold])
	return n
}
