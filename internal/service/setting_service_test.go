package service

import (
	"context"
	"testing"

	"shopbill/internal/billing"
	"shopbill/internal/database"
	"shopbill/internal/model"
	"shopbill/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSettingService(t *testing.T) (SettingService, repository.SettingRepository, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	settingRepo := repository.NewSettingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	require.NoError(t, settingRepo.SeedDefaults(context.Background(), DefaultSettings()))
	return NewSettingService(settingRepo, auditRepo, txManager), settingRepo, db
}

func TestBillingDefaultsFromSeed(t *testing.T) {
	svc, _, _ := newSettingService(t)

	defaults, err := svc.BillingDefaults(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "18", defaults.GSTRate.String())
	assert.Equal(t, billing.ModeFixed, defaults.DiscountType)
	assert.Equal(t, "5", defaults.DiscountPercent.String())
	assert.Equal(t, billing.ModeFixed, defaults.TaxType)
	assert.Equal(t, "10", defaults.TaxPercent.String())
}

func TestBillingDefaultsFallBackOnGarbage(t *testing.T) {
	svc, repo, _ := newSettingService(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, model.SettingDefaultGSTRate, "not-a-number"))
	require.NoError(t, repo.Upsert(ctx, model.SettingDefaultDiscountType, "bogus"))

	defaults, err := svc.BillingDefaults(ctx)
	require.NoError(t, err)

	assert.Equal(t, "18", defaults.GSTRate.String())
	// Unknown mode strings resolve to fixed
	assert.Equal(t, billing.ModeFixed, defaults.DiscountType)
}

func TestUpdateSettingsRejectsUnknownKey(t *testing.T) {
	svc, _, _ := newSettingService(t)

	_, err := svc.UpdateSettings(context.Background(), UpdateSettingsRequest{
		Settings: map[string]string{"not_a_real_key": "1"},
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown setting key")
}

func TestUpdateSettingsPersistsAndAudits(t *testing.T) {
	svc, _, db := newSettingService(t)
	ctx := context.Background()

	updated, err := svc.UpdateSettings(ctx, UpdateSettingsRequest{
		Settings: map[string]string{
			model.SettingShopName:       "Sharma General Store",
			model.SettingDefaultTaxType: model.AmountModePercent,
		},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "Sharma General Store", updated[model.SettingShopName])
	assert.Equal(t, model.AmountModePercent, updated[model.SettingDefaultTaxType])

	var auditCount int64
	require.NoError(t, db.Model(&model.AuditLog{}).
		Where("action = ?", model.ActionUpdateSettings).Count(&auditCount).Error)
	assert.EqualValues(t, 1, auditCount)

	profile, err := svc.ShopProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sharma General Store", profile.Name)
	assert.Equal(t, "₹", profile.CurrencySymbol)
}

func TestLowStockThreshold(t *testing.T) {
	svc, repo, _ := newSettingService(t)
	ctx := context.Background()

	assert.Equal(t, 10, svc.LowStockThreshold(ctx))

	require.NoError(t, repo.Upsert(ctx, model.SettingLowStockThreshold, "25"))
	assert.Equal(t, 25, svc.LowStockThreshold(ctx))

	require.NoError(t, repo.Upsert(ctx, model.SettingLowStockThreshold, "junk"))
	assert.Equal(t, 10, svc.LowStockThreshold(ctx))
}
