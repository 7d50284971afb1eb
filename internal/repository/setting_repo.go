package repository

import (
	"context"

	"shopbill/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	GetAll(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, key, value string) error
	SeedDefaults(ctx context.Context, defaults map[string]string) error
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (string, error) {
	var setting model.Setting
	if err := GetDB(ctx, r.db).First(&setting, "key = ?", key).Error; err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (r *settingRepository) GetAll(ctx context.Context) (map[string]string, error) {
	var settings []model.Setting
	if err := GetDB(ctx, r.db).Order("key asc").Find(&settings).Error; err != nil {
		return nil, err
	}

	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	return out, nil
}

func (r *settingRepository) Upsert(ctx context.Context, key, value string) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&model.Setting{Key: key, Value: value}).Error
}

// SeedDefaults inserts missing keys without touching values an operator
// already changed.
func (r *settingRepository) SeedDefaults(ctx context.Context, defaults map[string]string) error {
	db := GetDB(ctx, r.db)
	for key, value := range defaults {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.Setting{Key: key, Value: value}).Error; err != nil {
			return err
		}
	}
	return nil
}
