package inmemdb

import (
	"context"

	"github.com/trezcool/libkiosk/core/promotion"
)

const lastGradeUpdateYearKey = "lastGradeUpdateYear"

type settingsRepository struct {
	db *DB
}

var _ promotion.MarkerStore = (*settingsRepository)(nil)

func NewSettingsRepository(db *DB) promotion.MarkerStore {
	return &settingsRepository{db: db}
}

func (repo *settingsRepository) LastPromotionYear(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.settings[lastGradeUpdateYearKey], nil
}

func (repo *settingsRepository) SetLastPromotionYear(_ context.Context, year int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.settings[lastGradeUpdateYearKey] = year
	return nil
}
