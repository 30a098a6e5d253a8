package boltdb

import (
	"context"

	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/libkiosk/core/promotion"
)

var lastGradeUpdateYearKey = []byte("lastGradeUpdateYear")

type settingsRepository struct {
	db *bolt.DB
}

var _ promotion.MarkerStore = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *bolt.DB) promotion.MarkerStore {
	return &settingsRepository{db: db}
}

func (repo *settingsRepository) LastPromotionYear(ctx context.Context) (int, error) {
	var year int
	err := view(ctx, repo.db, "get promotion marker", func(tx *bolt.Tx) error {
		b, err := bucket(tx, settingsBucket)
		if err != nil {
			return err
		}
		year, err = getInt(b, lastGradeUpdateYearKey)
		return err
	})
	return year, err
}

func (repo *settingsRepository) SetLastPromotionYear(ctx context.Context, year int) error {
	return update(ctx, repo.db, "set promotion marker", func(tx *bolt.Tx) error {
		b, err := bucket(tx, settingsBucket)
		if err != nil {
			return err
		}
		return putInt(b, lastGradeUpdateYearKey, year)
	})
}
