package dao

import (
	"errors"

	"resvalidator/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateDAO is durable key/value storage for client-side state.
type StateDAO interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

type stateDAO struct {
	db *gorm.DB
}

func NewStateDAO(db *gorm.DB) StateDAO {
	return &stateDAO{db: db}
}

func (dao *stateDAO) Get(key string) (string, bool, error) {
	var item models.StorageItem
	if err := dao.db.Where("key = ?", key).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return item.Value, true, nil
}

func (dao *stateDAO) Set(key, value string) error {
	item := models.StorageItem{Key: key, Value: value}
	return dao.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&item).Error
}

func (dao *stateDAO) Delete(key string) error {
	return dao.db.Where("key = ?", key).Delete(&models.StorageItem{}).Error
}
