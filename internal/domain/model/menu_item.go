package model

import (
	"time"

	"gorm.io/gorm"
)

// このコアからは読み取り専用。価格・提供可否の正はここ。
type MenuItem struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	RestaurantID int64          `gorm:"not null;index" json:"restaurant_id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Price        int64          `gorm:"not null" json:"price"`
	IsAvailable  bool           `gorm:"not null;default:true" json:"is_available"`
	CreatedAt    time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
