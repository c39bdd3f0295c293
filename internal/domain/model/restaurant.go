package model

import "time"

type Restaurant struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerUserID int64     `gorm:"not null;index" json:"owner_user_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
