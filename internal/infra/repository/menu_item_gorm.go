package repository

import (
	"context"

	"foodorder/internal/domain/model"

	"gorm.io/gorm"
)

type MenuItemGormRepository struct {
	db *gorm.DB
}

func NewMenuItemGormRepository(db *gorm.DB) *MenuItemGormRepository {
	return &MenuItemGormRepository{db: db}
}

// N+1にしない。1クエリでまとめて引く。
func (r *MenuItemGormRepository) ListByIDsInRestaurant(ctx context.Context, restaurantID int64, ids []int64) ([]model.MenuItem, error) {
	if len(ids) == 0 {
		return []model.MenuItem{}, nil
	}
	var items []model.MenuItem
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND id IN ?", restaurantID, ids).
		Find(&items).Error
	if err != nil {
		return []model.MenuItem{}, err
	}
	return items, nil
}
