package repository

import (
	"context"
	"errors"

	"foodorder/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// メニューの永続化は別サブシステム。ここは読むだけの約束。
type MenuItemRepository interface {
	//店に属する指定IDのメニューだけ返す（存在しないIDは結果に含めない）。
	ListByIDsInRestaurant(ctx context.Context, restaurantID int64, ids []int64) ([]model.MenuItem, error)
}
