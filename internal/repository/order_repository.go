package repository

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
)

type OrderListFilter struct {
	Page          int
	Limit         int
	RestaurantID  *int64
	UserID        *int64
	Status        string
	PaymentStatus string
	TableNumber   *int
	From          *time.Time
	To            *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	//行ロック付き取得。ステータス/金額を触る更新はこちらを使う。
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)

	Create(ctx context.Context, order model.Order) (int64, error)
	Update(ctx context.Context, order model.Order) error
	Delete(ctx context.Context, orderID int64) error

	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
}
