package model

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// 遷移表。ここに無い組み合わせは全部不正（同じステータスへの遷移も含む）。
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, t := range orderStatusTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// COMPLETED / CANCELLED からはもう動かせない
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderStatusTransitions[s]) == 0
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

var paymentStatusTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusUnpaid:   {PaymentStatusPaid},
	PaymentStatusPaid:     {PaymentStatusRefunded},
	PaymentStatusRefunded: {},
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentStatusTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, t := range paymentStatusTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodOnline PaymentMethod = "ONLINE"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodOnline:
		return true
	}
	return false
}

// 金額はすべて最小通貨単位（セント）のint64。
// Total は明細合計、Subtotal は割引適用後（Total >= Subtotal >= 0）。
type Order struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	RestaurantID  int64         `gorm:"not null;index" json:"restaurant_id"`
	UserID        int64         `gorm:"not null;index" json:"user_id"`
	InvoiceNumber string        `gorm:"type:varchar(40);not null;uniqueIndex" json:"invoice_number"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	TableNumber   *int          `json:"table_number,omitempty"`
	Notes         string        `gorm:"type:text" json:"notes,omitempty"`
	Discount      int64         `gorm:"not null;default:0" json:"discount"`
	Subtotal      int64         `gorm:"not null" json:"subtotal"`
	Total         int64         `gorm:"not null" json:"total"`
	CreatedAt     time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func InvalidTransitionMessage(from, to OrderStatus) string {
	return fmt.Sprintf("invalid status transition from %s to %s", from, to)
}
