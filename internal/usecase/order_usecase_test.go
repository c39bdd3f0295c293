package usecase

import (
	"context"
	"strings"
	"testing"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var customer = Actor{UserID: 7}

// =====================
// CreateOrder
// =====================

func TestCreateOrder_Success(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.restaurants.On("FindByID", mock.Anything, int64(1)).
		Return(model.Restaurant{ID: 1, IsActive: true}, nil)
	env.menuItems.On("ListByIDsInRestaurant", mock.Anything, int64(1), []int64{10}).
		Return([]model.MenuItem{{ID: 10, RestaurantID: 1, Price: 1050, IsAvailable: true}}, nil)
	env.orders.On("Create", mock.Anything, mock.Anything).Return(int64(7), nil)
	env.orderItems.On("CreateBulk", mock.Anything, int64(7), mock.Anything).Return(nil)

	out, err := uc.CreateOrder(context.Background(), customer, CreateOrderInput{
		RestaurantID: 1,
		Items:        []CreateOrderItemInput{{MenuItemID: 10, Quantity: 2}},
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(2100), out.Total)
	assert.Equal(t, int64(2100), out.Subtotal)
	assert.Equal(t, "PENDING", out.Status)
	assert.Equal(t, "UNPAID", out.PaymentStatus)
	assert.True(t, strings.HasPrefix(out.InvoiceNumber, "INV-"))
	assert.Len(t, out.Items, 1)
	assert.Equal(t, int64(1050), out.Items[0].UnitPrice)

	env.orders.AssertExpectations(t)
	env.orderItems.AssertExpectations(t)
	env.audit.AssertCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	_, err := uc.CreateOrder(context.Background(), customer, CreateOrderInput{RestaurantID: 1})
	assertErrContains(t, err, "order needs at least one item")
}

func TestCreateOrder_QuantityBelowOne(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	_, err := uc.CreateOrder(context.Background(), customer, CreateOrderInput{
		RestaurantID: 1,
		Items:        []CreateOrderItemInput{{MenuItemID: 10, Quantity: 0}},
	})
	assertErrContains(t, err, "quantity must be >= 1")
}

func TestCreateOrder_QuantityAboveCap(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	_, err := uc.CreateOrder(context.Background(), customer, CreateOrderInput{
		RestaurantID: 1,
		Items:        []CreateOrderItemInput{{MenuItemID: 10, Quantity: 17_580_000_000_000_000}},
	})
	assertErrContains(t, err, "quantity too large")
}

func TestCreateOrder_RestaurantNotFound(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.restaurants.On("FindByID", mock.Anything, int64(99)).
		Return(model.Restaurant{}, repo.ErrNotFound)

	_, err := uc.CreateOrder(context.Background(), customer, CreateOrderInput{
		RestaurantID: 99,
		Items:        []CreateOrderItemInput{{MenuItemID: 10, Quantity: 1}},
	})
	assertErrContains(t, err, "restaurant not found")
}

// 他店のメニューを指した注文は、どのIDが悪いか名指しで落ちる
func TestCreateOrder_ItemNotInRestaurant(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.restaurants.On("FindByID", mock.Anything, int64(1)).
		Return(model.Restaurant{ID: 1, IsActive: true}, nil)
	env.menuItems.On("ListByIDsInRestaurant", mock.Anything, int64(1), []int64{10, 20}).
		Return([]model.MenuItem{{ID: 10, RestaurantID: 1, Price: 1050, IsAvailable: true}}, nil)

	_, err := uc.CreateOrder(context.Background(), customer, CreateOrderInput{
		RestaurantID: 1,
		Items: []CreateOrderItemInput{
			{MenuItemID: 10, Quantity: 1},
			{MenuItemID: 20, Quantity: 1},
		},
	})
	assertErrContains(t, err, "items not in restaurant: 20")
}

func TestCreateOrder_UnavailableItem(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.restaurants.On("FindByID", mock.Anything, int64(1)).
		Return(model.Restaurant{ID: 1, IsActive: true}, nil)
	env.menuItems.On("ListByIDsInRestaurant", mock.Anything, int64(1), []int64{10}).
		Return([]model.MenuItem{{ID: 10, RestaurantID: 1, Price: 1050, IsAvailable: false}}, nil)

	_, err := uc.CreateOrder(context.Background(), customer, CreateOrderInput{
		RestaurantID: 1,
		Items:        []CreateOrderItemInput{{MenuItemID: 10, Quantity: 1}},
	})
	assertErrContains(t, err, "menu items not available: 10")
}

func TestCreateOrder_DiscountExceedsTotal(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.restaurants.On("FindByID", mock.Anything, int64(1)).
		Return(model.Restaurant{ID: 1, IsActive: true}, nil)
	env.menuItems.On("ListByIDsInRestaurant", mock.Anything, int64(1), []int64{10}).
		Return([]model.MenuItem{{ID: 10, RestaurantID: 1, Price: 1050, IsAvailable: true}}, nil)

	_, err := uc.CreateOrder(context.Background(), customer, CreateOrderInput{
		RestaurantID: 1,
		Items:        []CreateOrderItemInput{{MenuItemID: 10, Quantity: 1}},
		Discount:     2000,
	})
	assertErrContains(t, err, "discount exceeds total")
}

// =====================
// GetOrder
// =====================

func TestGetOrder_NotOwner(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByID", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: 42}, nil)

	_, err := uc.GetOrder(context.Background(), customer, 5)
	assertErrContains(t, err, "not your order")
}

func TestGetOrder_AdminSeesAnyOrder(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByID", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: 42}, nil)
	env.orderItems.On("ListByOrderID", mock.Anything, int64(5)).
		Return([]model.OrderItem{}, nil)

	out, err := uc.GetOrder(context.Background(), Actor{UserID: 1, Admin: true}, 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), out.ID)
}

func TestGetOrder_NotFound(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByID", mock.Anything, int64(5)).
		Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.GetOrder(context.Background(), customer, 5)
	assertErrContains(t, err, "not found")
}

// =====================
// ListOrders
// =====================

// 一般ユーザーのフィルタは強制的に自分のuser_idに固定される
func TestListOrders_ForcesOwnUserID(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("List", mock.Anything, mock.MatchedBy(func(f repo.OrderListFilter) bool {
		return f.UserID != nil && *f.UserID == customer.UserID
	})).Return([]model.Order{}, int64(0), nil)

	other := int64(42)
	_, err := uc.ListOrders(context.Background(), customer, repo.OrderListFilter{
		Page: 1, Limit: 20, UserID: &other,
	})
	assert.NoError(t, err)
	env.orders.AssertExpectations(t)
}

func TestListOrders_InvalidPage(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	_, err := uc.ListOrders(context.Background(), customer, repo.OrderListFilter{Page: 0, Limit: 20})
	assertErrContains(t, err, "invalid page")
}

// =====================
// UpdateOrderStatus
// =====================

func TestUpdateOrderStatus_PendingToPreparing(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusUnpaid}, nil)
	env.orders.On("Update", mock.Anything, mock.Anything).Return(nil)
	env.orderItems.On("ListByOrderID", mock.Anything, int64(5)).
		Return([]model.OrderItem{}, nil)

	out, err := uc.UpdateOrderStatus(context.Background(), customer, 5, "PREPARING")
	assert.NoError(t, err)
	assert.Equal(t, "PREPARING", out.Status)
}

// 未払いならPREPARINGからの中止はステータス更新経由で通る
// （専用キャンセル入口がPENDING限定なのとは別の入口）
func TestUpdateOrderStatus_PreparingToCancelledUnpaid(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusPreparing, PaymentStatus: model.PaymentStatusUnpaid}, nil)
	env.orders.On("Update", mock.Anything, mock.Anything).Return(nil)
	env.orderItems.On("ListByOrderID", mock.Anything, int64(5)).
		Return([]model.OrderItem{}, nil)

	out, err := uc.UpdateOrderStatus(context.Background(), customer, 5, "CANCELLED")
	assert.NoError(t, err)
	assert.Equal(t, "CANCELLED", out.Status)
}

func TestUpdateOrderStatus_BackwardMoveRejected(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusPreparing, PaymentStatus: model.PaymentStatusUnpaid}, nil)

	_, err := uc.UpdateOrderStatus(context.Background(), customer, 5, "PENDING")
	assertErrContains(t, err, "invalid status transition from PREPARING to PENDING")
}

func TestUpdateOrderStatus_TerminalOrderRejected(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusCompleted, PaymentStatus: model.PaymentStatusPaid}, nil)

	_, err := uc.UpdateOrderStatus(context.Background(), customer, 5, "CANCELLED")
	assertErrContains(t, err, "invalid status transition from COMPLETED to CANCELLED")
}

func TestUpdateOrderStatus_PaidOrderCannotBeCancelled(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusPreparing, PaymentStatus: model.PaymentStatusPaid}, nil)

	_, err := uc.UpdateOrderStatus(context.Background(), customer, 5, "CANCELLED")
	assertErrContains(t, err, "paid order must be refunded before cancellation")
}

func TestUpdateOrderStatus_InvalidTarget(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	_, err := uc.UpdateOrderStatus(context.Background(), customer, 5, "SHIPPED")
	assertErrContains(t, err, "invalid status")
}

// =====================
// PayOrder
// =====================

func TestPayOrder_Success(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusUnpaid}, nil)
	env.orders.On("Update", mock.Anything, mock.Anything).Return(nil)
	env.orderItems.On("ListByOrderID", mock.Anything, int64(5)).
		Return([]model.OrderItem{}, nil)

	out, err := uc.PayOrder(context.Background(), customer, 5, "CARD")
	assert.NoError(t, err)
	assert.Equal(t, "PAID", out.PaymentStatus)
	assert.Equal(t, "CARD", out.PaymentMethod)
}

func TestPayOrder_AlreadyPaid(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPaid}, nil)

	//二度目の支払いは黙って成功させない
	_, err := uc.PayOrder(context.Background(), customer, 5, "CARD")
	assertErrContains(t, err, "order already paid")
}

func TestPayOrder_AlreadyRefunded(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusRefunded}, nil)

	_, err := uc.PayOrder(context.Background(), customer, 5, "CARD")
	assertErrContains(t, err, "order already refunded")
}

func TestPayOrder_NotPayableState(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusCancelled, PaymentStatus: model.PaymentStatusUnpaid}, nil)

	_, err := uc.PayOrder(context.Background(), customer, 5, "CASH")
	assertErrContains(t, err, "order not in payable state")
}

func TestPayOrder_InvalidMethod(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	_, err := uc.PayOrder(context.Background(), customer, 5, "IOU")
	assertErrContains(t, err, "invalid payment_method")
}

// =====================
// CancelOrder
// =====================

func TestCancelOrder_Pending(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusUnpaid}, nil)
	env.orders.On("Update", mock.Anything, mock.Anything).Return(nil)
	env.orderItems.On("ListByOrderID", mock.Anything, int64(5)).
		Return([]model.OrderItem{}, nil)

	out, err := uc.CancelOrder(context.Background(), customer, 5)
	assert.NoError(t, err)
	assert.Equal(t, "CANCELLED", out.Status)
}

func TestCancelOrder_AlreadyCancelled(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusCancelled, PaymentStatus: model.PaymentStatusUnpaid}, nil)

	_, err := uc.CancelOrder(context.Background(), customer, 5)
	assertErrContains(t, err, "cannot cancel at this stage")
}

func TestCancelOrder_PreparingRejected(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: customer.UserID, Status: model.OrderStatusPreparing, PaymentStatus: model.PaymentStatusUnpaid}, nil)

	//調理が始まったらこの入口からは止められない
	_, err := uc.CancelOrder(context.Background(), customer, 5)
	assertErrContains(t, err, "cannot cancel at this stage")
}

func TestCancelOrder_NotOwner(t *testing.T) {
	env := newTestEnv()
	uc := NewOrderUsecase(env.tx, env.recorder)

	env.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).
		Return(model.Order{ID: 5, UserID: 42, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusUnpaid}, nil)

	_, err := uc.CancelOrder(context.Background(), customer, 5)
	assertErrContains(t, err, "not your order")
}
