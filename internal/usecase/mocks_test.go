package usecase

import (
	"context"
	"strings"
	"testing"

	"foodorder/internal/domain/model"
	"foodorder/internal/event"
	repo "foodorder/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders      repo.OrderRepository
	orderItems  repo.OrderItemRepository
	menuItems   repo.MenuItemRepository
	restaurants repo.RestaurantRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository           { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository   { return r.orderItems }
func (r *TxReposMock) MenuItems() repo.MenuItemRepository     { return r.menuItems }
func (r *TxReposMock) Restaurants() repo.RestaurantRepository { return r.restaurants }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) Update(ctx context.Context, order model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepoMock) Delete(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) Update(ctx context.Context, item model.OrderItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrderItemRepoMock) DeleteByOrderID(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type MenuItemRepoMock struct{ mock.Mock }

func (m *MenuItemRepoMock) ListByIDsInRestaurant(ctx context.Context, restaurantID int64, ids []int64) ([]model.MenuItem, error) {
	args := m.Called(ctx, restaurantID, ids)
	items, _ := args.Get(0).([]model.MenuItem)
	return items, args.Error(1)
}

type RestaurantRepoMock struct{ mock.Mock }

func (m *RestaurantRepoMock) FindByID(ctx context.Context, id int64) (model.Restaurant, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(model.Restaurant)
	return r, args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// =====================
// Test wiring helpers
// =====================

type testEnv struct {
	tx          *TxManagerMock
	orders      *OrderRepoMock
	orderItems  *OrderItemRepoMock
	menuItems   *MenuItemRepoMock
	restaurants *RestaurantRepoMock
	audit       *AuditRepoMock
	recorder    *event.Recorder
}

func newTestEnv() *testEnv {
	e := &testEnv{
		tx:          new(TxManagerMock),
		orders:      new(OrderRepoMock),
		orderItems:  new(OrderItemRepoMock),
		menuItems:   new(MenuItemRepoMock),
		restaurants: new(RestaurantRepoMock),
		audit:       new(AuditRepoMock),
	}
	e.tx.Repos = &TxReposMock{
		orders:      e.orders,
		orderItems:  e.orderItems,
		menuItems:   e.menuItems,
		restaurants: e.restaurants,
	}
	e.tx.On("WithinTx", mock.Anything).Return(nil).Maybe()
	e.audit.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	e.recorder = event.NewRecorder(e.audit, event.NopPublisher{})
	return e
}

// Helper: error contains（HTTPErrorの実装詳細に依存しない）
func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}
