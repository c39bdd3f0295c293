package usecase

import (
	"context"
	"net/http"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/event"
	repo "foodorder/internal/repository"
)

type OrderUsecase struct {
	tx       repo.TransactionManager
	recorder *event.Recorder
}

func NewOrderUsecase(tx repo.TransactionManager, recorder *event.Recorder) *OrderUsecase {
	return &OrderUsecase{tx: tx, recorder: recorder}
}

type CreateOrderItemInput struct {
	MenuItemID int64
	Quantity   int64
	Note       string
}

type CreateOrderInput struct {
	RestaurantID int64
	Items        []CreateOrderItemInput
	TableNumber  *int
	Notes        string
	Discount     int64
}

type OrderItemOutput struct {
	ID         int64  `json:"id"`
	MenuItemID int64  `json:"menu_item_id"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int64  `json:"quantity"`
	Note       string `json:"note,omitempty"`
}

type OrderOutput struct {
	ID            int64             `json:"id"`
	RestaurantID  int64             `json:"restaurant_id"`
	UserID        int64             `json:"user_id"`
	InvoiceNumber string            `json:"invoice_number"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	TableNumber   *int              `json:"table_number,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Discount      int64             `json:"discount"`
	Subtotal      int64             `json:"subtotal"`
	Total         int64             `json:"total"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Items         []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *OrderUsecase) CreateOrder(ctx context.Context, actor Actor, in CreateOrderInput) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.RestaurantID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid restaurant_id")
	}
	if len(in.Items) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "order needs at least one item")
	}
	for _, it := range in.Items {
		if it.MenuItemID <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid menu_item_id")
		}
		if it.Quantity < 1 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be >= 1")
		}
		if it.Quantity > maxLineQuantity {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity too large")
		}
	}
	if in.Discount < 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "discount must be >= 0")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rest, err := r.Restaurants().FindByID(ctx, in.RestaurantID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "restaurant not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !rest.IsActive {
			return NewHTTPError(http.StatusBadRequest, "restaurant not active")
		}

		//メニューは毎回その場で引く（価格の正は常にメニュー側）
		ids := make([]int64, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.MenuItemID)
		}
		menu, err := r.MenuItems().ListByIDsInRestaurant(ctx, in.RestaurantID, dedupeIDs(ids))
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		byID, err := resolveMenuItems(menu, ids)
		if err != nil {
			return err
		}

		//単価はこの時点でスナップショット
		now := time.Now()
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			orderItems = append(orderItems, model.OrderItem{
				MenuItemID:        it.MenuItemID,
				UnitPriceSnapshot: byID[it.MenuItemID].Price,
				Quantity:          it.Quantity,
				Note:              it.Note,
				CreatedAt:         now,
				UpdatedAt:         now,
			})
		}

		total, subtotal, err := computeTotals(orderItems, in.Discount)
		if err != nil {
			return err
		}

		order := model.Order{
			RestaurantID:  in.RestaurantID,
			UserID:        actor.UserID,
			InvoiceNumber: newInvoiceNumber(now),
			Status:        model.OrderStatusPending,
			PaymentStatus: model.PaymentStatusUnpaid,
			TableNumber:   in.TableNumber,
			Notes:         in.Notes,
			Discount:      in.Discount,
			Subtotal:      subtotal,
			Total:         total,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.ID = orderID
		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	u.recorder.Record(ctx, actor.UserID, model.AuditActionCreateOrder, out.ID, nil, out)
	return out, nil
}

func (u *OrderUsecase) GetOrder(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !actor.CanAccess(o) {
			return NewHTTPError(http.StatusForbidden, "not your order")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListOrders(ctx context.Context, actor Actor, f repo.OrderListFilter) (OrderListOutput, error) {
	if actor.UserID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if f.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	//一般ユーザーは自分の注文しか見えない
	if !actor.Admin {
		uid := actor.UserID
		f.UserID = &uid
	}

	var out OrderListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().List(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs := make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}

		out = OrderListOutput{Items: outs, Total: total, Page: f.Page, Limit: f.Limit}
		return nil
	})

	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// UpdateOrderStatus は遷移表に従ってのみ進める。
// 検証はロック済みの最新行に対して行う（リクエスト中にキャッシュした値は使わない）。
func (u *OrderUsecase) UpdateOrderStatus(ctx context.Context, actor Actor, orderID int64, target string) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	to := model.OrderStatus(target)
	if !to.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out OrderOutput
	var before model.OrderStatus

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !actor.CanAccess(o) {
			return NewHTTPError(http.StatusForbidden, "not your order")
		}

		if !o.Status.CanTransitionTo(to) {
			return NewHTTPError(http.StatusConflict, model.InvalidTransitionMessage(o.Status, to))
		}
		//支払い済みの注文は返金前にはキャンセルできない
		if to == model.OrderStatusCancelled && o.PaymentStatus == model.PaymentStatusPaid {
			return NewHTTPError(http.StatusConflict, "paid order must be refunded before cancellation")
		}

		before = o.Status
		o.Status = to
		o.UpdatedAt = time.Now()
		if err := r.Orders().Update(ctx, o); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	u.recorder.Record(ctx, actor.UserID, model.AuditActionUpdateOrderStatus, orderID,
		statusSnapshot(string(before)), statusSnapshot(out.Status))
	return out, nil
}

func (u *OrderUsecase) PayOrder(ctx context.Context, actor Actor, orderID int64, method string) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m := model.PaymentMethod(method)
	if !m.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}

	var out OrderOutput
	var before model.PaymentStatus

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !actor.CanAccess(o) {
			return NewHTTPError(http.StatusForbidden, "not your order")
		}

		//二重請求ガード。2回目の支払いは黙って成功させない。
		switch o.PaymentStatus {
		case model.PaymentStatusPaid:
			return NewHTTPError(http.StatusConflict, "order already paid")
		case model.PaymentStatusRefunded:
			return NewHTTPError(http.StatusConflict, "order already refunded")
		}
		if o.Status != model.OrderStatusPending && o.Status != model.OrderStatusPreparing {
			return NewHTTPError(http.StatusConflict, "order not in payable state")
		}

		before = o.PaymentStatus
		o.PaymentStatus = model.PaymentStatusPaid
		o.PaymentMethod = m
		o.UpdatedAt = time.Now()
		if err := r.Orders().Update(ctx, o); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	u.recorder.Record(ctx, actor.UserID, model.AuditActionPayOrder, orderID,
		paymentSnapshot(string(before), ""), paymentSnapshot(out.PaymentStatus, out.PaymentMethod))
	return out, nil
}

// CancelOrder は専用のキャンセル入口。顧客が押せるのはPENDINGの間だけ。
// （PREPARING以降の中止はスタッフのステータス更新経由）
func (u *OrderUsecase) CancelOrder(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	var before model.OrderStatus

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !actor.CanAccess(o) {
			return NewHTTPError(http.StatusForbidden, "not your order")
		}

		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusConflict, "cannot cancel at this stage")
		}
		if o.PaymentStatus == model.PaymentStatusPaid {
			return NewHTTPError(http.StatusConflict, "paid order must be refunded before cancellation")
		}

		before = o.Status
		o.Status = model.OrderStatusCancelled
		o.UpdatedAt = time.Now()
		if err := r.Orders().Update(ctx, o); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	u.recorder.Record(ctx, actor.UserID, model.AuditActionCancelOrder, orderID,
		statusSnapshot(string(before)), statusSnapshot(out.Status))
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ID:         it.ID,
			MenuItemID: it.MenuItemID,
			UnitPrice:  it.UnitPriceSnapshot,
			Quantity:   it.Quantity,
			Note:       it.Note,
		})
	}

	return OrderOutput{
		ID:            o.ID,
		RestaurantID:  o.RestaurantID,
		UserID:        o.UserID,
		InvoiceNumber: o.InvoiceNumber,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: string(o.PaymentMethod),
		TableNumber:   o.TableNumber,
		Notes:         o.Notes,
		Discount:      o.Discount,
		Subtotal:      o.Subtotal,
		Total:         o.Total,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         outItems,
	}
}

type statusChange struct {
	Status string `json:"status"`
}

type paymentChange struct {
	PaymentStatus string `json:"payment_status"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

func statusSnapshot(s string) statusChange { return statusChange{Status: s} }

func paymentSnapshot(s, m string) paymentChange {
	return paymentChange{PaymentStatus: s, PaymentMethod: m}
}
