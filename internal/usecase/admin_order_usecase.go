package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/event"
	repo "foodorder/internal/repository"
)

type AdminOrderUsecase struct {
	tx       repo.TransactionManager
	recorder *event.Recorder
}

func NewAdminOrderUsecase(tx repo.TransactionManager, recorder *event.Recorder) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, recorder: recorder}
}

// 明細パッチ。IDありは既存行の数量/メモ更新、IDなしは新規追加。
// リストに無い既存行はそのまま残す（暗黙削除はしない）。
type UpdateOrderItemInput struct {
	ID         *int64
	MenuItemID int64
	Quantity   int64
	Note       *string
}

type UpdateOrderInput struct {
	TableNumber *int
	Notes       *string
	Discount    *int64
	Items       []UpdateOrderItemInput
}

func (u *AdminOrderUsecase) List(ctx context.Context, actor Actor, f repo.OrderListFilter) (OrderListOutput, error) {
	if actor.UserID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.Admin {
		return OrderListOutput{}, NewHTTPError(http.StatusForbidden, "admin only")
	}
	if f.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
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

// UpdateOrder は管理者向けの汎用パッチ。
// 終端（COMPLETED/CANCELLED）の注文は一切受け付けない。
// 明細・割引に触れるのはPENDINGの間だけ。メモ・卓番はそれ以外でも可。
func (u *AdminOrderUsecase) UpdateOrder(ctx context.Context, actor Actor, orderID int64, in UpdateOrderInput) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.Admin {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "admin only")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be >= 1")
		}
		if it.Quantity > maxLineQuantity {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity too large")
		}
		if it.ID == nil && it.MenuItemID <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid menu_item_id")
		}
	}
	if in.Discount != nil && *in.Discount < 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "discount must be >= 0")
	}

	var out OrderOutput
	var beforeOut OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.Status.Terminal() {
			return NewHTTPError(http.StatusConflict, "order is finalized")
		}

		current, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		beforeOut = toOrderOutput(o, current)

		touchesPricing := len(in.Items) > 0 || in.Discount != nil
		if touchesPricing && o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusConflict, "only pending orders can be modified")
		}

		now := time.Now()

		if len(in.Items) > 0 {
			current, err = u.reconcileItems(ctx, r, &o, current, in.Items, now)
			if err != nil {
				return err
			}
		}

		if in.Discount != nil {
			o.Discount = *in.Discount
		}
		if touchesPricing {
			//常に明細全量から再計算する
			total, subtotal, err := computeTotals(current, o.Discount)
			if err != nil {
				return err
			}
			o.Total = total
			o.Subtotal = subtotal
		}

		if in.TableNumber != nil {
			o.TableNumber = in.TableNumber
		}
		if in.Notes != nil {
			o.Notes = *in.Notes
		}

		o.UpdatedAt = now
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

	u.recorder.Record(ctx, actor.UserID, model.AuditActionUpdateOrder, orderID, beforeOut, out)
	return out, nil
}

// 明細のマージ。更新行は元の単価スナップショットを保持し、
// 新規行だけ現在のメニュー価格を引いてスナップショットする。
func (u *AdminOrderUsecase) reconcileItems(
	ctx context.Context,
	r repo.TxRepos,
	o *model.Order,
	current []model.OrderItem,
	patches []UpdateOrderItemInput,
	now time.Time,
) ([]model.OrderItem, error) {
	byID := make(map[int64]*model.OrderItem, len(current))
	for i := range current {
		byID[current[i].ID] = &current[i]
	}

	var newIDs []int64
	for _, p := range patches {
		if p.ID == nil {
			newIDs = append(newIDs, p.MenuItemID)
		}
	}

	var menuByID map[int64]model.MenuItem
	if len(newIDs) > 0 {
		menu, err := r.MenuItems().ListByIDsInRestaurant(ctx, o.RestaurantID, dedupeIDs(newIDs))
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		menuByID, err = resolveMenuItems(menu, newIDs)
		if err != nil {
			return nil, err
		}
	}

	var appended []model.OrderItem
	for _, p := range patches {
		if p.ID != nil {
			existing, ok := byID[*p.ID]
			if !ok {
				return nil, NewHTTPError(http.StatusBadRequest,
					fmt.Sprintf("item %d not in order", *p.ID))
			}
			existing.Quantity = p.Quantity
			if p.Note != nil {
				existing.Note = *p.Note
			}
			existing.UpdatedAt = now
			if err := r.OrderItems().Update(ctx, *existing); err != nil {
				return nil, NewHTTPError(http.StatusInternalServerError, "db error")
			}
			continue
		}

		appended = append(appended, model.OrderItem{
			OrderID:           o.ID,
			MenuItemID:        p.MenuItemID,
			UnitPriceSnapshot: menuByID[p.MenuItemID].Price,
			Quantity:          p.Quantity,
			Note:              derefString(p.Note),
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	if len(appended) > 0 {
		if err := r.OrderItems().CreateBulk(ctx, o.ID, appended); err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	return append(current, appended...), nil
}

// RefundOrder はPAID→REFUNDED。返金しない限りキャンセル・削除は通らない。
func (u *AdminOrderUsecase) RefundOrder(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.Admin {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "admin only")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
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

		switch o.PaymentStatus {
		case model.PaymentStatusUnpaid:
			return NewHTTPError(http.StatusConflict, "order not paid")
		case model.PaymentStatusRefunded:
			return NewHTTPError(http.StatusConflict, "order already refunded")
		}

		before = o.PaymentStatus
		o.PaymentStatus = model.PaymentStatusRefunded
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

	u.recorder.Record(ctx, actor.UserID, model.AuditActionRefundOrder, orderID,
		paymentSnapshot(string(before), out.PaymentMethod), paymentSnapshot(out.PaymentStatus, out.PaymentMethod))
	return out, nil
}

// DeleteOrder は物理削除。支払い済み（未返金）は消せない。
func (u *AdminOrderUsecase) DeleteOrder(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.Admin {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "admin only")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.PaymentStatus == model.PaymentStatusPaid {
			return NewHTTPError(http.StatusConflict, "paid order must be refunded before deletion")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(o, items)

		if err := r.OrderItems().DeleteByOrderID(ctx, orderID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Orders().Delete(ctx, orderID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	u.recorder.Record(ctx, actor.UserID, model.AuditActionDeleteOrder, orderID, out, nil)
	return out, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
