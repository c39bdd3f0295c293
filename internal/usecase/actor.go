package usecase

import "foodorder/internal/domain/model"

// Actor は認可済みの操作主体。Adminはロール解決済みの権限フラグで、
// ドメイン側ではロール名の比較はしない。
type Actor struct {
	UserID int64
	Admin  bool
}

func (a Actor) CanAccess(o model.Order) bool {
	return a.Admin || o.UserID == a.UserID
}
