package model

import "time"

// 注文作成、ステータス更新など。
type AuditAction string

const (
	AuditActionCreateOrder       AuditAction = "CREATE_ORDER"
	AuditActionUpdateOrder       AuditAction = "UPDATE_ORDER"
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	AuditActionPayOrder          AuditAction = "PAY_ORDER"
	AuditActionRefundOrder       AuditAction = "REFUND_ORDER"
	AuditActionCancelOrder       AuditAction = "CANCEL_ORDER"
	AuditActionDeleteOrder       AuditAction = "DELETE_ORDER"
)

var auditActions = map[AuditAction]bool{
	AuditActionCreateOrder:       true,
	AuditActionUpdateOrder:       true,
	AuditActionUpdateOrderStatus: true,
	AuditActionPayOrder:          true,
	AuditActionRefundOrder:       true,
	AuditActionCancelOrder:       true,
	AuditActionDeleteOrder:       true,
}

func (a AuditAction) Valid() bool {
	return auditActions[a]
}

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceOrder AuditResourceType = "order"
)

// 監査ログ。「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
