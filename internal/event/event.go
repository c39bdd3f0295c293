package event

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
)

// 成功した注文ミューテーション1件につき1イベント。
type Event struct {
	ID           string                  `json:"id"`
	Action       model.AuditAction       `json:"action"`
	ResourceType model.AuditResourceType `json:"resource_type"`
	ResourceID   int64                   `json:"resource_id"`
	ActorUserID  int64                   `json:"actor_user_id"`
	Before       string                  `json:"before,omitempty"`
	After        string                  `json:"after,omitempty"`
	OccurredAt   time.Time               `json:"occurred_at"`
}

// 下流（キッチン表示・通知など）へのイベント配送の約束。
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// ブローカー未設定のとき用。
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, e Event) error { return nil }
