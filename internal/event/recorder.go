package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"github.com/google/uuid"
)

// Recorder は監査ログ保存とブローカー発行をまとめる。
// コミット済みのミューテーションを失敗扱いにしないため、
// どちらが落ちてもエラーは返さずログに残すだけ。
type Recorder struct {
	audit     repo.AuditLogRepository
	publisher Publisher
}

func NewRecorder(audit repo.AuditLogRepository, publisher Publisher) *Recorder {
	return &Recorder{audit: audit, publisher: publisher}
}

func (r *Recorder) Record(ctx context.Context, actorUserID int64, action model.AuditAction, orderID int64, before, after interface{}) {
	e := Event{
		ID:           uuid.NewString(),
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		ActorUserID:  actorUserID,
		Before:       marshalSnapshot(before),
		After:        marshalSnapshot(after),
		OccurredAt:   time.Now(),
	}

	if err := r.audit.Create(ctx, model.AuditLog{
		ActorUserID:  e.ActorUserID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		BeforeJSON:   e.Before,
		AfterJSON:    e.After,
		CreatedAt:    e.OccurredAt,
	}); err != nil {
		slog.Error("audit log write failed",
			"action", string(e.Action),
			"resource_id", e.ResourceID,
			"error", err)
	}

	if err := r.publisher.Publish(ctx, e); err != nil {
		slog.Error("event publish failed",
			"action", string(e.Action),
			"resource_id", e.ResourceID,
			"error", err)
	}
}

func marshalSnapshot(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
