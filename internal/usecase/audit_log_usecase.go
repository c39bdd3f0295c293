package usecase

import (
	"context"
	"net/http"
	"time"

	repo "foodorder/internal/repository"
)

// 監査証跡の照会。書き込みはRecorder経由のみで、ここは読むだけ。
type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

type AuditLogOutput struct {
	ID           int64     `json:"id"`
	ActorUserID  int64     `json:"actor_user_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   int64     `json:"resource_id"`
	BeforeJSON   string    `json:"before_json,omitempty"`
	AfterJSON    string    `json:"after_json,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type AuditLogListOutput struct {
	Items []AuditLogOutput `json:"items"`
}

func (u *AuditLogUsecase) List(ctx context.Context, actor Actor, f repo.AuditLogFilter) (AuditLogListOutput, error) {
	if actor.UserID <= 0 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.Admin {
		return AuditLogListOutput{}, NewHTTPError(http.StatusForbidden, "admin only")
	}
	if f.Action != nil && !f.Action.Valid() {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid action")
	}
	if f.Offset < 0 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}

	logs, err := u.logs.List(ctx, f)
	if err != nil {
		return AuditLogListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items := make([]AuditLogOutput, 0, len(logs))
	for _, l := range logs {
		items = append(items, AuditLogOutput{
			ID:           l.ID,
			ActorUserID:  l.ActorUserID,
			Action:       string(l.Action),
			ResourceType: string(l.ResourceType),
			ResourceID:   l.ResourceID,
			BeforeJSON:   l.BeforeJSON,
			AfterJSON:    l.AfterJSON,
			CreatedAt:    l.CreatedAt,
		})
	}
	return AuditLogListOutput{Items: items}, nil
}
