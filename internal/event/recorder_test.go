package event

import (
	"context"
	"errors"
	"testing"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type auditRepoMock struct{ mock.Mock }

func (m *auditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *auditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type publisherMock struct{ mock.Mock }

func (m *publisherMock) Publish(ctx context.Context, e Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func TestRecorder_WritesAuditAndPublishes(t *testing.T) {
	audit := new(auditRepoMock)
	pub := new(publisherMock)

	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionPayOrder &&
			l.ResourceType == model.AuditResourceOrder &&
			l.ResourceID == 5 &&
			l.ActorUserID == 7
	})).Return(nil)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e Event) bool {
		return e.Action == model.AuditActionPayOrder && e.ResourceID == 5 && e.ID != ""
	})).Return(nil)

	r := NewRecorder(audit, pub)
	r.Record(context.Background(), 7, model.AuditActionPayOrder, 5,
		map[string]string{"payment_status": "UNPAID"},
		map[string]string{"payment_status": "PAID"})

	audit.AssertExpectations(t)
	pub.AssertExpectations(t)
}

// 監査側が落ちてもRecordは失敗を伝播しない（コミット済みの変更を巻き戻さない）
func TestRecorder_AuditFailureDoesNotPropagate(t *testing.T) {
	audit := new(auditRepoMock)
	pub := new(publisherMock)

	audit.On("Create", mock.Anything, mock.Anything).Return(errors.New("sink down"))
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	r := NewRecorder(audit, pub)
	assert.NotPanics(t, func() {
		r.Record(context.Background(), 7, model.AuditActionCreateOrder, 5, nil, map[string]string{"status": "PENDING"})
	})

	//監査が落ちてもブローカーへは出す
	pub.AssertExpectations(t)
}

func TestRecorder_PublishFailureDoesNotPropagate(t *testing.T) {
	audit := new(auditRepoMock)
	pub := new(publisherMock)

	audit.On("Create", mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	r := NewRecorder(audit, pub)
	assert.NotPanics(t, func() {
		r.Record(context.Background(), 7, model.AuditActionCancelOrder, 5, nil, nil)
	})

	audit.AssertExpectations(t)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), Event{}))
}
