package services

import (
	"context"

	"github.com/minhasfinancas/backend/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Record(ctx context.Context, entry models.AuditEntry) {
	m.Called(ctx, entry)
}

// newAuditSink returns a sink that accepts every entry, for tests that
// only care about the primary operation.
func newAuditSink() *MockAuditSink {
	sink := new(MockAuditSink)
	sink.On("Record", mock.Anything, mock.Anything).Return()
	return sink
}
