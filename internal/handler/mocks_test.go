package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/osse101/CardVault_Go/internal/allocation"
	"github.com/osse101/CardVault_Go/internal/collection"
	"github.com/osse101/CardVault_Go/internal/domain"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Start(ctx context.Context, ownerID string, scope domain.AuditScope, targetID string) (*domain.AuditSession, error) {
	args := m.Called(ctx, ownerID, scope, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditSession), args.Error(1)
}

func (m *MockAuditService) GetActive(ctx context.Context, ownerID string) (*domain.AuditSession, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditSession), args.Error(1)
}

func (m *MockAuditService) GetSession(ctx context.Context, ownerID string, id uuid.UUID) (*domain.AuditSession, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditSession), args.Error(1)
}

func (m *MockAuditService) ListItems(ctx context.Context, ownerID string, id uuid.UUID, filter domain.ItemFilter) ([]domain.AuditItem, error) {
	args := m.Called(ctx, ownerID, id, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditItem), args.Error(1)
}

func (m *MockAuditService) RecordCount(ctx context.Context, ownerID string, id uuid.UUID, itemID int64, quantity *int, reviewed *bool) (*domain.AuditItem, error) {
	args := m.Called(ctx, ownerID, id, itemID, quantity, reviewed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditItem), args.Error(1)
}

func (m *MockAuditService) BatchRecord(ctx context.Context, ownerID string, id uuid.UUID, updates []domain.CountUpdate) (int, error) {
	args := m.Called(ctx, ownerID, id, updates)
	return args.Int(0), args.Error(1)
}

func (m *MockAuditService) AddItem(ctx context.Context, ownerID string, id uuid.UUID, fragment domain.IdentityFragment) (*domain.AuditItem, error) {
	args := m.Called(ctx, ownerID, id, fragment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditItem), args.Error(1)
}

func (m *MockAuditService) ReviewSection(ctx context.Context, ownerID string, id uuid.UUID, section domain.ItemFilter) (int64, error) {
	args := m.Called(ctx, ownerID, id, section)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuditService) Stats(ctx context.Context, ownerID string, id uuid.UUID, groupBy domain.StatsGroupBy) (*domain.AuditStats, error) {
	args := m.Called(ctx, ownerID, id, groupBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditStats), args.Error(1)
}

func (m *MockAuditService) Finalize(ctx context.Context, ownerID string, id uuid.UUID) (*domain.FinalizeReport, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FinalizeReport), args.Error(1)
}

func (m *MockAuditService) Cancel(ctx context.Context, ownerID string, id uuid.UUID) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

func (m *MockAuditService) SwapFoil(ctx context.Context, ownerID string, id uuid.UUID, itemID int64) (*domain.FoilSwapResult, error) {
	args := m.Called(ctx, ownerID, id, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FoilSwapResult), args.Error(1)
}

// MockCollectionService is a mock implementation of collection.Service
type MockCollectionService struct {
	mock.Mock
}

func (m *MockCollectionService) List(ctx context.Context, ownerID string, filter collection.ListFilter) ([]domain.CardStack, error) {
	args := m.Called(ctx, ownerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CardStack), args.Error(1)
}

func (m *MockCollectionService) Export(ctx context.Context, ownerID string) ([]domain.CardStack, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CardStack), args.Error(1)
}

func (m *MockCollectionService) Acquire(ctx context.Context, ownerID string, in collection.NewStack) (*domain.CardStack, error) {
	args := m.Called(ctx, ownerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CardStack), args.Error(1)
}

func (m *MockCollectionService) Update(ctx context.Context, ownerID string, id int64, patch collection.StackPatch) (*domain.CardStack, error) {
	args := m.Called(ctx, ownerID, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CardStack), args.Error(1)
}

func (m *MockCollectionService) Dispose(ctx context.Context, ownerID string, id int64, n int) (int, error) {
	args := m.Called(ctx, ownerID, id, n)
	return args.Int(0), args.Error(1)
}

func (m *MockCollectionService) Move(ctx context.Context, ownerID string, req collection.MoveRequest) (*allocation.RelocateResult, error) {
	args := m.Called(ctx, ownerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.RelocateResult), args.Error(1)
}
