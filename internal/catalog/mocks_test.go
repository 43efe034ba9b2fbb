package catalog

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/osse101/CardVault_Go/internal/domain"
)

// MockRepository implements repository.Catalog for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByCatalogID(ctx context.Context, catalogID string) (*domain.CatalogCard, error) {
	args := m.Called(ctx, catalogID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogCard), args.Error(1)
}

func (m *MockRepository) GetBySetAndNumber(ctx context.Context, setCode, collectorNumber string) (*domain.CatalogCard, error) {
	args := m.Called(ctx, setCode, collectorNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogCard), args.Error(1)
}

func (m *MockRepository) GetByName(ctx context.Context, name string) (*domain.CatalogCard, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogCard), args.Error(1)
}
