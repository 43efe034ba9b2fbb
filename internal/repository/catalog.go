package repository

import (
	"context"

	"github.com/osse101/CardVault_Go/internal/domain"
)

// Catalog defines read access to the shared card catalog.
// Lookups return nil, nil when no row matches.
type Catalog interface {
	GetByCatalogID(ctx context.Context, catalogID string) (*domain.CatalogCard, error)
	GetBySetAndNumber(ctx context.Context, setCode, collectorNumber string) (*domain.CatalogCard, error)
	GetByName(ctx context.Context, name string) (*domain.CatalogCard, error)
}
