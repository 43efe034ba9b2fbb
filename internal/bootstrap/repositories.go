package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/CardVault_Go/internal/database/postgres"
	"github.com/osse101/CardVault_Go/internal/repository"
)

// Repositories holds all repository implementations used by the application.
type Repositories struct {
	Stacks  repository.StackRepository
	Audit   repository.Audit
	Catalog *postgres.CatalogRepository
}

// InitializeRepositories creates all repository implementations.
func InitializeRepositories(dbPool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Stacks:  postgres.NewStackRepository(dbPool),
		Audit:   postgres.NewAuditRepository(dbPool),
		Catalog: postgres.NewCatalogRepository(dbPool),
	}
}
