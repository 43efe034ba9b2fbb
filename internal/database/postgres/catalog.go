package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/CardVault_Go/internal/domain"
)

const catalogColumns = `catalog_id, name, set_code, collector_number, type_line, rarity, colors`

// CatalogRepository implements repository.Catalog for PostgreSQL
type CatalogRepository struct {
	db *pgxpool.Pool
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) getOne(ctx context.Context, where string, args ...any) (*domain.CatalogCard, error) {
	var c domain.CatalogCard
	err := r.db.QueryRow(ctx, `SELECT `+catalogColumns+` FROM catalog_cards WHERE `+where+` ORDER BY catalog_id LIMIT 1`, args...).
		Scan(&c.CatalogID, &c.Name, &c.SetCode, &c.CollectorNumber, &c.TypeLine, &c.Rarity, &c.Colors)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetCatalogCard, err)
	}
	return &c, nil
}

// GetByCatalogID looks a card up by its external reference id
func (r *CatalogRepository) GetByCatalogID(ctx context.Context, catalogID string) (*domain.CatalogCard, error) {
	return r.getOne(ctx, `catalog_id = $1`, catalogID)
}

// GetBySetAndNumber looks a printing up by set code and collector number
func (r *CatalogRepository) GetBySetAndNumber(ctx context.Context, setCode, collectorNumber string) (*domain.CatalogCard, error) {
	return r.getOne(ctx, `lower(set_code) = lower($1) AND collector_number = $2`, setCode, collectorNumber)
}

// GetByName returns the first printing whose case-folded name matches
func (r *CatalogRepository) GetByName(ctx context.Context, name string) (*domain.CatalogCard, error) {
	return r.getOne(ctx, `name_folded = $1`, domain.FoldName(name))
}

// UpsertCard stores a catalog row; used by the import batch and tests
func (r *CatalogRepository) UpsertCard(ctx context.Context, c *domain.CatalogCard) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO catalog_cards (catalog_id, name, set_code, collector_number, type_line, rarity, colors, name_folded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (catalog_id) DO UPDATE SET
			name = EXCLUDED.name, name_folded = EXCLUDED.name_folded, set_code = EXCLUDED.set_code, collector_number = EXCLUDED.collector_number,
			type_line = EXCLUDED.type_line, rarity = EXCLUDED.rarity, colors = EXCLUDED.colors`,
		c.CatalogID, c.Name, c.SetCode, c.CollectorNumber, c.TypeLine, c.Rarity, nonNilStrings(c.Colors),
		domain.FoldName(c.Name))
	if err != nil {
		return fmt.Errorf("failed to upsert catalog card: %w", err)
	}
	return nil
}
