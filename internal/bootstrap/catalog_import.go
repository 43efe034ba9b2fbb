package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/validation"
)

// CatalogWriter stores catalog rows
type CatalogWriter interface {
	UpsertCard(ctx context.Context, c *domain.CatalogCard) error
}

// ImportCatalog loads a JSON array of catalog cards and upserts each one.
// The whole file is checked against the catalog schema before anything is written.
func ImportCatalog(ctx context.Context, w CatalogWriter, path string) (int, error) {
	slog.Info(LogMsgImportingCatalog, "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgFailedReadCatalog, err)
	}
	if err := validation.NewSchemaValidator().Validate(data, validation.SchemaCatalog); err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgInvalidCatalog, err)
	}
	var cards []domain.CatalogCard
	if err := json.Unmarshal(data, &cards); err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgInvalidCatalog, err)
	}
	if err := checkDuplicates(cards); err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgInvalidCatalog, err)
	}

	for i := range cards {
		if err := w.UpsertCard(ctx, &cards[i]); err != nil {
			return i, fmt.Errorf("%s %s: %w", ErrMsgFailedImportCatalog, cards[i].CatalogID, err)
		}
	}

	slog.Info(LogMsgCatalogImported, "cards", len(cards))
	return len(cards), nil
}

// checkDuplicates rejects repeated catalog ids, which the schema cannot express
func checkDuplicates(cards []domain.CatalogCard) error {
	var errs []error
	seen := make(map[string]bool, len(cards))
	for i, c := range cards {
		if seen[c.CatalogID] {
			errs = append(errs, fmt.Errorf("card %d: duplicate catalog_id %s", i, c.CatalogID))
		}
		seen[c.CatalogID] = true
	}
	return errors.Join(errs...)
}
