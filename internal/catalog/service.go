package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/logger"
	"github.com/osse101/CardVault_Go/internal/repository"
)

// Service resolves partial card references against the shared catalog
type Service interface {
	// Resolve finds the catalog row for a fragment and returns it as an identity
	// in the fragment's finish. Misses return domain.ErrIdentityNotFound.
	Resolve(ctx context.Context, fragment domain.IdentityFragment) (domain.StackIdentity, error)
	// Attributes returns the grouping attributes of a card. A missing card yields
	// empty attributes, not an error.
	Attributes(ctx context.Context, catalogID string) (domain.CardAttributes, error)
	InvalidateAll()
}

type service struct {
	repo  repository.Catalog
	cache *cardCache
}

// NewService creates a catalog service with an expiring LRU in front of the repository
func NewService(repo repository.Catalog, cacheSize int, cacheTTL time.Duration) Service {
	return &service{
		repo:  repo,
		cache: newCardCache(cacheSize, cacheTTL),
	}
}

func (s *service) Resolve(ctx context.Context, fragment domain.IdentityFragment) (domain.StackIdentity, error) {
	finish := domain.NormalizeFinish(string(fragment.Finish))
	if !finish.Valid() {
		return domain.StackIdentity{}, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, ErrMsgInvalidFinish, fragment.Finish)
	}

	card, err := s.lookup(ctx, fragment)
	if err != nil {
		return domain.StackIdentity{}, err
	}
	if card == nil {
		logger.FromContext(ctx).Debug(LogMsgCatalogMiss,
			"catalog_id", fragment.CatalogID,
			"set_code", fragment.SetCode,
			"collector_number", fragment.CollectorNumber,
			"name", fragment.Name)
		return domain.StackIdentity{}, fmt.Errorf("%w: %s", domain.ErrIdentityNotFound, describe(fragment))
	}
	return card.Identity(finish), nil
}

func (s *service) Attributes(ctx context.Context, catalogID string) (domain.CardAttributes, error) {
	if catalogID == "" {
		return domain.CardAttributes{}, nil
	}
	card, err := s.byCatalogID(ctx, catalogID)
	if err != nil || card == nil {
		return domain.CardAttributes{}, err
	}
	return card.Attributes(), nil
}

func (s *service) InvalidateAll() {
	s.cache.Clear()
}

// lookup tries the catalog id, then set and collector number, then the folded name
func (s *service) lookup(ctx context.Context, f domain.IdentityFragment) (*domain.CatalogCard, error) {
	if f.CatalogID == "" && f.Name == "" && (f.SetCode == "" || f.CollectorNumber == "") {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgEmptyFragment)
	}

	if f.CatalogID != "" {
		card, err := s.byCatalogID(ctx, f.CatalogID)
		if err != nil || card != nil {
			return card, err
		}
	}

	if f.SetCode != "" && f.CollectorNumber != "" {
		key := keyPrefixSetNumber + strings.ToLower(f.SetCode) + "/" + f.CollectorNumber
		if card, ok := s.cache.Get(key); ok {
			return card, nil
		}
		card, err := s.repo.GetBySetAndNumber(ctx, f.SetCode, f.CollectorNumber)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgCatalogLookup, err)
		}
		if card != nil {
			s.remember(card)
			return card, nil
		}
	}

	if f.Name != "" {
		key := keyPrefixFoldedName + domain.FoldName(f.Name)
		if card, ok := s.cache.Get(key); ok {
			return card, nil
		}
		card, err := s.repo.GetByName(ctx, strings.TrimSpace(f.Name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgCatalogLookup, err)
		}
		if card != nil {
			s.cache.Set(card, key)
			s.remember(card)
			return card, nil
		}
	}

	return nil, nil
}

func (s *service) byCatalogID(ctx context.Context, catalogID string) (*domain.CatalogCard, error) {
	if card, ok := s.cache.Get(keyPrefixID + catalogID); ok {
		return card, nil
	}
	card, err := s.repo.GetByCatalogID(ctx, catalogID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgCatalogLookup, err)
	}
	if card != nil {
		s.remember(card)
	}
	return card, nil
}

// remember caches a card under its id and its set/number keys
func (s *service) remember(card *domain.CatalogCard) {
	s.cache.Set(card,
		keyPrefixID+card.CatalogID,
		keyPrefixSetNumber+strings.ToLower(card.SetCode)+"/"+card.CollectorNumber)
}

func describe(f domain.IdentityFragment) string {
	switch {
	case f.CatalogID != "":
		return "catalog id " + f.CatalogID
	case f.SetCode != "" && f.CollectorNumber != "":
		return f.SetCode + " #" + f.CollectorNumber
	default:
		return "name " + f.Name
	}
}
