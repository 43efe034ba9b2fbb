package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/repository"
)

// RecordCount sets the counted quantity and/or review flag of one item
func (s *service) RecordCount(ctx context.Context, ownerID string, id uuid.UUID, itemID int64, quantity *int, reviewed *bool) (*domain.AuditItem, error) {
	if quantity == nil && reviewed == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgEmptyUpdate)
	}
	if quantity != nil && *quantity < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidQuantity, ErrMsgNegativeQuantity)
	}

	tx, err := s.repo.BeginAuditTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgBeginTx, err)
	}
	defer repository.SafeRollback(ctx, tx)

	session, err := s.openSession(ctx, tx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := tx.UpdateItemCount(ctx, session.ID, itemID, quantity, reviewed); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgUpdateItem, err)
	}
	item, err := tx.GetItem(ctx, session.ID, itemID, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgUpdateItem, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
	}
	return item, nil
}

// BatchRecord applies many counts in one transaction, marking each item reviewed
func (s *service) BatchRecord(ctx context.Context, ownerID string, id uuid.UUID, updates []domain.CountUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgEmptyBatch)
	}
	for _, u := range updates {
		if u.Quantity < 0 {
			return 0, fmt.Errorf("%w: item %d: %s", domain.ErrInvalidQuantity, u.ItemID, ErrMsgNegativeQuantity)
		}
	}

	tx, err := s.repo.BeginAuditTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgBeginTx, err)
	}
	defer repository.SafeRollback(ctx, tx)

	session, err := s.openSession(ctx, tx, ownerID, id)
	if err != nil {
		return 0, err
	}

	reviewed := true
	for _, u := range updates {
		quantity := u.Quantity
		if err := tx.UpdateItemCount(ctx, session.ID, u.ItemID, &quantity, &reviewed); err != nil {
			return 0, fmt.Errorf("%s %d: %w", ErrMsgUpdateItem, u.ItemID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
	}
	return len(updates), nil
}

// AddItem records one scanned copy. A matching item in the same section is
// incremented; otherwise an unexpected item is created with expected 0.
func (s *service) AddItem(ctx context.Context, ownerID string, id uuid.UUID, fragment domain.IdentityFragment) (*domain.AuditItem, error) {
	tx, err := s.repo.BeginAuditTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgBeginTx, err)
	}
	defer repository.SafeRollback(ctx, tx)

	session, err := s.openSession(ctx, tx, ownerID, id)
	if err != nil {
		return nil, err
	}

	identity, err := s.catalog.Resolve(ctx, fragment)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgAddItem, err)
	}

	var deckID *string
	if deck, ok := session.DeckTarget(); ok {
		deckID = &deck
	}

	item, err := tx.FindItem(ctx, session.ID, identity.CatalogID, identity.Finish, deckID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgAddItem, err)
	}
	if item != nil {
		item.ActualQuantity++
		item.Reviewed = true
		if err := tx.UpdateItemQuantities(ctx, item); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgAddItem, err)
		}
	} else {
		a := s.attributes(ctx, identity.CatalogID)
		item = &domain.AuditItem{
			SessionID:        session.ID,
			Identity:         identity,
			DeckID:           deckID,
			ExpectedQuantity: 0,
			ActualQuantity:   1,
			Reviewed:         true,
			TypeLine:         a.TypeLine,
			Rarity:           a.Rarity,
			Colors:           a.Colors,
		}
		if err := tx.InsertItem(ctx, item); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgAddItem, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
	}
	return item, nil
}

// ReviewSection marks every item of one deck or one loose set group as reviewed
func (s *service) ReviewSection(ctx context.Context, ownerID string, id uuid.UUID, section domain.ItemFilter) (int64, error) {
	if section.DeckID == "" && section.Group == "" {
		return 0, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgSectionRequired)
	}

	tx, err := s.repo.BeginAuditTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgBeginTx, err)
	}
	defer repository.SafeRollback(ctx, tx)

	session, err := s.openSession(ctx, tx, ownerID, id)
	if err != nil {
		return 0, err
	}
	n, err := tx.MarkSectionReviewed(ctx, session.ID, section)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgReviewSection, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
	}
	return n, nil
}
