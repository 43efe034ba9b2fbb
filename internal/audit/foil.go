package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/osse101/CardVault_Go/internal/allocation"
	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/event"
	"github.com/osse101/CardVault_Go/internal/logger"
	"github.com/osse101/CardVault_Go/internal/metrics"
	"github.com/osse101/CardVault_Go/internal/repository"
)

// SwapFoil exchanges one nonfoil copy of the item's card in the audited deck
// for a premium copy from the binder and adjusts both audit items. The item
// must be a nonfoil item.
func (s *service) SwapFoil(ctx context.Context, ownerID string, id uuid.UUID, itemID int64) (*domain.FoilSwapResult, error) {
	tx, err := s.repo.BeginAuditTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgBeginTx, err)
	}
	defer repository.SafeRollback(ctx, tx)

	session, err := s.openSession(ctx, tx, ownerID, id)
	if err != nil {
		return nil, err
	}
	deckID, ok := session.DeckTarget()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgNotDeckAudit)
	}
	item, err := tx.GetItem(ctx, session.ID, itemID, true)
	if err != nil {
		return nil, err
	}
	if item.Identity.Finish.IsPremium() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgSwapFromPremium)
	}
	catalogID := item.Identity.CatalogID
	deck := domain.DeckLocation(deckID)

	nonfoil, err := s.findSwapStack(ctx, tx, ownerID, catalogID, deck, false)
	if err != nil {
		return nil, err
	}
	if nonfoil == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, ErrMsgNoNonfoilInDeck)
	}
	premium, err := s.findSwapStack(ctx, tx, ownerID, catalogID, domain.Unassigned, true)
	if err != nil {
		return nil, err
	}
	if premium == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, ErrMsgNoFoilInBinder)
	}

	out, err := s.engine.Relocate(ctx, tx, swapRequest(ownerID, nonfoil.Identity, deck, domain.Unassigned))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgSwapFoil, err)
	}
	in, err := s.engine.Relocate(ctx, tx, swapRequest(ownerID, premium.Identity, domain.Unassigned, deck))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgSwapFoil, err)
	}

	result, err := s.swapItems(ctx, tx, session.ID, deckID, nonfoil.Identity, premium.Identity)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
	}

	allocation.RecordMetrics(metrics.ReasonFoilSwap, out)
	allocation.RecordMetrics(metrics.ReasonFoilSwap, in)
	logger.FromContext(ctx).Info(LogMsgFoilSwapped,
		"session_id", session.ID,
		"deck_id", deckID,
		"catalog_id", catalogID,
		"finish", premium.Identity.Finish)
	s.publish(ctx, event.NewFoilSwappedEvent(ownerID, session.ID, deckID, premium.Identity))
	return result, nil
}

// findSwapStack returns the first non-wishlist stack of the card at loc with
// the wanted finish class, or nil
func (s *service) findSwapStack(ctx context.Context, tx repository.AuditTx, ownerID, catalogID string, loc domain.Location, premium bool) (*domain.CardStack, error) {
	notWishlist := false
	stacks, err := tx.FindStacks(ctx, domain.StackQuery{
		OwnerID:   ownerID,
		CatalogID: catalogID,
		Location:  &loc,
		Wishlist:  &notWishlist,
		ForUpdate: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgSwapFoil, err)
	}
	for i := range stacks {
		if stacks[i].Identity.Finish.IsPremium() == premium {
			return &stacks[i], nil
		}
	}
	return nil, nil
}

func swapRequest(ownerID string, identity domain.StackIdentity, from, to domain.Location) allocation.RelocateRequest {
	return allocation.RelocateRequest{
		OwnerID:    ownerID,
		Match:      identity,
		From:       from,
		To:         to,
		Quantity:   1,
		Preference: domain.PreferNone,
		Shortfall:  domain.ShortfallFail,
	}
}

// swapItems moves one expected copy from the nonfoil item to the premium item
func (s *service) swapItems(ctx context.Context, tx repository.AuditTx, sessionID uuid.UUID, deckID string, nonfoil, premium domain.StackIdentity) (*domain.FoilSwapResult, error) {
	nonfoilItem, err := tx.FindItem(ctx, sessionID, nonfoil.CatalogID, nonfoil.Finish, &deckID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgSwapFoil, err)
	}
	if nonfoilItem == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, ErrMsgNoNonfoilItem)
	}
	nonfoilItem.ExpectedQuantity = max(nonfoilItem.ExpectedQuantity-1, 0)
	nonfoilItem.ActualQuantity = min(nonfoilItem.ActualQuantity, nonfoilItem.ExpectedQuantity)
	if err := tx.UpdateItemQuantities(ctx, nonfoilItem); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgSwapFoil, err)
	}

	foilItem, err := tx.FindItem(ctx, sessionID, premium.CatalogID, premium.Finish, &deckID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgSwapFoil, err)
	}
	if foilItem == nil {
		a := s.attributes(ctx, premium.CatalogID)
		foilItem = &domain.AuditItem{
			SessionID:        sessionID,
			Identity:         premium,
			DeckID:           &deckID,
			ExpectedQuantity: 1,
			ActualQuantity:   1,
			Reviewed:         true,
			TypeLine:         a.TypeLine,
			Rarity:           a.Rarity,
			Colors:           a.Colors,
		}
		if err := tx.InsertItem(ctx, foilItem); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgSwapFoil, err)
		}
	} else {
		foilItem.ExpectedQuantity++
		foilItem.ActualQuantity++
		if err := tx.UpdateItemQuantities(ctx, foilItem); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgSwapFoil, err)
		}
	}

	return &domain.FoilSwapResult{Nonfoil: nonfoilItem, Foil: foilItem}, nil
}
