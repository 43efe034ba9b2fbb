package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/CardVault_Go/internal/allocation"
	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/event"
	"github.com/osse101/CardVault_Go/internal/logger"
	"github.com/osse101/CardVault_Go/internal/metrics"
	"github.com/osse101/CardVault_Go/internal/repository"
)

// Finalize reconciles every deck-scoped item whose count differs from its
// snapshot and completes the session. Shortfalls and unresolvable identities
// are recorded on the item's outcome; any other error rolls back everything.
func (s *service) Finalize(ctx context.Context, ownerID string, id uuid.UUID) (*domain.FinalizeReport, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	tx, err := s.repo.BeginAuditTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgBeginTx, err)
	}
	defer repository.SafeRollback(ctx, tx)

	session, err := s.openSession(ctx, tx, ownerID, id)
	if err != nil {
		return nil, err
	}
	items, err := tx.ListItems(ctx, session.ID, domain.ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgListItems, err)
	}

	report := &domain.FinalizeReport{SessionID: session.ID, Outcomes: []domain.ItemOutcome{}}
	total := &allocation.RelocateResult{}
	var shortfalls []error

	for i := range items {
		item := &items[i]
		deckID, ok := reconcileDeck(session, item)
		if !ok || item.Diff() == 0 {
			continue
		}

		outcome := domain.ItemOutcome{
			ItemID: item.ID,
			Name:   item.Identity.Name,
			DeckID: deckID,
			Diff:   item.Diff(),
			Status: domain.OutcomeApplied,
		}

		result, err := s.engine.Relocate(ctx, tx, reconcileRequest(ownerID, item, deckID))
		if result != nil {
			outcome.Moved = result.Moved
			outcome.Materialized = result.Materialized
			total.Moved += result.Moved
			total.Materialized += result.Materialized
		}
		if err != nil {
			if !isSoftFailure(err) {
				return nil, fmt.Errorf("%s %d: %w", ErrMsgReconcileItem, item.ID, err)
			}
			outcome.Status = domain.OutcomeSkipped
			if outcome.Moved+outcome.Materialized > 0 {
				outcome.Status = domain.OutcomePartial
			}
			outcome.Error = err.Error()
			shortfalls = append(shortfalls, err)
			log.Warn(LogMsgItemSoftFailure, "session_id", session.ID, "item_id", item.ID, "error", err)
		}

		if outcome.Status == domain.OutcomeApplied {
			report.Applied++
		} else {
			report.Failed++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	if err := tx.CompleteSession(ctx, session.ID, s.now()); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgCompleteSession, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
	}

	allocation.RecordMetrics(metrics.ReasonFinalize, total)
	for _, err := range shortfalls {
		allocation.RecordShortfall(metrics.ReasonFinalize, err)
	}
	for _, o := range report.Outcomes {
		metrics.AuditItemsReconciled.WithLabelValues(string(o.Status)).Inc()
	}
	metrics.AuditSessions.WithLabelValues(string(session.Scope), metrics.OutcomeFinalized).Inc()
	metrics.AuditFinalizeDuration.Observe(time.Since(start).Seconds())

	log.Info(LogMsgSessionFinalized,
		"session_id", session.ID,
		"applied", report.Applied,
		"failed", report.Failed,
		"moved", total.Moved,
		"materialized", total.Materialized)
	s.publish(ctx, event.NewAuditFinalizedEvent(ownerID, report))
	return report, nil
}

// reconcileDeck returns the deck an item's diff applies to. Deck audits use
// their target; other scopes use the deck the item was snapshotted in.
func reconcileDeck(session *domain.AuditSession, item *domain.AuditItem) (string, bool) {
	if deck, ok := session.DeckTarget(); ok {
		return deck, true
	}
	if item.DeckID != nil && *item.DeckID != "" {
		return *item.DeckID, true
	}
	return "", false
}

// reconcileRequest returns surplus copies to the binder and fills missing
// copies from it, preferring premium finishes and materializing the rest.
func reconcileRequest(ownerID string, item *domain.AuditItem, deckID string) allocation.RelocateRequest {
	deck := domain.DeckLocation(deckID)
	req := allocation.RelocateRequest{
		OwnerID: ownerID,
		Match:   item.Identity,
	}
	if diff := item.Diff(); diff < 0 {
		req.From, req.To = deck, domain.Unassigned
		req.Quantity = -diff
		req.Preference = domain.PreferNone
		req.Shortfall = domain.ShortfallFail
	} else {
		req.From, req.To = domain.Unassigned, deck
		req.Quantity = diff
		req.Preference = domain.PreferPremium
		req.Shortfall = domain.ShortfallMaterialize
	}
	return req
}

func isSoftFailure(err error) bool {
	return errors.Is(err, domain.ErrInsufficientSource) || errors.Is(err, domain.ErrIdentityNotFound)
}
