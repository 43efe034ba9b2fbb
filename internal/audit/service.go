package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/CardVault_Go/internal/allocation"
	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/event"
	"github.com/osse101/CardVault_Go/internal/logger"
	"github.com/osse101/CardVault_Go/internal/metrics"
	"github.com/osse101/CardVault_Go/internal/repository"
)

// Catalog resolves scanned cards and supplies grouping attributes
type Catalog interface {
	Resolve(ctx context.Context, fragment domain.IdentityFragment) (domain.StackIdentity, error)
	Attributes(ctx context.Context, catalogID string) (domain.CardAttributes, error)
}

// Service defines the audit session workflow. Every operation is scoped to the
// owner; sessions of other owners are reported as domain.ErrSessionNotFound.
type Service interface {
	Start(ctx context.Context, ownerID string, scope domain.AuditScope, targetID string) (*domain.AuditSession, error)
	GetActive(ctx context.Context, ownerID string) (*domain.AuditSession, error)
	GetSession(ctx context.Context, ownerID string, id uuid.UUID) (*domain.AuditSession, error)
	ListItems(ctx context.Context, ownerID string, id uuid.UUID, filter domain.ItemFilter) ([]domain.AuditItem, error)
	RecordCount(ctx context.Context, ownerID string, id uuid.UUID, itemID int64, quantity *int, reviewed *bool) (*domain.AuditItem, error)
	BatchRecord(ctx context.Context, ownerID string, id uuid.UUID, updates []domain.CountUpdate) (int, error)
	AddItem(ctx context.Context, ownerID string, id uuid.UUID, fragment domain.IdentityFragment) (*domain.AuditItem, error)
	ReviewSection(ctx context.Context, ownerID string, id uuid.UUID, section domain.ItemFilter) (int64, error)
	Stats(ctx context.Context, ownerID string, id uuid.UUID, groupBy domain.StatsGroupBy) (*domain.AuditStats, error)
	Finalize(ctx context.Context, ownerID string, id uuid.UUID) (*domain.FinalizeReport, error)
	Cancel(ctx context.Context, ownerID string, id uuid.UUID) error
	SwapFoil(ctx context.Context, ownerID string, id uuid.UUID, itemID int64) (*domain.FoilSwapResult, error)
}

type service struct {
	repo      repository.Audit
	catalog   Catalog
	engine    *allocation.Engine
	publisher *event.ResilientPublisher
	ttl       time.Duration
	now       func() time.Time
}

// NewService creates a new audit service. A nil publisher disables events.
func NewService(repo repository.Audit, catalog Catalog, engine *allocation.Engine, publisher *event.ResilientPublisher, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = domain.DefaultAuditSessionTTL
	}
	return &service{
		repo:      repo,
		catalog:   catalog,
		engine:    engine,
		publisher: publisher,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) publish(ctx context.Context, evt event.Event) {
	if s.publisher != nil {
		s.publisher.PublishWithRetry(ctx, evt)
	}
}

// Start snapshots the owner's stacks for the scope into a new active session
func (s *service) Start(ctx context.Context, ownerID string, scope domain.AuditScope, targetID string) (*domain.AuditSession, error) {
	log := logger.FromContext(ctx)

	if !scope.Valid() {
		return nil, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, ErrMsgUnknownScope, scope)
	}
	targetID = strings.TrimSpace(targetID)
	var target *string
	if scope.RequiresTarget() {
		if targetID == "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgTargetRequired)
		}
		target = &targetID
	}

	tx, err := s.repo.BeginAuditTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgBeginTx, err)
	}
	defer repository.SafeRollback(ctx, tx)

	now := s.now()
	expired, err := tx.ExpireSessions(ctx, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgExpireSessions, err)
	}
	if expired > 0 {
		log.Info(LogMsgSessionsExpired, "count", expired)
	}

	session := &domain.AuditSession{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Scope:     scope,
		TargetID:  target,
		Status:    domain.AuditStatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := tx.CreateSession(ctx, session); err != nil {
		if errors.Is(err, domain.ErrSessionConflict) {
			metrics.AuditSessions.WithLabelValues(string(scope), metrics.OutcomeConflict).Inc()
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgCreateSession, err)
	}

	items, err := s.snapshot(ctx, tx, session)
	if err != nil {
		return nil, err
	}
	if err := tx.InsertItems(ctx, items); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgSnapshot, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
	}

	metrics.AuditSessions.WithLabelValues(string(scope), metrics.OutcomeStarted).Inc()
	log.Info(LogMsgSessionStarted, "session_id", session.ID, "scope", scope, "items", len(items))
	s.publish(ctx, event.NewAuditStartedEvent(session, len(items)))
	return session, nil
}

// snapshot builds one item per non-wishlist stack in the session's scope
func (s *service) snapshot(ctx context.Context, tx repository.AuditTx, session *domain.AuditSession) ([]domain.AuditItem, error) {
	notWishlist := false
	q := domain.StackQuery{OwnerID: session.OwnerID, Wishlist: &notWishlist}
	switch session.Scope {
	case domain.ScopeBinder:
		loc := domain.Unassigned
		q.Location = &loc
	case domain.ScopeDeck:
		loc := domain.DeckLocation(*session.TargetID)
		q.Location = &loc
	case domain.ScopeSet:
		q.SetCode = *session.TargetID
	}

	stacks, err := tx.FindStacks(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgSnapshot, err)
	}

	attrs := make(map[string]domain.CardAttributes)
	items := make([]domain.AuditItem, 0, len(stacks))
	for i := range stacks {
		st := &stacks[i]
		a, ok := attrs[st.Identity.CatalogID]
		if !ok {
			a = s.attributes(ctx, st.Identity.CatalogID)
			attrs[st.Identity.CatalogID] = a
		}

		item := domain.AuditItem{
			SessionID:        session.ID,
			Identity:         st.Identity,
			DeckID:           st.Location.DeckIDPtr(),
			ExpectedQuantity: st.Quantity,
			TypeLine:         a.TypeLine,
			Rarity:           a.Rarity,
			Colors:           a.Colors,
		}
		if session.Scope.StartsVerified() {
			item.ActualQuantity = st.Quantity
		}
		items = append(items, item)
	}
	return items, nil
}

// attributes never fails: grouping falls back to the unknown bucket
func (s *service) attributes(ctx context.Context, catalogID string) domain.CardAttributes {
	if s.catalog == nil {
		return domain.CardAttributes{}
	}
	a, err := s.catalog.Attributes(ctx, catalogID)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgAttributesMissed, "catalog_id", catalogID, "error", err)
		return domain.CardAttributes{}
	}
	return a
}

func (s *service) GetActive(ctx context.Context, ownerID string) (*domain.AuditSession, error) {
	session, err := s.repo.GetActiveSession(ctx, ownerID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgGetSession, err)
	}
	return session, nil
}

func (s *service) GetSession(ctx context.Context, ownerID string, id uuid.UUID) (*domain.AuditSession, error) {
	return s.repo.GetSession(ctx, ownerID, id)
}

func (s *service) ListItems(ctx context.Context, ownerID string, id uuid.UUID, filter domain.ItemFilter) ([]domain.AuditItem, error) {
	session, err := s.repo.GetSession(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, session.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgListItems, err)
	}
	return items, nil
}

// openSession locks the session and rejects anything but an unexpired active session
func (s *service) openSession(ctx context.Context, tx repository.AuditTx, ownerID string, id uuid.UUID) (*domain.AuditSession, error) {
	session, err := tx.GetSessionForUpdate(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen(s.now()) {
		return nil, fmt.Errorf("%w: session is %s", domain.ErrSessionNotFound, session.Status)
	}
	return session, nil
}

// Cancel deletes an active session and its items. Expired sessions can be cancelled.
func (s *service) Cancel(ctx context.Context, ownerID string, id uuid.UUID) error {
	tx, err := s.repo.BeginAuditTx(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgBeginTx, err)
	}
	defer repository.SafeRollback(ctx, tx)

	session, err := tx.GetSessionForUpdate(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if session.Status != domain.AuditStatusActive {
		return fmt.Errorf("%w: session is %s", domain.ErrSessionNotFound, session.Status)
	}
	if err := tx.DeleteSession(ctx, session.ID); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgCancelSession, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
	}

	metrics.AuditSessions.WithLabelValues(string(session.Scope), metrics.OutcomeCancelled).Inc()
	logger.FromContext(ctx).Info(LogMsgSessionCancelled, "session_id", session.ID)
	s.publish(ctx, event.NewAuditCancelledEvent(session))
	return nil
}
