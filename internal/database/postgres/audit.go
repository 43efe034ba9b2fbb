package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/repository"
)

const sessionColumns = `id, owner_id, scope, target_id, status, created_at, expires_at, ended_at`

const itemColumns = `id, session_id, catalog_id, name, set_code, collector_number, finish, deck_id,
	expected_quantity, actual_quantity, reviewed, type_line, rarity, colors`

// auditStore implements the audit queries over any querier
type auditStore struct {
	q querier
}

// AuditRepository implements repository.Audit for PostgreSQL
type AuditRepository struct {
	auditStore
	db *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{auditStore: auditStore{q: db}, db: db}
}

// auditTx shares one pgx transaction between audit and stack operations
type auditTx struct {
	pgTx
	stackStore
	auditStore
}

// BeginAuditTx starts a transaction covering sessions, items and stacks
func (r *AuditRepository) BeginAuditTx(ctx context.Context) (repository.AuditTx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	return &auditTx{
		pgTx:       pgTx{tx: tx},
		stackStore: stackStore{q: tx},
		auditStore: auditStore{q: tx},
	}, nil
}

func scanSession(row pgx.Row) (*domain.AuditSession, error) {
	var (
		s      domain.AuditSession
		scope  string
		status string
	)
	if err := row.Scan(&s.ID, &s.OwnerID, &scope, &s.TargetID, &status, &s.CreatedAt, &s.ExpiresAt, &s.EndedAt); err != nil {
		return nil, err
	}
	s.Scope = domain.AuditScope(scope)
	s.Status = domain.AuditStatus(status)
	return &s, nil
}

func scanItem(row pgx.Row) (*domain.AuditItem, error) {
	var (
		it     domain.AuditItem
		finish string
	)
	err := row.Scan(&it.ID, &it.SessionID, &it.Identity.CatalogID, &it.Identity.Name, &it.Identity.SetCode,
		&it.Identity.CollectorNumber, &finish, &it.DeckID, &it.ExpectedQuantity, &it.ActualQuantity,
		&it.Reviewed, &it.TypeLine, &it.Rarity, &it.Colors)
	if err != nil {
		return nil, err
	}
	it.Identity.Finish = domain.Finish(finish)
	return &it, nil
}

// GetActiveSession returns the owner's unexpired active session, or nil when there is none
func (s *auditStore) GetActiveSession(ctx context.Context, ownerID string, now time.Time) (*domain.AuditSession, error) {
	session, err := scanSession(s.q.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM audit_sessions
		 WHERE owner_id = $1 AND status = $2 AND expires_at > $3`,
		ownerID, statusActive, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetSession, err)
	}
	return session, nil
}

// GetSession returns one of the owner's sessions
func (s *auditStore) GetSession(ctx context.Context, ownerID string, id uuid.UUID) (*domain.AuditSession, error) {
	return s.getSession(ctx, ownerID, id, false)
}

// GetSessionForUpdate returns one of the owner's sessions and locks its row
func (s *auditStore) GetSessionForUpdate(ctx context.Context, ownerID string, id uuid.UUID) (*domain.AuditSession, error) {
	return s.getSession(ctx, ownerID, id, true)
}

func (s *auditStore) getSession(ctx context.Context, ownerID string, id uuid.UUID, forUpdate bool) (*domain.AuditSession, error) {
	sql := `SELECT ` + sessionColumns + ` FROM audit_sessions WHERE id = $1 AND owner_id = $2`
	if forUpdate {
		sql += " FOR UPDATE"
	}
	session, err := scanSession(s.q.QueryRow(ctx, sql, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetSession, err)
	}
	return session, nil
}

// ExpireSessions marks the owner's lapsed active sessions as expired
func (s *auditStore) ExpireSessions(ctx context.Context, ownerID string, now time.Time) (int64, error) {
	tag, err := s.q.Exec(ctx, `
		UPDATE audit_sessions SET status = $3, ended_at = $2
		WHERE owner_id = $1 AND status = $4 AND expires_at <= $2`,
		ownerID, now, statusExpired, statusActive)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgFailedToExpireSessions, err)
	}
	return tag.RowsAffected(), nil
}

// CreateSession inserts a session; the partial unique index rejects a second active one
func (s *auditStore) CreateSession(ctx context.Context, session *domain.AuditSession) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO audit_sessions (id, owner_id, scope, target_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.OwnerID, string(session.Scope), session.TargetID, string(session.Status),
		session.CreatedAt, session.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err, ConstraintOneActiveSession) {
			return domain.ErrSessionConflict
		}
		return fmt.Errorf("%s: %w", ErrMsgFailedToCreateSession, err)
	}
	return nil
}

// CompleteSession moves an active session to completed
func (s *auditStore) CompleteSession(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE audit_sessions SET status = $3, ended_at = $2 WHERE id = $1 AND status = $4`,
		id, endedAt, statusCompleted, statusActive)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToCompleteSession, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes the items first and then the session
func (s *auditStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM audit_items WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToDeleteSession, err)
	}
	tag, err := s.q.Exec(ctx, `DELETE FROM audit_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToDeleteSession, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// InsertItems bulk loads a snapshot with COPY
func (s *auditStore) InsertItems(ctx context.Context, items []domain.AuditItem) error {
	if len(items) == 0 {
		return nil
	}
	columns := []string{"session_id", "catalog_id", "name", "set_code", "collector_number", "finish", "deck_id",
		"expected_quantity", "actual_quantity", "reviewed", "type_line", "rarity", "colors"}

	_, err := s.q.CopyFrom(ctx, pgx.Identifier{"audit_items"}, columns,
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			it := items[i]
			return []any{
				it.SessionID, it.Identity.CatalogID, it.Identity.Name, it.Identity.SetCode,
				it.Identity.CollectorNumber, string(it.Identity.Finish), it.DeckID,
				it.ExpectedQuantity, it.ActualQuantity, it.Reviewed, it.TypeLine, it.Rarity,
				nonNilStrings(it.Colors),
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToInsertItems, err)
	}
	return nil
}

// InsertItem adds one item and sets its id
func (s *auditStore) InsertItem(ctx context.Context, item *domain.AuditItem) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO audit_items (session_id, catalog_id, name, set_code, collector_number, finish, deck_id,
			expected_quantity, actual_quantity, reviewed, type_line, rarity, colors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		item.SessionID, item.Identity.CatalogID, item.Identity.Name, item.Identity.SetCode,
		item.Identity.CollectorNumber, string(item.Identity.Finish), item.DeckID,
		item.ExpectedQuantity, item.ActualQuantity, item.Reviewed, item.TypeLine, item.Rarity,
		nonNilStrings(item.Colors),
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToInsertItem, err)
	}
	return nil
}

// GetItem returns one item of the session
func (s *auditStore) GetItem(ctx context.Context, sessionID uuid.UUID, itemID int64, forUpdate bool) (*domain.AuditItem, error) {
	sql := `SELECT ` + itemColumns + ` FROM audit_items WHERE id = $1 AND session_id = $2`
	if forUpdate {
		sql += " FOR UPDATE"
	}
	item, err := scanItem(s.q.QueryRow(ctx, sql, itemID, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetItem, err)
	}
	return item, nil
}

// FindItem returns the item for a printing in one section, or nil
func (s *auditStore) FindItem(ctx context.Context, sessionID uuid.UUID, catalogID string, finish domain.Finish, deckID *string) (*domain.AuditItem, error) {
	item, err := scanItem(s.q.QueryRow(ctx, `
		SELECT `+itemColumns+` FROM audit_items
		WHERE session_id = $1 AND catalog_id = $2 AND finish = $3 AND deck_id IS NOT DISTINCT FROM $4
		ORDER BY id LIMIT 1 FOR UPDATE`,
		sessionID, catalogID, string(finish), deckID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetItem, err)
	}
	return item, nil
}

// ListItems returns the session's items, optionally narrowed to a deck or a loose set group
func (s *auditStore) ListItems(ctx context.Context, sessionID uuid.UUID, filter domain.ItemFilter) ([]domain.AuditItem, error) {
	w := &whereBuilder{args: []any{sessionID}}
	applyItemFilter(w, filter)

	rows, err := s.q.Query(ctx,
		`SELECT `+itemColumns+` FROM audit_items WHERE session_id = $1`+w.String()+` ORDER BY name, id`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListItems, err)
	}
	defer rows.Close()

	var items []domain.AuditItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListItems, err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToListItems, err)
	}
	return items, nil
}

func applyItemFilter(w *whereBuilder, filter domain.ItemFilter) {
	switch {
	case filter.DeckID != "":
		w.add("deck_id = $%d", filter.DeckID)
	case filter.Group != "":
		w.raw("deck_id IS NULL")
		w.add("lower(set_code) = lower($%d)", filter.Group)
	}
}

// UpdateItemCount records a count and/or review flag; nil arguments are left unchanged
func (s *auditStore) UpdateItemCount(ctx context.Context, sessionID uuid.UUID, itemID int64, actual *int, reviewed *bool) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE audit_items
		SET actual_quantity = COALESCE($3, actual_quantity), reviewed = COALESCE($4, reviewed)
		WHERE id = $2 AND session_id = $1`,
		sessionID, itemID, actual, reviewed)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpdateItem, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// UpdateItemQuantities writes expected, actual and reviewed of an item
func (s *auditStore) UpdateItemQuantities(ctx context.Context, item *domain.AuditItem) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE audit_items SET expected_quantity = $3, actual_quantity = $4, reviewed = $5
		WHERE id = $2 AND session_id = $1`,
		item.SessionID, item.ID, item.ExpectedQuantity, item.ActualQuantity, item.Reviewed)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpdateItem, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// MarkSectionReviewed flags every item of a deck or loose group as reviewed
func (s *auditStore) MarkSectionReviewed(ctx context.Context, sessionID uuid.UUID, filter domain.ItemFilter) (int64, error) {
	w := &whereBuilder{args: []any{sessionID}}
	applyItemFilter(w, filter)

	tag, err := s.q.Exec(ctx, `UPDATE audit_items SET reviewed = TRUE WHERE session_id = $1`+w.String(), w.args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgFailedToReviewSection, err)
	}
	return tag.RowsAffected(), nil
}
