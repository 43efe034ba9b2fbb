package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/CardVault_Go/internal/domain"
)

// Audit defines the interface for audit session persistence
type Audit interface {
	// GetActiveSession returns the owner's unexpired active session, or nil.
	GetActiveSession(ctx context.Context, ownerID string, now time.Time) (*domain.AuditSession, error)
	GetSession(ctx context.Context, ownerID string, id uuid.UUID) (*domain.AuditSession, error)
	ListItems(ctx context.Context, sessionID uuid.UUID, filter domain.ItemFilter) ([]domain.AuditItem, error)
	BeginAuditTx(ctx context.Context) (AuditTx, error)
}

// AuditTx extends Tx with audit and stack operations so that snapshotting
// and reconciliation share one transaction.
type AuditTx interface {
	Tx
	Stacks

	// ExpireSessions marks the owner's active sessions whose expiry has passed.
	ExpireSessions(ctx context.Context, ownerID string, now time.Time) (int64, error)
	// CreateSession returns domain.ErrSessionConflict when the owner already has an active session.
	CreateSession(ctx context.Context, session *domain.AuditSession) error
	GetSessionForUpdate(ctx context.Context, ownerID string, id uuid.UUID) (*domain.AuditSession, error)
	CompleteSession(ctx context.Context, id uuid.UUID, endedAt time.Time) error
	// DeleteSession removes the session's items and then the session.
	DeleteSession(ctx context.Context, id uuid.UUID) error

	InsertItems(ctx context.Context, items []domain.AuditItem) error
	InsertItem(ctx context.Context, item *domain.AuditItem) error
	GetItem(ctx context.Context, sessionID uuid.UUID, itemID int64, forUpdate bool) (*domain.AuditItem, error)
	// FindItem returns the item for a printing within one section, or nil.
	FindItem(ctx context.Context, sessionID uuid.UUID, catalogID string, finish domain.Finish, deckID *string) (*domain.AuditItem, error)
	ListItems(ctx context.Context, sessionID uuid.UUID, filter domain.ItemFilter) ([]domain.AuditItem, error)
	UpdateItemCount(ctx context.Context, sessionID uuid.UUID, itemID int64, actual *int, reviewed *bool) error
	UpdateItemQuantities(ctx context.Context, item *domain.AuditItem) error
	MarkSectionReviewed(ctx context.Context, sessionID uuid.UUID, filter domain.ItemFilter) (int64, error)
}
