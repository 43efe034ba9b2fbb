package repository

import (
	"context"

	"github.com/osse101/CardVault_Go/internal/domain"
)

// Stacks is the storage contract the allocation engine works against.
// Mutating calls are expected to run inside the caller's transaction.
type Stacks interface {
	FindStacks(ctx context.Context, q domain.StackQuery) ([]domain.CardStack, error)
	GetStack(ctx context.Context, ownerID string, id int64, forUpdate bool) (*domain.CardStack, error)
	// UpsertStack inserts the stack or merges its quantity and tags into the
	// existing row for the same owner, printing, location and wishlist flag.
	// On return stack.ID and stack.Quantity reflect the persisted row.
	UpsertStack(ctx context.Context, stack *domain.CardStack) error
	// DecrementStack removes n units and deletes the row when it reaches zero.
	DecrementStack(ctx context.Context, id int64, n int) (int, error)
	MoveStack(ctx context.Context, id int64, to domain.Location) error
	UpdateStack(ctx context.Context, stack *domain.CardStack) error
	DeleteStack(ctx context.Context, id int64) error
}

// StackTx defines the interface for stack transactions
type StackTx interface {
	Tx
	Stacks
}

// StackRepository defines the interface for stack persistence
type StackRepository interface {
	Stacks
	BeginStackTx(ctx context.Context) (StackTx, error)
}
