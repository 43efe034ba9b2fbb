package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/repository"
)

const stackColumns = `id, owner_id, catalog_id, name, set_code, collector_number, finish,
	deck_id, quantity, tags, price_paid::text, added_at, is_wishlist, metadata`

// stackStore implements repository.Stacks over any querier
type stackStore struct {
	q querier
}

// StackRepository implements repository.StackRepository for PostgreSQL
type StackRepository struct {
	stackStore
	db *pgxpool.Pool
}

// NewStackRepository creates a new StackRepository
func NewStackRepository(db *pgxpool.Pool) *StackRepository {
	return &StackRepository{stackStore: stackStore{q: db}, db: db}
}

// stackTx is a transaction scoped stack store
type stackTx struct {
	pgTx
	stackStore
}

// BeginStackTx starts a transaction for multi-step stack mutations
func (r *StackRepository) BeginStackTx(ctx context.Context) (repository.StackTx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	return &stackTx{pgTx: pgTx{tx: tx}, stackStore: stackStore{q: tx}}, nil
}

func scanStack(row pgx.Row) (*domain.CardStack, error) {
	var (
		s        domain.CardStack
		finish   string
		deckID   *string
		price    *string
		metadata []byte
	)
	err := row.Scan(&s.ID, &s.OwnerID, &s.Identity.CatalogID, &s.Identity.Name, &s.Identity.SetCode,
		&s.Identity.CollectorNumber, &finish, &deckID, &s.Quantity, &s.Tags, &price, &s.AddedAt,
		&s.IsWishlist, &metadata)
	if err != nil {
		return nil, err
	}
	s.Identity.Finish = domain.Finish(finish)
	s.Location = domain.LocationFromColumn(deckID)
	if s.PricePaid, err = parsePrice(price); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		s.Metadata = metadata
	}
	return &s, nil
}

// FindStacks returns the owner's stacks matching the query, ordered by id
func (s *stackStore) FindStacks(ctx context.Context, q domain.StackQuery) ([]domain.CardStack, error) {
	w := &whereBuilder{args: []any{q.OwnerID}}
	if q.CatalogID != "" {
		w.add("catalog_id = $%d", q.CatalogID)
	}
	if q.Name != "" {
		w.add("name_folded = $%d", domain.FoldName(q.Name))
	}
	if q.Finish != "" {
		w.add("finish = $%d", string(q.Finish))
	}
	if q.SetCode != "" {
		w.add("lower(set_code) = lower($%d)", q.SetCode)
	}
	if q.Location != nil {
		if q.Location.IsDeck() {
			w.add("deck_id = $%d", q.Location.DeckID)
		} else {
			w.raw("deck_id IS NULL")
		}
	}
	if q.Wishlist != nil {
		w.add("is_wishlist = $%d", *q.Wishlist)
	}
	if q.NameContains != "" {
		w.add("name ILIKE $%d", "%"+escapeLike(q.NameContains)+"%")
	}

	sql := "SELECT " + stackColumns + " FROM card_stacks WHERE owner_id = $1" + w.String()
	if q.NewestFirst {
		sql += " ORDER BY id DESC"
	} else {
		sql += " ORDER BY id"
	}
	args := w.args
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.ForUpdate {
		sql += " FOR UPDATE"
	}

	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToFindStacks, err)
	}
	defer rows.Close()

	var stacks []domain.CardStack
	for rows.Next() {
		stack, err := scanStack(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToScanStack, err)
		}
		stacks = append(stacks, *stack)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToFindStacks, err)
	}
	return stacks, nil
}

// GetStack returns one of the owner's stacks, locking it when forUpdate is set
func (s *stackStore) GetStack(ctx context.Context, ownerID string, id int64, forUpdate bool) (*domain.CardStack, error) {
	sql := "SELECT " + stackColumns + " FROM card_stacks WHERE id = $1 AND owner_id = $2"
	if forUpdate {
		sql += " FOR UPDATE"
	}
	stack, err := scanStack(s.q.QueryRow(ctx, sql, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStackNotFound
		}
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToGetStack, err)
	}
	return stack, nil
}

// UpsertStack inserts the stack or merges it into the existing pool row
func (s *stackStore) UpsertStack(ctx context.Context, stack *domain.CardStack) error {
	if stack.Quantity <= 0 {
		return fmt.Errorf("%w: upsert of %d units", domain.ErrInvalidQuantity, stack.Quantity)
	}
	var addedAt *time.Time
	if !stack.AddedAt.IsZero() {
		addedAt = &stack.AddedAt
	}
	var metadata []byte
	if len(stack.Metadata) > 0 {
		metadata = stack.Metadata
	}

	err := s.q.QueryRow(ctx, `
		INSERT INTO card_stacks (owner_id, catalog_id, name, set_code, collector_number, finish,
			deck_id, quantity, tags, price_paid, added_at, is_wishlist, metadata, name_folded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::text::numeric, COALESCE($11::timestamptz, NOW()), $12, $13, $14)
		ON CONFLICT (owner_id, catalog_id, finish, deck_id, is_wishlist) DO UPDATE SET
			quantity   = card_stacks.quantity + EXCLUDED.quantity,
			tags       = ARRAY(SELECT DISTINCT t FROM unnest(card_stacks.tags || EXCLUDED.tags) AS t ORDER BY t),
			price_paid = COALESCE(card_stacks.price_paid, EXCLUDED.price_paid),
			metadata   = COALESCE(card_stacks.metadata, EXCLUDED.metadata)
		RETURNING id, quantity, tags, added_at`,
		stack.OwnerID, stack.Identity.CatalogID, stack.Identity.Name, stack.Identity.SetCode,
		stack.Identity.CollectorNumber, string(stack.Identity.Finish), stack.Location.DeckIDPtr(),
		stack.Quantity, nonNilStrings(stack.Tags), priceParam(stack.PricePaid), addedAt,
		stack.IsWishlist, metadata, domain.FoldName(stack.Identity.Name),
	).Scan(&stack.ID, &stack.Quantity, &stack.Tags, &stack.AddedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertStack, err)
	}
	return nil
}

// DecrementStack removes n units, deleting the row when none remain
func (s *stackStore) DecrementStack(ctx context.Context, id int64, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: decrement by %d", domain.ErrInvalidQuantity, n)
	}

	var current int
	err := s.q.QueryRow(ctx, `SELECT quantity FROM card_stacks WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrStackNotFound
		}
		return 0, fmt.Errorf("%s: %w", ErrMsgFailedToDecrementStack, err)
	}

	remaining := current - n
	if remaining < 0 {
		return current, fmt.Errorf("%w: stack %d holds %d, cannot remove %d", domain.ErrInvalidQuantity, id, current, n)
	}
	if remaining == 0 {
		return 0, s.DeleteStack(ctx, id)
	}

	if _, err := s.q.Exec(ctx, `UPDATE card_stacks SET quantity = $2 WHERE id = $1`, id, remaining); err != nil {
		return current, fmt.Errorf("%s: %w", ErrMsgFailedToDecrementStack, err)
	}
	return remaining, nil
}

// MoveStack changes the location of a whole row in place
func (s *stackStore) MoveStack(ctx context.Context, id int64, to domain.Location) error {
	tag, err := s.q.Exec(ctx, `UPDATE card_stacks SET deck_id = $2 WHERE id = $1`, id, to.DeckIDPtr())
	if err != nil {
		if isUniqueViolation(err, ConstraintStackPool) {
			return fmt.Errorf("%w: destination pool already exists for stack %d", domain.ErrInvariantViolation, id)
		}
		return fmt.Errorf("%s: %w", ErrMsgFailedToMoveStack, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStackNotFound
	}
	return nil
}

// UpdateStack persists the mutable attributes of a stack
func (s *stackStore) UpdateStack(ctx context.Context, stack *domain.CardStack) error {
	if stack.Quantity <= 0 {
		return fmt.Errorf("%w: update to %d units", domain.ErrInvalidQuantity, stack.Quantity)
	}
	tag, err := s.q.Exec(ctx, `
		UPDATE card_stacks
		SET quantity = $3, tags = $4, price_paid = $5::text::numeric, is_wishlist = $6
		WHERE id = $1 AND owner_id = $2`,
		stack.ID, stack.OwnerID, stack.Quantity, nonNilStrings(stack.Tags), priceParam(stack.PricePaid), stack.IsWishlist)
	if err != nil {
		if isUniqueViolation(err, ConstraintStackPool) {
			return fmt.Errorf("%w: a matching stack already exists in that location", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpdateStack, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStackNotFound
	}
	return nil
}

// DeleteStack removes a row
func (s *stackStore) DeleteStack(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM card_stacks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToDeleteStack, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStackNotFound
	}
	return nil
}
