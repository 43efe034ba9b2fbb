package collection

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/osse101/CardVault_Go/internal/allocation"
	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/event"
	"github.com/osse101/CardVault_Go/internal/logger"
	"github.com/osse101/CardVault_Go/internal/repository"
)

// Resolver fills in card identities from the catalog
type Resolver interface {
	Resolve(ctx context.Context, fragment domain.IdentityFragment) (domain.StackIdentity, error)
}

// Service defines the stack-level collection operations
type Service interface {
	List(ctx context.Context, ownerID string, filter ListFilter) ([]domain.CardStack, error)
	Export(ctx context.Context, ownerID string) ([]domain.CardStack, error)
	Acquire(ctx context.Context, ownerID string, in NewStack) (*domain.CardStack, error)
	// Update returns nil when the patch removed the stack.
	Update(ctx context.Context, ownerID string, id int64, patch StackPatch) (*domain.CardStack, error)
	// Dispose removes n copies, or the whole stack when n is 0, and returns
	// the copies left.
	Dispose(ctx context.Context, ownerID string, id int64, n int) (int, error)
	Move(ctx context.Context, ownerID string, req MoveRequest) (*allocation.RelocateResult, error)
}

type service struct {
	repo      repository.StackRepository
	resolver  Resolver
	mover     allocation.Service
	publisher *event.ResilientPublisher
}

// NewService creates a new collection service. A nil publisher disables events.
func NewService(repo repository.StackRepository, resolver Resolver, mover allocation.Service, publisher *event.ResilientPublisher) Service {
	return &service{
		repo:      repo,
		resolver:  resolver,
		mover:     mover,
		publisher: publisher,
	}
}

func (s *service) publish(ctx context.Context, evt event.Event) {
	if s.publisher != nil {
		s.publisher.PublishWithRetry(ctx, evt)
	}
}

func (s *service) List(ctx context.Context, ownerID string, filter ListFilter) ([]domain.CardStack, error) {
	if filter.Limit < 0 || filter.Limit > MaxListLimit {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgInvalidListLimit)
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultListLimit
	}
	stacks, err := s.repo.FindStacks(ctx, domain.StackQuery{
		OwnerID:      ownerID,
		Location:     filter.Location,
		Wishlist:     filter.Wishlist,
		NameContains: strings.TrimSpace(filter.Name),
		NewestFirst:  true,
		Limit:        filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgListStacks, err)
	}
	return nonNil(stacks), nil
}

func (s *service) Export(ctx context.Context, ownerID string) ([]domain.CardStack, error) {
	stacks, err := s.repo.FindStacks(ctx, domain.StackQuery{OwnerID: ownerID, NewestFirst: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgExportStacks, err)
	}
	return nonNil(stacks), nil
}

// Acquire adds copies to the collection, merging into an existing stack of
// the same printing in the same location
func (s *service) Acquire(ctx context.Context, ownerID string, in NewStack) (*domain.CardStack, error) {
	if in.Quantity < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidQuantity, ErrMsgNegativeQuantity)
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.PricePaid.Valid && in.PricePaid.Decimal.IsNegative() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgNegativePricePaid)
	}
	in.Finish = domain.NormalizeFinish(string(in.Finish))
	if !in.Finish.Valid() {
		return nil, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, ErrMsgInvalidFinish, in.Finish)
	}

	identity, err := s.identityFor(ctx, in)
	if err != nil {
		return nil, err
	}

	stack := &domain.CardStack{
		OwnerID:    ownerID,
		Identity:   identity,
		Location:   in.Location,
		Quantity:   in.Quantity,
		Tags:       normalizeTags(in.Tags),
		PricePaid:  in.PricePaid,
		IsWishlist: in.IsWishlist,
		Metadata:   in.Metadata,
	}
	if err := s.repo.UpsertStack(ctx, stack); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgAcquireStack, err)
	}

	logger.FromContext(ctx).Info(LogMsgStackAcquired,
		"stack_id", stack.ID,
		"catalog_id", identity.CatalogID,
		"location", stack.Location.String(),
		"quantity", in.Quantity)
	s.publish(ctx, event.NewStackAcquiredEvent(stack, in.Quantity))
	return stack, nil
}

// identityFor uses the given identity when it is complete and asks the
// catalog for the rest otherwise
func (s *service) identityFor(ctx context.Context, in NewStack) (domain.StackIdentity, error) {
	if in.CatalogID != "" && in.Name != "" && in.SetCode != "" {
		return domain.StackIdentity{
			CatalogID:       in.CatalogID,
			Name:            in.Name,
			SetCode:         in.SetCode,
			CollectorNumber: in.CollectorNumber,
			Finish:          in.Finish,
		}, nil
	}
	if in.CatalogID == "" && in.Name == "" && (in.SetCode == "" || in.CollectorNumber == "") {
		return domain.StackIdentity{}, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgIdentityRequired)
	}
	if s.resolver == nil {
		return domain.StackIdentity{}, fmt.Errorf("%w: %s", domain.ErrIdentityNotFound, ErrMsgNoResolver)
	}
	identity, err := s.resolver.Resolve(ctx, in.fragment())
	if err != nil {
		return domain.StackIdentity{}, fmt.Errorf("%s: %w", ErrMsgResolveIdentity, err)
	}
	return identity, nil
}

func (s *service) Update(ctx context.Context, ownerID string, id int64, patch StackPatch) (*domain.CardStack, error) {
	log := logger.FromContext(ctx)

	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidQuantity, ErrMsgNegativeQuantity)
	}
	if patch.PricePaid != nil && patch.PricePaid.Valid && patch.PricePaid.Decimal.IsNegative() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgNegativePricePaid)
	}

	tx, err := s.repo.BeginStackTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgBeginTx, err)
	}
	defer repository.SafeRollback(ctx, tx)

	stack, err := tx.GetStack(ctx, ownerID, id, true)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return stack, nil
	}
	before := stack.Quantity

	if patch.Quantity != nil && *patch.Quantity == 0 {
		if err := tx.DeleteStack(ctx, stack.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgDisposeStack, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
		}
		log.Info(LogMsgStackDisposed, "stack_id", stack.ID, "quantity", before)
		s.publish(ctx, event.NewStackDisposedEvent(stack, before))
		return nil, nil
	}

	if patch.Tags != nil {
		stack.Tags = normalizeTags(*patch.Tags)
	}
	if patch.PricePaid != nil {
		stack.PricePaid = *patch.PricePaid
	}
	if patch.IsWishlist != nil {
		stack.IsWishlist = *patch.IsWishlist
	}
	if patch.Quantity != nil {
		stack.Quantity = *patch.Quantity
	}
	if err := tx.UpdateStack(ctx, stack); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgUpdateStack, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
	}

	log.Info(LogMsgStackUpdated, "stack_id", stack.ID, "quantity", stack.Quantity)
	switch delta := stack.Quantity - before; {
	case delta > 0:
		s.publish(ctx, event.NewStackAcquiredEvent(stack, delta))
	case delta < 0:
		s.publish(ctx, event.NewStackDisposedEvent(stack, -delta))
	}
	return stack, nil
}

func (s *service) Dispose(ctx context.Context, ownerID string, id int64, n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrInvalidQuantity, ErrMsgNegativeQuantity)
	}

	tx, err := s.repo.BeginStackTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgBeginTx, err)
	}
	defer repository.SafeRollback(ctx, tx)

	stack, err := tx.GetStack(ctx, ownerID, id, true)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		n = stack.Quantity
	}
	if n > stack.Quantity {
		return 0, fmt.Errorf("%w: %s (%d > %d)", domain.ErrInvalidQuantity, ErrMsgDisposeTooMany, n, stack.Quantity)
	}

	remaining, err := tx.DecrementStack(ctx, stack.ID, n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgDisposeStack, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
	}

	logger.FromContext(ctx).Info(LogMsgStackDisposed, "stack_id", stack.ID, "quantity", n, "remaining", remaining)
	s.publish(ctx, event.NewStackDisposedEvent(stack, n))
	return remaining, nil
}

// Move relocates copies all-or-nothing: a shortfall moves nothing
func (s *service) Move(ctx context.Context, ownerID string, req MoveRequest) (*allocation.RelocateResult, error) {
	match := domain.StackIdentity{
		CatalogID: req.CatalogID,
		Name:      req.Name,
		Finish:    req.Finish,
	}
	result, err := s.mover.Move(ctx, allocation.RelocateRequest{
		OwnerID:    ownerID,
		Match:      match,
		From:       req.From,
		To:         req.To,
		Quantity:   req.Quantity,
		Preference: req.Preference,
		Shortfall:  domain.ShortfallFail,
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info(LogMsgStackMoved,
		"catalog_id", req.CatalogID,
		"from", req.From.String(),
		"to", req.To.String(),
		"moved", result.Moved)
	s.publish(ctx, event.NewStackRelocatedEvent(ownerID, match, req.From, req.To, result.Moved, result.Materialized))
	return result, nil
}

// normalizeTags trims, drops empties and dedupes, returning a sorted non-nil slice
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func nonNil(stacks []domain.CardStack) []domain.CardStack {
	if stacks == nil {
		return []domain.CardStack{}
	}
	return stacks
}
