package allocation

import (
	"context"
	"fmt"

	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/repository"
)

// transfer moves n units of src to the destination location.
// A whole stack moves in place unless the destination already holds the same
// pool, in which case it is merged and the source row deleted. A partial take
// decrements the source and upserts into the destination, carrying identity,
// tags, price and metadata.
func transfer(ctx context.Context, stacks repository.Stacks, src *domain.CardStack, n int, to domain.Location) (Step, error) {
	step := Step{
		SourceID: src.ID,
		Identity: src.Identity,
		Quantity: n,
	}

	if n == src.Quantity {
		dest, err := findDestination(ctx, stacks, src, to)
		if err != nil {
			return step, err
		}
		if dest == nil {
			if err := stacks.MoveStack(ctx, src.ID, to); err != nil {
				return step, err
			}
			step.Kind = StepMove
			step.DestinationID = src.ID
			return step, nil
		}

		merged := carry(src, n, to)
		if err := stacks.UpsertStack(ctx, merged); err != nil {
			return step, err
		}
		if err := stacks.DeleteStack(ctx, src.ID); err != nil {
			return step, err
		}
		step.Kind = StepMerge
		step.DestinationID = merged.ID
		return step, nil
	}

	if _, err := stacks.DecrementStack(ctx, src.ID, n); err != nil {
		return step, err
	}
	split := carry(src, n, to)
	if err := stacks.UpsertStack(ctx, split); err != nil {
		return step, err
	}
	step.Kind = StepSplit
	step.DestinationID = split.ID
	return step, nil
}

func findDestination(ctx context.Context, stacks repository.Stacks, src *domain.CardStack, to domain.Location) (*domain.CardStack, error) {
	wishlist := src.IsWishlist
	found, err := stacks.FindStacks(ctx, domain.StackQuery{
		OwnerID:   src.OwnerID,
		CatalogID: src.Identity.CatalogID,
		Finish:    src.Identity.Finish,
		Location:  &to,
		Wishlist:  &wishlist,
		Limit:     1,
		ForUpdate: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFindDestination, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// carry copies the portable attributes of src into a new row for the destination
func carry(src *domain.CardStack, n int, to domain.Location) *domain.CardStack {
	return &domain.CardStack{
		OwnerID:    src.OwnerID,
		Identity:   src.Identity,
		Location:   to,
		Quantity:   n,
		Tags:       append([]string(nil), src.Tags...),
		PricePaid:  src.PricePaid,
		AddedAt:    src.AddedAt,
		IsWishlist: src.IsWishlist,
		Metadata:   src.Metadata,
	}
}
