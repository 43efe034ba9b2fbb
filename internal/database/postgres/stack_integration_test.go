package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/CardVault_Go/internal/domain"
)

func bolt(finish domain.Finish) domain.StackIdentity {
	return domain.StackIdentity{
		CatalogID:       "c-bolt",
		Name:            "Lightning Bolt",
		SetCode:         "LEA",
		CollectorNumber: "161",
		Finish:          finish,
	}
}

func TestStackRepository_Integration(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewStackRepository(pool)
	ctx := context.Background()

	t.Run("UpsertStack merges into the same pool", func(t *testing.T) {
		first := &domain.CardStack{
			OwnerID:   "merge-owner",
			Identity:  bolt(domain.FinishNonfoil),
			Quantity:  2,
			Tags:      []string{"red"},
			PricePaid: decimal.NewNullDecimal(decimal.RequireFromString("1.50")),
		}
		require.NoError(t, repo.UpsertStack(ctx, first))
		assert.NotZero(t, first.ID)

		second := &domain.CardStack{
			OwnerID:  "merge-owner",
			Identity: bolt(domain.FinishNonfoil),
			Quantity: 3,
			Tags:     []string{"burn", "red"},
		}
		require.NoError(t, repo.UpsertStack(ctx, second))

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 5, second.Quantity)
		assert.Equal(t, []string{"burn", "red"}, second.Tags)

		got, err := repo.GetStack(ctx, "merge-owner", first.ID, false)
		require.NoError(t, err)
		assert.True(t, got.PricePaid.Valid)
		assert.True(t, got.PricePaid.Decimal.Equal(decimal.RequireFromString("1.50")))
		assert.Equal(t, domain.Unassigned, got.Location)
	})

	t.Run("Deck and binder pools stay separate", func(t *testing.T) {
		binder := &domain.CardStack{OwnerID: "split-owner", Identity: bolt(domain.FinishNonfoil), Quantity: 1}
		deck := &domain.CardStack{OwnerID: "split-owner", Identity: bolt(domain.FinishNonfoil), Location: domain.DeckLocation("burn"), Quantity: 4}
		require.NoError(t, repo.UpsertStack(ctx, binder))
		require.NoError(t, repo.UpsertStack(ctx, deck))
		assert.NotEqual(t, binder.ID, deck.ID)

		loc := domain.DeckLocation("burn")
		stacks, err := repo.FindStacks(ctx, domain.StackQuery{OwnerID: "split-owner", Location: &loc})
		require.NoError(t, err)
		require.Len(t, stacks, 1)
		assert.Equal(t, 4, stacks[0].Quantity)

		unassigned := domain.Unassigned
		stacks, err = repo.FindStacks(ctx, domain.StackQuery{OwnerID: "split-owner", Location: &unassigned})
		require.NoError(t, err)
		require.Len(t, stacks, 1)
		assert.Equal(t, binder.ID, stacks[0].ID)
	})

	t.Run("FindStacks filters by name case-insensitively", func(t *testing.T) {
		require.NoError(t, repo.UpsertStack(ctx, &domain.CardStack{OwnerID: "find-owner", Identity: bolt(domain.FinishFoil), Quantity: 1}))

		stacks, err := repo.FindStacks(ctx, domain.StackQuery{OwnerID: "find-owner", Name: "lightning BOLT"})
		require.NoError(t, err)
		require.Len(t, stacks, 1)
		assert.Equal(t, domain.FinishFoil, stacks[0].Identity.Finish)

		stacks, err = repo.FindStacks(ctx, domain.StackQuery{OwnerID: "find-owner", NameContains: "bol"})
		require.NoError(t, err)
		assert.Len(t, stacks, 1)

		stacks, err = repo.FindStacks(ctx, domain.StackQuery{OwnerID: "someone-else"})
		require.NoError(t, err)
		assert.Empty(t, stacks)
	})

	t.Run("FindStacks name match spans printings and ignores padding", func(t *testing.T) {
		m21 := domain.StackIdentity{CatalogID: "c-elves-m21", Name: "Llanowar Elves", SetCode: "M21", CollectorNumber: "194", Finish: domain.FinishNonfoil}
		lea := domain.StackIdentity{CatalogID: "c-elves-lea", Name: " Llanowar Elves", SetCode: "LEA", CollectorNumber: "210", Finish: domain.FinishNonfoil}
		other := domain.StackIdentity{CatalogID: "c-elvish", Name: "Elvish Mystic", SetCode: "M14", CollectorNumber: "169", Finish: domain.FinishNonfoil}
		for _, id := range []domain.StackIdentity{m21, lea, other} {
			require.NoError(t, repo.UpsertStack(ctx, &domain.CardStack{OwnerID: "tier-owner", Identity: id, Quantity: 2}))
		}

		stacks, err := repo.FindStacks(ctx, domain.StackQuery{OwnerID: "tier-owner", Name: "  LLANOWAR elves "})
		require.NoError(t, err)
		require.Len(t, stacks, 2)
		assert.Equal(t, "c-elves-m21", stacks[0].Identity.CatalogID)
		assert.Equal(t, "c-elves-lea", stacks[1].Identity.CatalogID)

		stacks, err = repo.FindStacks(ctx, domain.StackQuery{OwnerID: "tier-owner", Name: "llanowar elves", Finish: domain.FinishFoil})
		require.NoError(t, err)
		assert.Empty(t, stacks)
	})

	t.Run("DecrementStack deletes at zero", func(t *testing.T) {
		stack := &domain.CardStack{OwnerID: "dec-owner", Identity: bolt(domain.FinishNonfoil), Quantity: 3}
		require.NoError(t, repo.UpsertStack(ctx, stack))

		remaining, err := repo.DecrementStack(ctx, stack.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, remaining)

		_, err = repo.DecrementStack(ctx, stack.ID, 5)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

		remaining, err = repo.DecrementStack(ctx, stack.ID, 2)
		require.NoError(t, err)
		assert.Zero(t, remaining)

		_, err = repo.GetStack(ctx, "dec-owner", stack.ID, false)
		assert.ErrorIs(t, err, domain.ErrStackNotFound)
	})

	t.Run("MoveStack into an occupied pool is rejected", func(t *testing.T) {
		a := &domain.CardStack{OwnerID: "move-owner", Identity: bolt(domain.FinishNonfoil), Quantity: 1}
		b := &domain.CardStack{OwnerID: "move-owner", Identity: bolt(domain.FinishNonfoil), Location: domain.DeckLocation("d1"), Quantity: 1}
		require.NoError(t, repo.UpsertStack(ctx, a))
		require.NoError(t, repo.UpsertStack(ctx, b))

		err := repo.MoveStack(ctx, a.ID, domain.DeckLocation("d1"))
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)

		require.NoError(t, repo.MoveStack(ctx, a.ID, domain.DeckLocation("d2")))
		got, err := repo.GetStack(ctx, "move-owner", a.ID, false)
		require.NoError(t, err)
		assert.Equal(t, domain.DeckLocation("d2"), got.Location)
	})

	t.Run("UpdateStack clears price", func(t *testing.T) {
		stack := &domain.CardStack{
			OwnerID:   "upd-owner",
			Identity:  bolt(domain.FinishEtched),
			Quantity:  1,
			PricePaid: decimal.NewNullDecimal(decimal.NewFromInt(3)),
		}
		require.NoError(t, repo.UpsertStack(ctx, stack))

		stack.PricePaid = decimal.NullDecimal{}
		stack.Quantity = 7
		stack.IsWishlist = true
		require.NoError(t, repo.UpdateStack(ctx, stack))

		got, err := repo.GetStack(ctx, "upd-owner", stack.ID, false)
		require.NoError(t, err)
		assert.False(t, got.PricePaid.Valid)
		assert.Equal(t, 7, got.Quantity)
		assert.True(t, got.IsWishlist)

		_, err = repo.GetStack(ctx, "other-owner", stack.ID, false)
		assert.ErrorIs(t, err, domain.ErrStackNotFound)
	})

	t.Run("Rollback discards transactional writes", func(t *testing.T) {
		tx, err := repo.BeginStackTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.UpsertStack(ctx, &domain.CardStack{OwnerID: "tx-owner", Identity: bolt(domain.FinishNonfoil), Quantity: 1}))
		require.NoError(t, tx.Rollback(ctx))

		stacks, err := repo.FindStacks(ctx, domain.StackQuery{OwnerID: "tx-owner"})
		require.NoError(t, err)
		assert.Empty(t, stacks)
	})
}
