package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/CardVault_Go/internal/allocation"
	"github.com/osse101/CardVault_Go/internal/audit"
	"github.com/osse101/CardVault_Go/internal/catalog"
	"github.com/osse101/CardVault_Go/internal/domain"
)

func newSession(ownerID string, scope domain.AuditScope, target *string, now time.Time) *domain.AuditSession {
	return &domain.AuditSession{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Scope:     scope,
		TargetID:  target,
		Status:    domain.AuditStatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestAuditRepository_Integration(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewAuditRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("One active session per owner", func(t *testing.T) {
		tx, err := repo.BeginAuditTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.CreateSession(ctx, newSession("solo", domain.ScopeCollection, nil, now)))
		err = tx.CreateSession(ctx, newSession("solo", domain.ScopeBinder, nil, now))
		assert.ErrorIs(t, err, domain.ErrSessionConflict)
		require.NoError(t, tx.Rollback(ctx))
	})

	t.Run("Expired sessions free the slot", func(t *testing.T) {
		tx, err := repo.BeginAuditTx(ctx)
		require.NoError(t, err)
		old := newSession("lapsed", domain.ScopeCollection, nil, now.Add(-2*time.Hour))
		require.NoError(t, tx.CreateSession(ctx, old))

		n, err := tx.ExpireSessions(ctx, "lapsed", now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		require.NoError(t, tx.CreateSession(ctx, newSession("lapsed", domain.ScopeCollection, nil, now)))
		require.NoError(t, tx.Commit(ctx))

		got, err := repo.GetSession(ctx, "lapsed", old.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AuditStatusExpired, got.Status)
		assert.NotNil(t, got.EndedAt)

		active, err := repo.GetActiveSession(ctx, "lapsed", now)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.NotEqual(t, old.ID, active.ID)
	})

	t.Run("Items round trip and section review", func(t *testing.T) {
		tx, err := repo.BeginAuditTx(ctx)
		require.NoError(t, err)
		session := newSession("items", domain.ScopeCollection, nil, now)
		require.NoError(t, tx.CreateSession(ctx, session))

		deck := "burn"
		require.NoError(t, tx.InsertItems(ctx, []domain.AuditItem{
			{SessionID: session.ID, Identity: bolt(domain.FinishNonfoil), ExpectedQuantity: 2, Colors: []string{"R"}},
			{SessionID: session.ID, Identity: bolt(domain.FinishFoil), DeckID: &deck, ExpectedQuantity: 1},
		}))
		extra := &domain.AuditItem{SessionID: session.ID, Identity: bolt(domain.FinishEtched), ExpectedQuantity: 0, ActualQuantity: 1}
		require.NoError(t, tx.InsertItem(ctx, extra))
		assert.NotZero(t, extra.ID)
		require.NoError(t, tx.Commit(ctx))

		items, err := repo.ListItems(ctx, session.ID, domain.ItemFilter{})
		require.NoError(t, err)
		require.Len(t, items, 3)

		deckItems, err := repo.ListItems(ctx, session.ID, domain.ItemFilter{DeckID: deck})
		require.NoError(t, err)
		require.Len(t, deckItems, 1)
		assert.Equal(t, domain.FinishFoil, deckItems[0].Identity.Finish)

		loose, err := repo.ListItems(ctx, session.ID, domain.ItemFilter{Group: "lea"})
		require.NoError(t, err)
		assert.Len(t, loose, 2)

		tx, err = repo.BeginAuditTx(ctx)
		require.NoError(t, err)
		count := 5
		require.NoError(t, tx.UpdateItemCount(ctx, session.ID, deckItems[0].ID, &count, nil))
		assert.ErrorIs(t, tx.UpdateItemCount(ctx, uuid.New(), deckItems[0].ID, &count, nil), domain.ErrItemNotFound)

		found, err := tx.FindItem(ctx, session.ID, "c-bolt", domain.FinishFoil, &deck)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, 5, found.ActualQuantity)

		missing, err := tx.FindItem(ctx, session.ID, "c-bolt", domain.FinishFoil, nil)
		require.NoError(t, err)
		assert.Nil(t, missing)

		reviewed, err := tx.MarkSectionReviewed(ctx, session.ID, domain.ItemFilter{Group: "LEA"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), reviewed)
		require.NoError(t, tx.Commit(ctx))
	})

	t.Run("DeleteSession removes items", func(t *testing.T) {
		tx, err := repo.BeginAuditTx(ctx)
		require.NoError(t, err)
		session := newSession("cancel", domain.ScopeBinder, nil, now)
		require.NoError(t, tx.CreateSession(ctx, session))
		require.NoError(t, tx.InsertItems(ctx, []domain.AuditItem{{SessionID: session.ID, Identity: bolt(domain.FinishNonfoil), ExpectedQuantity: 1}}))
		require.NoError(t, tx.DeleteSession(ctx, session.ID))
		require.NoError(t, tx.Commit(ctx))

		_, err = repo.GetSession(ctx, "cancel", session.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestAuditFinalize_Integration(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	stacks := NewStackRepository(pool)
	catalogRepo := NewCatalogRepository(pool)
	require.NoError(t, catalogRepo.UpsertCard(ctx, &domain.CatalogCard{
		CatalogID: "c-bolt", Name: "Lightning Bolt", SetCode: "LEA", CollectorNumber: "161",
		TypeLine: "Instant", Rarity: "common", Colors: []string{"R"},
	}))

	catalogService := catalog.NewService(catalogRepo, 16, time.Minute)
	engine := allocation.NewEngine(catalogService)
	svc := audit.NewService(NewAuditRepository(pool), catalogService, engine, nil, time.Hour)

	const owner = "finalize-owner"
	require.NoError(t, stacks.UpsertStack(ctx, &domain.CardStack{OwnerID: owner, Identity: bolt(domain.FinishNonfoil), Quantity: 3}))
	require.NoError(t, stacks.UpsertStack(ctx, &domain.CardStack{OwnerID: owner, Identity: bolt(domain.FinishNonfoil), Location: domain.DeckLocation("burn"), Quantity: 2}))

	session, err := svc.Start(ctx, owner, domain.ScopeDeck, "burn")
	require.NoError(t, err)

	items, err := svc.ListItems(ctx, owner, session.ID, domain.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].ActualQuantity)
	assert.Equal(t, "Instant", items[0].TypeLine)

	count := 4
	_, err = svc.RecordCount(ctx, owner, session.ID, items[0].ID, &count, nil)
	require.NoError(t, err)

	report, err := svc.Finalize(ctx, owner, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)
	assert.Zero(t, report.Failed)

	deck := domain.DeckLocation("burn")
	inDeck, err := stacks.FindStacks(ctx, domain.StackQuery{OwnerID: owner, Location: &deck})
	require.NoError(t, err)
	require.Len(t, inDeck, 1)
	assert.Equal(t, 4, inDeck[0].Quantity)

	binder := domain.Unassigned
	loose, err := stacks.FindStacks(ctx, domain.StackQuery{OwnerID: owner, Location: &binder})
	require.NoError(t, err)
	require.Len(t, loose, 1)
	assert.Equal(t, 1, loose[0].Quantity)

	got, err := svc.GetSession(ctx, owner, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditStatusCompleted, got.Status)
}
