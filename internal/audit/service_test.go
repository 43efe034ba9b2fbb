package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/CardVault_Go/internal/allocation"
	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/testing/fakestore"
)

const (
	testOwner  = "owner-1"
	otherOwner = "owner-2"
	testDeck   = "deck-d"
)

var (
	baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	deckD    = domain.DeckLocation(testDeck)
	binder   = domain.Unassigned

	cardX = domain.StackIdentity{CatalogID: "x", Name: "Llanowar Elves", SetCode: "m21", CollectorNumber: "1", Finish: domain.FinishNonfoil}
	cardY = domain.StackIdentity{CatalogID: "y", Name: "Shock", SetCode: "m21", CollectorNumber: "2", Finish: domain.FinishNonfoil}
	cardZ = domain.StackIdentity{CatalogID: "z", Name: "Sol Ring", SetCode: "lea", CollectorNumber: "3", Finish: domain.FinishNonfoil}
)

type stubCatalog struct {
	cards map[string]domain.StackIdentity
	attrs map[string]domain.CardAttributes
}

func newStubCatalog(ids ...domain.StackIdentity) *stubCatalog {
	c := &stubCatalog{cards: map[string]domain.StackIdentity{}, attrs: map[string]domain.CardAttributes{}}
	for _, id := range ids {
		c.cards[id.CatalogID] = id
	}
	return c
}

func (c *stubCatalog) Resolve(ctx context.Context, fragment domain.IdentityFragment) (domain.StackIdentity, error) {
	for _, id := range c.cards {
		if id.CatalogID == fragment.CatalogID || (fragment.CatalogID == "" && strings.EqualFold(id.Name, fragment.Name)) {
			id.Finish = domain.NormalizeFinish(string(fragment.Finish))
			return id, nil
		}
	}
	return domain.StackIdentity{}, domain.ErrIdentityNotFound
}

func (c *stubCatalog) Attributes(ctx context.Context, catalogID string) (domain.CardAttributes, error) {
	a, ok := c.attrs[catalogID]
	if !ok {
		return domain.CardAttributes{}, errors.New("no attributes")
	}
	return a, nil
}

func newTestService(store *fakestore.Store, catalog *stubCatalog) *service {
	svc := NewService(store, catalog, allocation.NewEngine(catalog), nil, time.Hour).(*service)
	svc.now = func() time.Time { return baseTime }
	return svc
}

func seed(store *fakestore.Store, id domain.StackIdentity, loc domain.Location, qty int) domain.CardStack {
	return store.Seed(domain.CardStack{OwnerID: testOwner, Identity: id, Location: loc, Quantity: qty, Tags: []string{}})
}

func foil(id domain.StackIdentity) domain.StackIdentity {
	id.Finish = domain.FinishFoil
	return id
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func itemFor(t *testing.T, items []domain.AuditItem, id domain.StackIdentity, deckID *string) domain.AuditItem {
	t.Helper()
	for _, it := range items {
		if !it.Identity.SamePrinting(id) {
			continue
		}
		if (it.DeckID == nil) == (deckID == nil) && (deckID == nil || *it.DeckID == *deckID) {
			return it
		}
	}
	t.Fatalf("no item for %s/%s", id.CatalogID, id.Finish)
	return domain.AuditItem{}
}

func listItems(t *testing.T, svc *service, sessionID uuid.UUID) []domain.AuditItem {
	t.Helper()
	items, err := svc.ListItems(context.Background(), testOwner, sessionID, domain.ItemFilter{})
	require.NoError(t, err)
	return items
}

func TestStart_Validation(t *testing.T) {
	tests := []struct {
		name   string
		scope  domain.AuditScope
		target string
	}{
		{"unknown scope", domain.AuditScope("shelf"), ""},
		{"deck without target", domain.ScopeDeck, ""},
		{"set without target", domain.ScopeSet, "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(fakestore.New(), newStubCatalog())
			_, err := svc.Start(context.Background(), testOwner, tt.scope, tt.target)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestStart_SnapshotsByScope(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, binder, 4)
	seed(store, cardX, deckD, 2)
	seed(store, cardY, binder, 1)
	seed(store, cardZ, domain.DeckLocation("deck-e"), 1)
	store.Seed(domain.CardStack{OwnerID: testOwner, Identity: cardZ, Location: binder, Quantity: 3, IsWishlist: true})

	tests := []struct {
		scope         domain.AuditScope
		target        string
		wantItems     int
		wantExpected  int
		startVerified bool
	}{
		{domain.ScopeCollection, "", 4, 8, false},
		{domain.ScopeBinder, "", 2, 5, false},
		{domain.ScopeDeck, testDeck, 1, 2, true},
		{domain.ScopeSet, "M21", 3, 7, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			svc := newTestService(store, newStubCatalog())
			session, err := svc.Start(context.Background(), testOwner, tt.scope, tt.target)
			require.NoError(t, err)

			items := listItems(t, svc, session.ID)
			require.Len(t, items, tt.wantItems)
			expected := 0
			for _, it := range items {
				expected += it.ExpectedQuantity
				if tt.startVerified {
					assert.Equal(t, it.ExpectedQuantity, it.ActualQuantity)
				} else {
					assert.Zero(t, it.ActualQuantity)
				}
				assert.False(t, it.Reviewed)
			}
			assert.Equal(t, tt.wantExpected, expected)

			require.NoError(t, svc.Cancel(context.Background(), testOwner, session.ID))
		})
	}
}

func TestStart_CollectionItemsKeepDeck(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, deckD, 2)
	svc := newTestService(store, newStubCatalog())

	session, err := svc.Start(context.Background(), testOwner, domain.ScopeCollection, "")
	require.NoError(t, err)

	items := listItems(t, svc, session.ID)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].DeckID)
	assert.Equal(t, testDeck, *items[0].DeckID)
}

func TestStart_OneActiveSessionPerOwner(t *testing.T) {
	store := fakestore.New()
	svc := newTestService(store, newStubCatalog())
	ctx := context.Background()

	first, err := svc.Start(ctx, testOwner, domain.ScopeBinder, "")
	require.NoError(t, err)

	_, err = svc.Start(ctx, testOwner, domain.ScopeCollection, "")
	assert.ErrorIs(t, err, domain.ErrSessionConflict)

	_, err = svc.Start(ctx, otherOwner, domain.ScopeCollection, "")
	assert.NoError(t, err, "other owners are independent")

	active, err := svc.GetActive(ctx, testOwner)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID)
}

func TestStart_ExpiredSessionDoesNotBlock(t *testing.T) {
	store := fakestore.New()
	svc := newTestService(store, newStubCatalog())
	ctx := context.Background()

	first, err := svc.Start(ctx, testOwner, domain.ScopeBinder, "")
	require.NoError(t, err)

	svc.now = func() time.Time { return baseTime.Add(2 * time.Hour) }
	active, err := svc.GetActive(ctx, testOwner)
	require.NoError(t, err)
	assert.Nil(t, active)

	second, err := svc.Start(ctx, testOwner, domain.ScopeBinder, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	old, ok := store.Session(first.ID)
	require.True(t, ok)
	assert.Equal(t, domain.AuditStatusExpired, old.Status)
}

func TestSession_ForeignOwnerIsNotFound(t *testing.T) {
	svc := newTestService(fakestore.New(), newStubCatalog())
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeBinder, "")
	require.NoError(t, err)

	_, err = svc.GetSession(ctx, otherOwner, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = svc.Finalize(ctx, otherOwner, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, svc.Cancel(ctx, otherOwner, session.ID), domain.ErrSessionNotFound)
}

func TestRecordCount(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, binder, 3)
	svc := newTestService(store, newStubCatalog())
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeBinder, "")
	require.NoError(t, err)
	item := listItems(t, svc, session.ID)[0]

	_, err = svc.RecordCount(ctx, testOwner, session.ID, item.ID, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.RecordCount(ctx, testOwner, session.ID, item.ID, intPtr(-1), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = svc.RecordCount(ctx, testOwner, session.ID, item.ID+100, intPtr(1), nil)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	updated, err := svc.RecordCount(ctx, testOwner, session.ID, item.ID, intPtr(2), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.ActualQuantity)
	assert.False(t, updated.Reviewed)

	updated, err = svc.RecordCount(ctx, testOwner, session.ID, item.ID, nil, boolPtr(true))
	require.NoError(t, err)
	assert.Equal(t, 2, updated.ActualQuantity)
	assert.True(t, updated.Reviewed)
}

func TestRecordCount_RejectsExpiredSession(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, binder, 3)
	svc := newTestService(store, newStubCatalog())
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeBinder, "")
	require.NoError(t, err)
	item := listItems(t, svc, session.ID)[0]

	svc.now = func() time.Time { return baseTime.Add(2 * time.Hour) }
	_, err = svc.RecordCount(ctx, testOwner, session.ID, item.ID, intPtr(1), nil)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// expired sessions stay readable and cancellable
	_, err = svc.GetSession(ctx, testOwner, session.ID)
	assert.NoError(t, err)
	assert.NoError(t, svc.Cancel(ctx, testOwner, session.ID))
}

func TestBatchRecord(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, binder, 3)
	seed(store, cardY, binder, 1)
	svc := newTestService(store, newStubCatalog())
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeBinder, "")
	require.NoError(t, err)
	items := listItems(t, svc, session.ID)
	x := itemFor(t, items, cardX, nil)
	y := itemFor(t, items, cardY, nil)

	_, err = svc.BatchRecord(ctx, testOwner, session.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.BatchRecord(ctx, testOwner, session.ID, []domain.CountUpdate{{ItemID: x.ID, Quantity: -2}})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	n, err := svc.BatchRecord(ctx, testOwner, session.ID, []domain.CountUpdate{
		{ItemID: x.ID, Quantity: 3},
		{ItemID: y.ID, Quantity: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items = listItems(t, svc, session.ID)
	for _, it := range items {
		assert.True(t, it.Reviewed, it.Identity.Name)
	}
	assert.Equal(t, 3, itemFor(t, items, cardX, nil).ActualQuantity)
}

func TestBatchRecord_IsAllOrNothing(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, binder, 3)
	svc := newTestService(store, newStubCatalog())
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeBinder, "")
	require.NoError(t, err)
	x := listItems(t, svc, session.ID)[0]

	_, err = svc.BatchRecord(ctx, testOwner, session.ID, []domain.CountUpdate{
		{ItemID: x.ID, Quantity: 3},
		{ItemID: x.ID + 100, Quantity: 1},
	})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	x = listItems(t, svc, session.ID)[0]
	assert.Zero(t, x.ActualQuantity)
	assert.False(t, x.Reviewed)
}

func TestAddItem(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, deckD, 2)
	catalog := newStubCatalog(cardX, cardY)
	svc := newTestService(store, catalog)
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeDeck, testDeck)
	require.NoError(t, err)

	existing, err := svc.AddItem(ctx, testOwner, session.ID, domain.IdentityFragment{CatalogID: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, existing.ExpectedQuantity)
	assert.Equal(t, 3, existing.ActualQuantity)
	assert.True(t, existing.Reviewed)

	added, err := svc.AddItem(ctx, testOwner, session.ID, domain.IdentityFragment{Name: "shock", Finish: domain.FinishFoil})
	require.NoError(t, err)
	assert.Equal(t, "y", added.Identity.CatalogID)
	assert.Equal(t, domain.FinishFoil, added.Identity.Finish)
	assert.Zero(t, added.ExpectedQuantity)
	assert.Equal(t, 1, added.ActualQuantity)
	require.NotNil(t, added.DeckID)
	assert.Equal(t, testDeck, *added.DeckID)

	_, err = svc.AddItem(ctx, testOwner, session.ID, domain.IdentityFragment{Name: "Nonexistent"})
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
	assert.Equal(t, 2, store.ItemCount(session.ID))
}

func TestReviewSection(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, deckD, 2)
	seed(store, cardY, binder, 1)
	seed(store, cardZ, binder, 1)
	svc := newTestService(store, newStubCatalog())
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeCollection, "")
	require.NoError(t, err)

	_, err = svc.ReviewSection(ctx, testOwner, session.ID, domain.ItemFilter{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	n, err := svc.ReviewSection(ctx, testOwner, session.ID, domain.ItemFilter{Group: "M21"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "deck copies of the set are not loose")

	n, err = svc.ReviewSection(ctx, testOwner, session.ID, domain.ItemFilter{DeckID: testDeck})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	items := listItems(t, svc, session.ID)
	deck := testDeck
	assert.True(t, itemFor(t, items, cardX, &deck).Reviewed)
	assert.True(t, itemFor(t, items, cardY, nil).Reviewed)
	assert.False(t, itemFor(t, items, cardZ, nil).Reviewed)
}

func TestStats(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, deckD, 2)
	seed(store, cardY, binder, 1)
	seed(store, cardZ, binder, 1)
	seed(store, foil(cardX), binder, 1)
	catalog := newStubCatalog()
	catalog.attrs["x"] = domain.CardAttributes{TypeLine: "Creature — Elf Druid", Rarity: "Common", Colors: []string{"G"}}
	catalog.attrs["y"] = domain.CardAttributes{TypeLine: "Instant", Rarity: "common", Colors: []string{"R"}}
	catalog.attrs["z"] = domain.CardAttributes{TypeLine: "Artifact", Rarity: "uncommon"}
	svc := newTestService(store, catalog)
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeCollection, "")
	require.NoError(t, err)
	items := listItems(t, svc, session.ID)
	y := itemFor(t, items, cardY, nil)
	z := itemFor(t, items, cardZ, nil)
	_, err = svc.BatchRecord(ctx, testOwner, session.ID, []domain.CountUpdate{
		{ItemID: y.ID, Quantity: 1},
		{ItemID: z.ID, Quantity: 3},
	})
	require.NoError(t, err)

	_, err = svc.Stats(ctx, testOwner, session.ID, "mana")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	stats, err := svc.Stats(ctx, testOwner, session.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.GroupBySet, stats.GroupBy)
	assert.Equal(t, domain.StatsCounts{Items: 4, Expected: 5, Counted: 4, Verified: 1, Reviewed: 2, Mismatches: 1}, stats.Totals)
	assert.Equal(t, domain.StatsCounts{Items: 3, Expected: 3, Counted: 4, Verified: 1, Reviewed: 2, Mismatches: 1}, stats.Loose)
	require.Len(t, stats.Decks, 1)
	assert.Equal(t, testDeck, stats.Decks[0].Key)
	assert.Equal(t, 2, stats.Decks[0].Expected)
	require.Len(t, stats.Groups, 2)
	assert.Equal(t, "LEA", stats.Groups[0].Key)
	assert.Equal(t, "M21", stats.Groups[1].Key)
	assert.Equal(t, 2, stats.Groups[1].Items)
	require.Len(t, stats.Mismatched, 1)
	assert.Equal(t, z.ID, stats.Mismatched[0].ID)

	byColor, err := svc.Stats(ctx, testOwner, session.ID, domain.GroupByColor)
	require.NoError(t, err)
	keys := make([]string, 0, len(byColor.Groups))
	for _, g := range byColor.Groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"G", "R", GroupColorless}, keys)

	byType, err := svc.Stats(ctx, testOwner, session.ID, domain.GroupByType)
	require.NoError(t, err)
	keys = keys[:0]
	for _, g := range byType.Groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"Artifact", "Creature", "Instant"}, keys)
}

func TestPrimaryType(t *testing.T) {
	tests := []struct {
		typeLine string
		want     string
	}{
		{"Legendary Creature — Elf", "Creature"},
		{"Artifact Creature — Golem", "Creature"},
		{"Artifact Land", "Land"},
		{"Instant // Sorcery", "Instant"},
		{"Legendary Planeswalker — Jace", "Planeswalker"},
		{"Conspiracy", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.typeLine, func(t *testing.T) {
			assert.Equal(t, tt.want, primaryType(tt.typeLine))
		})
	}
}

func TestFinalize_DeckAuditReturnsMissingCopiesToBinder(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, binder, 4)
	seed(store, cardX, deckD, 4)
	svc := newTestService(store, newStubCatalog(cardX))
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeDeck, testDeck)
	require.NoError(t, err)
	item := listItems(t, svc, session.ID)[0]
	_, err = svc.RecordCount(ctx, testOwner, session.ID, item.ID, intPtr(2), boolPtr(true))
	require.NoError(t, err)

	report, err := svc.Finalize(ctx, testOwner, session.ID)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, domain.ItemOutcome{
		ItemID: item.ID,
		Name:   cardX.Name,
		DeckID: testDeck,
		Diff:   -2,
		Moved:  2,
		Status: domain.OutcomeApplied,
	}, report.Outcomes[0])
	assert.Equal(t, 1, report.Applied)
	assert.Zero(t, report.Failed)

	assert.Equal(t, 2, store.Units(testOwner, "x", &deckD))
	assert.Equal(t, 6, store.Units(testOwner, "x", &binder))
	assert.Len(t, store.AllStacks(testOwner), 2)

	done, ok := store.Session(session.ID)
	require.True(t, ok)
	assert.Equal(t, domain.AuditStatusCompleted, done.Status)
	require.NotNil(t, done.EndedAt)

	_, err = svc.Finalize(ctx, testOwner, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "completed sessions cannot be finalized again")
}

func TestFinalize_ZeroDiffChangesNothing(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, binder, 4)
	seed(store, cardX, deckD, 2)
	seed(store, cardY, deckD, 1)
	svc := newTestService(store, newStubCatalog(cardX, cardY))
	ctx := context.Background()
	before := store.AllStacks(testOwner)

	session, err := svc.Start(ctx, testOwner, domain.ScopeCollection, "")
	require.NoError(t, err)
	var updates []domain.CountUpdate
	for _, it := range listItems(t, svc, session.ID) {
		updates = append(updates, domain.CountUpdate{ItemID: it.ID, Quantity: it.ExpectedQuantity})
	}
	_, err = svc.BatchRecord(ctx, testOwner, session.ID, updates)
	require.NoError(t, err)

	report, err := svc.Finalize(ctx, testOwner, session.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.Equal(t, before, store.AllStacks(testOwner))
}

func TestFinalize_SetAuditReconcilesDeckItemsOnly(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, deckD, 3)
	seed(store, cardX, binder, 1)
	seed(store, cardY, binder, 2)
	seed(store, cardZ, deckD, 1)
	svc := newTestService(store, newStubCatalog(cardX, cardY, cardZ))
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeSet, "M21")
	require.NoError(t, err)
	items := listItems(t, svc, session.ID)
	require.Len(t, items, 3, "lea printings are outside the set")

	deck := testDeck
	deckItem := itemFor(t, items, cardX, &deck)
	looseItem := itemFor(t, items, cardY, nil)
	assert.Equal(t, 3, deckItem.ActualQuantity, "set audits start verified")
	_, err = svc.BatchRecord(ctx, testOwner, session.ID, []domain.CountUpdate{
		{ItemID: deckItem.ID, Quantity: 1},
		{ItemID: looseItem.ID, Quantity: 5},
	})
	require.NoError(t, err)

	report, err := svc.Finalize(ctx, testOwner, session.ID)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1, "binder items are count-only")
	assert.Equal(t, domain.ItemOutcome{
		ItemID: deckItem.ID,
		Name:   cardX.Name,
		DeckID: testDeck,
		Diff:   -2,
		Moved:  2,
		Status: domain.OutcomeApplied,
	}, report.Outcomes[0])

	assert.Equal(t, 1, store.Units(testOwner, "x", &deckD))
	assert.Equal(t, 3, store.Units(testOwner, "x", &binder))
	assert.Equal(t, 2, store.Units(testOwner, "y", nil))
	assert.Equal(t, 1, store.Units(testOwner, "z", &deckD))
}

func TestFinalize_SurplusPrefersPremiumThenMaterializes(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, deckD, 2)
	seed(store, foil(cardX), binder, 1)
	svc := newTestService(store, newStubCatalog(cardX))
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeDeck, testDeck)
	require.NoError(t, err)
	item := listItems(t, svc, session.ID)[0]
	_, err = svc.RecordCount(ctx, testOwner, session.ID, item.ID, intPtr(4), nil)
	require.NoError(t, err)

	report, err := svc.Finalize(ctx, testOwner, session.ID)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, 1, report.Outcomes[0].Moved)
	assert.Equal(t, 1, report.Outcomes[0].Materialized)
	assert.Equal(t, domain.OutcomeApplied, report.Outcomes[0].Status)

	assert.Equal(t, 4, store.Units(testOwner, "x", &deckD))
	assert.Zero(t, store.Units(testOwner, "x", &binder))
	for _, st := range store.AllStacks(testOwner) {
		if st.Identity.Finish == domain.FinishFoil {
			assert.Equal(t, deckD, st.Location, "binder foil moved before materializing")
		}
	}
}

func TestFinalize_SoftFailuresAreReportedPerItem(t *testing.T) {
	store := fakestore.New()
	x := seed(store, cardX, deckD, 2)
	seed(store, cardY, deckD, 1)
	seed(store, cardZ, deckD, 1)
	seed(store, cardZ, binder, 5)
	// z is unknown to the catalog, so its surplus cannot be materialized
	svc := newTestService(store, newStubCatalog(cardX, cardY))
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeCollection, "")
	require.NoError(t, err)
	items := listItems(t, svc, session.ID)
	deck := testDeck
	xi := itemFor(t, items, cardX, &deck)
	yi := itemFor(t, items, cardY, &deck)
	zi := itemFor(t, items, cardZ, &deck)
	zb := itemFor(t, items, cardZ, nil)
	_, err = svc.BatchRecord(ctx, testOwner, session.ID, []domain.CountUpdate{
		{ItemID: xi.ID, Quantity: 0},
		{ItemID: yi.ID, Quantity: 2},
		{ItemID: zi.ID, Quantity: 7},
		{ItemID: zb.ID, Quantity: 1},
	})
	require.NoError(t, err)

	// one copy of x leaves the deck outside the audit
	_, err = store.DecrementStack(ctx, x.ID, 1)
	require.NoError(t, err)

	report, err := svc.Finalize(ctx, testOwner, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Outcomes, 3, "binder items are not reconciled")

	byItem := map[int64]domain.ItemOutcome{}
	for _, o := range report.Outcomes {
		byItem[o.ItemID] = o
	}
	assert.Equal(t, domain.OutcomePartial, byItem[xi.ID].Status)
	assert.Equal(t, 1, byItem[xi.ID].Moved)
	assert.Contains(t, byItem[xi.ID].Error, domain.ErrMsgInsufficientSource)

	assert.Equal(t, domain.OutcomeApplied, byItem[yi.ID].Status)
	assert.Equal(t, 1, byItem[yi.ID].Materialized)

	// z took all five binder copies before failing to materialize the sixth
	assert.Equal(t, domain.OutcomePartial, byItem[zi.ID].Status)
	assert.Equal(t, 5, byItem[zi.ID].Moved)
	assert.Contains(t, byItem[zi.ID].Error, domain.ErrMsgIdentityNotFound)

	assert.Zero(t, store.Units(testOwner, "x", &deckD))
	assert.Equal(t, 1, store.Units(testOwner, "x", &binder))
	assert.Equal(t, 2, store.Units(testOwner, "y", &deckD))
	assert.Equal(t, 6, store.Units(testOwner, "z", &deckD))

	done, _ := store.Session(session.ID)
	assert.Equal(t, domain.AuditStatusCompleted, done.Status)
}

func TestFinalize_StoreErrorRollsBackEverything(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, deckD, 4)
	seed(store, cardY, deckD, 1)
	svc := newTestService(store, newStubCatalog(cardX, cardY))
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeDeck, testDeck)
	require.NoError(t, err)
	items := listItems(t, svc, session.ID)
	deck := testDeck
	_, err = svc.BatchRecord(ctx, testOwner, session.ID, []domain.CountUpdate{
		{ItemID: itemFor(t, items, cardX, &deck).ID, Quantity: 1},
		{ItemID: itemFor(t, items, cardY, &deck).ID, Quantity: 3},
	})
	require.NoError(t, err)
	before := store.AllStacks(testOwner)

	boom := errors.New("connection reset")
	store.FailOn("CompleteSession", boom)
	_, err = svc.Finalize(ctx, testOwner, session.ID)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, before, store.AllStacks(testOwner))
	open, _ := store.Session(session.ID)
	assert.Equal(t, domain.AuditStatusActive, open.Status)
}

func TestCancel(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, binder, 2)
	svc := newTestService(store, newStubCatalog())
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeBinder, "")
	require.NoError(t, err)
	require.Equal(t, 1, store.ItemCount(session.ID))

	require.NoError(t, svc.Cancel(ctx, testOwner, session.ID))
	_, ok := store.Session(session.ID)
	assert.False(t, ok)
	assert.Zero(t, store.ItemCount(session.ID))
	assert.ErrorIs(t, svc.Cancel(ctx, testOwner, session.ID), domain.ErrSessionNotFound)

	_, err = svc.Start(ctx, testOwner, domain.ScopeBinder, "")
	assert.NoError(t, err, "cancelling frees the active slot")
}

func TestSwapFoil(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, deckD, 1)
	seed(store, foil(cardX), binder, 1)
	svc := newTestService(store, newStubCatalog(cardX))
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeDeck, testDeck)
	require.NoError(t, err)
	item := listItems(t, svc, session.ID)[0]

	result, err := svc.SwapFoil(ctx, testOwner, session.ID, item.ID)
	require.NoError(t, err)

	assert.Equal(t, item.ID, result.Nonfoil.ID)
	assert.Zero(t, result.Nonfoil.ExpectedQuantity)
	assert.Zero(t, result.Nonfoil.ActualQuantity)
	assert.Equal(t, domain.FinishFoil, result.Foil.Identity.Finish)
	assert.Equal(t, 1, result.Foil.ExpectedQuantity)
	assert.Equal(t, 1, result.Foil.ActualQuantity)

	for _, st := range store.AllStacks(testOwner) {
		if st.Identity.Finish == domain.FinishFoil {
			assert.Equal(t, deckD, st.Location)
		} else {
			assert.Equal(t, binder, st.Location)
		}
		assert.Equal(t, 1, st.Quantity)
	}
}

func TestSwapFoil_IncrementsExistingFoilItem(t *testing.T) {
	store := fakestore.New()
	seed(store, cardX, deckD, 2)
	seed(store, foil(cardX), deckD, 1)
	seed(store, foil(cardX), binder, 3)
	svc := newTestService(store, newStubCatalog(cardX))
	ctx := context.Background()

	session, err := svc.Start(ctx, testOwner, domain.ScopeDeck, testDeck)
	require.NoError(t, err)
	deck := testDeck
	nonfoilItem := itemFor(t, listItems(t, svc, session.ID), cardX, &deck)

	result, err := svc.SwapFoil(ctx, testOwner, session.ID, nonfoilItem.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Nonfoil.ExpectedQuantity)
	assert.Equal(t, 1, result.Nonfoil.ActualQuantity)
	assert.Equal(t, 2, result.Foil.ExpectedQuantity)
	assert.Equal(t, 2, result.Foil.ActualQuantity)
	assert.Equal(t, 2, store.ItemCount(session.ID))
	assert.Equal(t, 3, store.Units(testOwner, "x", &deckD))
}

func TestSwapFoil_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not a deck audit", func(t *testing.T) {
		store := fakestore.New()
		seed(store, cardX, binder, 1)
		svc := newTestService(store, newStubCatalog())
		session, err := svc.Start(ctx, testOwner, domain.ScopeBinder, "")
		require.NoError(t, err)
		item := listItems(t, svc, session.ID)[0]

		_, err = svc.SwapFoil(ctx, testOwner, session.ID, item.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("no foil in binder", func(t *testing.T) {
		store := fakestore.New()
		seed(store, cardX, deckD, 1)
		seed(store, cardX, binder, 1)
		svc := newTestService(store, newStubCatalog())
		session, err := svc.Start(ctx, testOwner, domain.ScopeDeck, testDeck)
		require.NoError(t, err)
		item := listItems(t, svc, session.ID)[0]
		before := store.AllStacks(testOwner)

		_, err = svc.SwapFoil(ctx, testOwner, session.ID, item.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, before, store.AllStacks(testOwner))
	})

	t.Run("no nonfoil in deck", func(t *testing.T) {
		store := fakestore.New()
		seed(store, cardX, deckD, 1)
		seed(store, foil(cardX), binder, 2)
		svc := newTestService(store, newStubCatalog(cardX))
		session, err := svc.Start(ctx, testOwner, domain.ScopeDeck, testDeck)
		require.NoError(t, err)
		item := listItems(t, svc, session.ID)[0]

		_, err = svc.SwapFoil(ctx, testOwner, session.ID, item.ID)
		require.NoError(t, err)
		before := store.AllStacks(testOwner)

		_, err = svc.SwapFoil(ctx, testOwner, session.ID, item.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, before, store.AllStacks(testOwner))
	})

	t.Run("called on the foil item", func(t *testing.T) {
		store := fakestore.New()
		seed(store, cardX, deckD, 1)
		seed(store, foil(cardX), deckD, 1)
		seed(store, foil(cardX), binder, 1)
		svc := newTestService(store, newStubCatalog(cardX))
		session, err := svc.Start(ctx, testOwner, domain.ScopeDeck, testDeck)
		require.NoError(t, err)
		deck := testDeck
		foilItem := itemFor(t, listItems(t, svc, session.ID), foil(cardX), &deck)
		before := store.AllStacks(testOwner)

		_, err = svc.SwapFoil(ctx, testOwner, session.ID, foilItem.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, before, store.AllStacks(testOwner))
		assert.Equal(t, 1, store.Units(testOwner, "x", &binder))
	})
}
