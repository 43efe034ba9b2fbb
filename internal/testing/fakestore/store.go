// Package fakestore is a stateful in-memory implementation of the stack and
// audit repositories. It mirrors the Postgres constraints that the services
// rely on: the stack pool key, positive quantities and one active audit
// session per owner. Transactions snapshot the whole store and restore it on
// rollback.
package fakestore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/repository"
)

type poolKey struct {
	owner    string
	catalog  string
	finish   domain.Finish
	deck     string
	wishlist bool
}

func keyOf(s *domain.CardStack) poolKey {
	return poolKey{s.OwnerID, s.Identity.CatalogID, s.Identity.Finish, s.Location.DeckID, s.IsWishlist}
}

type state struct {
	stacks      map[int64]domain.CardStack
	sessions    map[uuid.UUID]domain.AuditSession
	items       map[int64]domain.AuditItem
	nextStackID int64
	nextItemID  int64
}

func (st *state) clone() *state {
	c := &state{
		stacks:      make(map[int64]domain.CardStack, len(st.stacks)),
		sessions:    make(map[uuid.UUID]domain.AuditSession, len(st.sessions)),
		items:       make(map[int64]domain.AuditItem, len(st.items)),
		nextStackID: st.nextStackID,
		nextItemID:  st.nextItemID,
	}
	for k, v := range st.stacks {
		v.Tags = slices.Clone(v.Tags)
		c.stacks[k] = v
	}
	for k, v := range st.sessions {
		c.sessions[k] = v
	}
	for k, v := range st.items {
		v.Colors = slices.Clone(v.Colors)
		c.items[k] = v
	}
	return c
}

// Store is the fake. The zero value is not usable; call New.
type Store struct {
	mu    sync.Mutex
	st    *state
	fails map[string]error

	// Now stamps AddedAt on inserted stacks.
	Now func() time.Time

	Commits   int
	Rollbacks int
}

var (
	_ repository.StackRepository = (*Store)(nil)
	_ repository.Audit           = (*Store)(nil)
	_ repository.AuditTx         = (*Tx)(nil)
	_ repository.StackTx         = (*Tx)(nil)
)

// New creates an empty store
func New() *Store {
	return &Store{
		st: &state{
			stacks:   map[int64]domain.CardStack{},
			sessions: map[uuid.UUID]domain.AuditSession{},
			items:    map[int64]domain.AuditItem{},
		},
		fails: map[string]error{},
		Now:   func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

// FailOn makes the named method return err until cleared with a nil error
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fails, method)
		return
	}
	s.fails[method] = err
}

func (s *Store) fail(method string) error {
	return s.fails[method]
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// Seed inserts a stack through the normal upsert path and returns the stored row
func (s *Store) Seed(stack domain.CardStack) domain.CardStack {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.upsert(&stack); err != nil {
		panic(err)
	}
	return s.st.stacks[stack.ID]
}

// SeedSession stores a session as-is, bypassing the active-session check
func (s *Store) SeedSession(session domain.AuditSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.sessions[session.ID] = session
}

// AllStacks returns the owner's stacks ordered by id
func (s *Store) AllStacks(ownerID string) []domain.CardStack {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CardStack
	for _, st := range s.st.stacks {
		if st.OwnerID == ownerID {
			out = append(out, st)
		}
	}
	slices.SortFunc(out, func(a, b domain.CardStack) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Units sums the owner's non-wishlist units of a catalog id, optionally per location
func (s *Store) Units(ownerID, catalogID string, loc *domain.Location) int {
	total := 0
	for _, st := range s.AllStacks(ownerID) {
		if st.IsWishlist || st.Identity.CatalogID != catalogID {
			continue
		}
		if loc != nil && st.Location != *loc {
			continue
		}
		total += st.Quantity
	}
	return total
}

// Session returns a stored session by id
func (s *Store) Session(id uuid.UUID) (domain.AuditSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.st.sessions[id]
	return sess, ok
}

// ItemCount returns the number of stored items of a session
func (s *Store) ItemCount(sessionID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.st.items {
		if it.SessionID == sessionID {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// Tx is a snapshot transaction over the store
type Tx struct {
	store    *Store
	snapshot *state
	closed   bool
}

func (s *Store) begin(method string) (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(method); err != nil {
		return nil, err
	}
	return &Tx{store: s, snapshot: s.st.clone()}, nil
}

// BeginStackTx starts a transaction for stack mutations
func (s *Store) BeginStackTx(ctx context.Context) (repository.StackTx, error) {
	tx, err := s.begin("BeginStackTx")
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// BeginAuditTx starts a transaction for audit mutations
func (s *Store) BeginAuditTx(ctx context.Context) (repository.AuditTx, error) {
	tx, err := s.begin("BeginAuditTx")
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Commit keeps the changes made since the transaction began
func (t *Tx) Commit(ctx context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	if err := t.store.fail("Commit"); err != nil {
		return err
	}
	t.closed = true
	t.store.Commits++
	return nil
}

// Rollback restores the snapshot taken when the transaction began
func (t *Tx) Rollback(ctx context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.store.st = t.snapshot
	t.store.Rollbacks++
	return nil
}

// ---------------------------------------------------------------------------
// Stacks
// ---------------------------------------------------------------------------

func (s *Store) FindStacks(ctx context.Context, q domain.StackQuery) ([]domain.CardStack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("FindStacks"); err != nil {
		return nil, err
	}

	var out []domain.CardStack
	for _, st := range s.st.stacks {
		if matches(&st, q) {
			st.Tags = slices.Clone(st.Tags)
			out = append(out, st)
		}
	}
	slices.SortFunc(out, func(a, b domain.CardStack) int {
		if q.NewestFirst {
			return cmp.Compare(b.ID, a.ID)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matches(st *domain.CardStack, q domain.StackQuery) bool {
	switch {
	case st.OwnerID != q.OwnerID:
		return false
	case q.CatalogID != "" && st.Identity.CatalogID != q.CatalogID:
		return false
	case q.Name != "" && domain.FoldName(st.Identity.Name) != domain.FoldName(q.Name):
		return false
	case q.Finish != "" && st.Identity.Finish != q.Finish:
		return false
	case q.SetCode != "" && !strings.EqualFold(st.Identity.SetCode, q.SetCode):
		return false
	case q.Location != nil && st.Location != *q.Location:
		return false
	case q.Wishlist != nil && st.IsWishlist != *q.Wishlist:
		return false
	case q.NameContains != "" && !strings.Contains(strings.ToLower(st.Identity.Name), strings.ToLower(q.NameContains)):
		return false
	}
	return true
}

func (s *Store) GetStack(ctx context.Context, ownerID string, id int64, forUpdate bool) (*domain.CardStack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetStack"); err != nil {
		return nil, err
	}
	st, ok := s.st.stacks[id]
	if !ok || st.OwnerID != ownerID {
		return nil, domain.ErrStackNotFound
	}
	st.Tags = slices.Clone(st.Tags)
	return &st, nil
}

func (s *Store) UpsertStack(ctx context.Context, stack *domain.CardStack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertStack"); err != nil {
		return err
	}
	return s.upsert(stack)
}

func (s *Store) upsert(stack *domain.CardStack) error {
	if stack.Quantity <= 0 {
		return fmt.Errorf("%w: upsert of %d units", domain.ErrInvalidQuantity, stack.Quantity)
	}
	key := keyOf(stack)
	for id, existing := range s.st.stacks {
		if keyOf(&existing) != key {
			continue
		}
		existing.Quantity += stack.Quantity
		existing.Tags = mergeTags(existing.Tags, stack.Tags)
		if !existing.PricePaid.Valid {
			existing.PricePaid = stack.PricePaid
		}
		if len(existing.Metadata) == 0 {
			existing.Metadata = stack.Metadata
		}
		s.st.stacks[id] = existing
		stack.ID, stack.Quantity, stack.Tags, stack.AddedAt = id, existing.Quantity, slices.Clone(existing.Tags), existing.AddedAt
		return nil
	}

	s.st.nextStackID++
	row := *stack
	row.ID = s.st.nextStackID
	row.Tags = mergeTags(nil, stack.Tags)
	if row.AddedAt.IsZero() {
		row.AddedAt = s.Now()
	}
	s.st.stacks[row.ID] = row
	stack.ID, stack.Quantity, stack.Tags, stack.AddedAt = row.ID, row.Quantity, slices.Clone(row.Tags), row.AddedAt
	return nil
}

func mergeTags(a, b []string) []string {
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	out = slices.Compact(out)
	if out == nil {
		out = []string{}
	}
	return out
}

func (s *Store) DecrementStack(ctx context.Context, id int64, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DecrementStack"); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: decrement by %d", domain.ErrInvalidQuantity, n)
	}
	st, ok := s.st.stacks[id]
	if !ok {
		return 0, domain.ErrStackNotFound
	}
	remaining := st.Quantity - n
	switch {
	case remaining < 0:
		return st.Quantity, fmt.Errorf("%w: stack %d holds %d, cannot remove %d", domain.ErrInvalidQuantity, id, st.Quantity, n)
	case remaining == 0:
		delete(s.st.stacks, id)
	default:
		st.Quantity = remaining
		s.st.stacks[id] = st
	}
	return remaining, nil
}

func (s *Store) MoveStack(ctx context.Context, id int64, to domain.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MoveStack"); err != nil {
		return err
	}
	st, ok := s.st.stacks[id]
	if !ok {
		return domain.ErrStackNotFound
	}
	st.Location = to
	key := keyOf(&st)
	for otherID, other := range s.st.stacks {
		if otherID != id && keyOf(&other) == key {
			return fmt.Errorf("%w: destination pool already exists for stack %d", domain.ErrInvariantViolation, id)
		}
	}
	s.st.stacks[id] = st
	return nil
}

func (s *Store) UpdateStack(ctx context.Context, stack *domain.CardStack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateStack"); err != nil {
		return err
	}
	if stack.Quantity <= 0 {
		return fmt.Errorf("%w: update to %d units", domain.ErrInvalidQuantity, stack.Quantity)
	}
	st, ok := s.st.stacks[stack.ID]
	if !ok || st.OwnerID != stack.OwnerID {
		return domain.ErrStackNotFound
	}
	st.Quantity = stack.Quantity
	st.Tags = mergeTags(nil, stack.Tags)
	st.PricePaid = stack.PricePaid
	st.IsWishlist = stack.IsWishlist
	key := keyOf(&st)
	for otherID, other := range s.st.stacks {
		if otherID != st.ID && keyOf(&other) == key {
			return fmt.Errorf("%w: a matching stack already exists in that location", domain.ErrInvalidInput)
		}
	}
	s.st.stacks[st.ID] = st
	return nil
}

func (s *Store) DeleteStack(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteStack"); err != nil {
		return err
	}
	if _, ok := s.st.stacks[id]; !ok {
		return domain.ErrStackNotFound
	}
	delete(s.st.stacks, id)
	return nil
}

// Transactional stack methods delegate to the store.

func (t *Tx) FindStacks(ctx context.Context, q domain.StackQuery) ([]domain.CardStack, error) {
	return t.store.FindStacks(ctx, q)
}

func (t *Tx) GetStack(ctx context.Context, ownerID string, id int64, forUpdate bool) (*domain.CardStack, error) {
	return t.store.GetStack(ctx, ownerID, id, forUpdate)
}

func (t *Tx) UpsertStack(ctx context.Context, stack *domain.CardStack) error {
	return t.store.UpsertStack(ctx, stack)
}

func (t *Tx) DecrementStack(ctx context.Context, id int64, n int) (int, error) {
	return t.store.DecrementStack(ctx, id, n)
}

func (t *Tx) MoveStack(ctx context.Context, id int64, to domain.Location) error {
	return t.store.MoveStack(ctx, id, to)
}

func (t *Tx) UpdateStack(ctx context.Context, stack *domain.CardStack) error {
	return t.store.UpdateStack(ctx, stack)
}

func (t *Tx) DeleteStack(ctx context.Context, id int64) error {
	return t.store.DeleteStack(ctx, id)
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

func (s *Store) GetActiveSession(ctx context.Context, ownerID string, now time.Time) (*domain.AuditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetActiveSession"); err != nil {
		return nil, err
	}
	for _, sess := range s.st.sessions {
		if sess.OwnerID == ownerID && sess.Status == domain.AuditStatusActive && sess.ExpiresAt.After(now) {
			return &sess, nil
		}
	}
	return nil, nil
}

func (s *Store) GetSession(ctx context.Context, ownerID string, id uuid.UUID) (*domain.AuditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetSession"); err != nil {
		return nil, err
	}
	sess, ok := s.st.sessions[id]
	if !ok || sess.OwnerID != ownerID {
		return nil, domain.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *Store) ListItems(ctx context.Context, sessionID uuid.UUID, filter domain.ItemFilter) ([]domain.AuditItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListItems"); err != nil {
		return nil, err
	}
	var out []domain.AuditItem
	for _, it := range s.st.items {
		if it.SessionID == sessionID && itemMatches(&it, filter) {
			it.Colors = slices.Clone(it.Colors)
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b domain.AuditItem) int {
		if c := strings.Compare(a.Identity.Name, b.Identity.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func itemMatches(it *domain.AuditItem, filter domain.ItemFilter) bool {
	switch {
	case filter.DeckID != "":
		return it.DeckID != nil && *it.DeckID == filter.DeckID
	case filter.Group != "":
		return it.DeckID == nil && strings.EqualFold(it.Identity.SetCode, filter.Group)
	}
	return true
}

func (t *Tx) GetSessionForUpdate(ctx context.Context, ownerID string, id uuid.UUID) (*domain.AuditSession, error) {
	return t.store.GetSession(ctx, ownerID, id)
}

func (t *Tx) ListItems(ctx context.Context, sessionID uuid.UUID, filter domain.ItemFilter) ([]domain.AuditItem, error) {
	return t.store.ListItems(ctx, sessionID, filter)
}

func (t *Tx) ExpireSessions(ctx context.Context, ownerID string, now time.Time) (int64, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ExpireSessions"); err != nil {
		return 0, err
	}
	var n int64
	for id, sess := range s.st.sessions {
		if sess.OwnerID == ownerID && sess.Status == domain.AuditStatusActive && !sess.ExpiresAt.After(now) {
			ended := now
			sess.Status = domain.AuditStatusExpired
			sess.EndedAt = &ended
			s.st.sessions[id] = sess
			n++
		}
	}
	return n, nil
}

func (t *Tx) CreateSession(ctx context.Context, session *domain.AuditSession) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateSession"); err != nil {
		return err
	}
	for _, sess := range s.st.sessions {
		if sess.OwnerID == session.OwnerID && sess.Status == domain.AuditStatusActive {
			return domain.ErrSessionConflict
		}
	}
	s.st.sessions[session.ID] = *session
	return nil
}

func (t *Tx) CompleteSession(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CompleteSession"); err != nil {
		return err
	}
	sess, ok := s.st.sessions[id]
	if !ok || sess.Status != domain.AuditStatusActive {
		return domain.ErrSessionNotFound
	}
	sess.Status = domain.AuditStatusCompleted
	sess.EndedAt = &endedAt
	s.st.sessions[id] = sess
	return nil
}

func (t *Tx) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteSession"); err != nil {
		return err
	}
	if _, ok := s.st.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	for itemID, it := range s.st.items {
		if it.SessionID == id {
			delete(s.st.items, itemID)
		}
	}
	delete(s.st.sessions, id)
	return nil
}

func (t *Tx) InsertItems(ctx context.Context, items []domain.AuditItem) error {
	for i := range items {
		if err := t.InsertItem(ctx, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) InsertItem(ctx context.Context, item *domain.AuditItem) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertItem"); err != nil {
		return err
	}
	if item.ExpectedQuantity < 0 || item.ActualQuantity < 0 {
		return errors.New("audit_items quantity check violated")
	}
	if _, ok := s.st.sessions[item.SessionID]; !ok {
		return errors.New("audit_items session foreign key violated")
	}
	s.st.nextItemID++
	item.ID = s.st.nextItemID
	row := *item
	row.Colors = slices.Clone(item.Colors)
	s.st.items[row.ID] = row
	return nil
}

func (t *Tx) GetItem(ctx context.Context, sessionID uuid.UUID, itemID int64, forUpdate bool) (*domain.AuditItem, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetItem"); err != nil {
		return nil, err
	}
	it, ok := s.st.items[itemID]
	if !ok || it.SessionID != sessionID {
		return nil, domain.ErrItemNotFound
	}
	return &it, nil
}

func (t *Tx) FindItem(ctx context.Context, sessionID uuid.UUID, catalogID string, finish domain.Finish, deckID *string) (*domain.AuditItem, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *domain.AuditItem
	for _, it := range s.st.items {
		if it.SessionID != sessionID || it.Identity.CatalogID != catalogID || it.Identity.Finish != finish {
			continue
		}
		if (it.DeckID == nil) != (deckID == nil) || (deckID != nil && *it.DeckID != *deckID) {
			continue
		}
		if found == nil || it.ID < found.ID {
			it := it
			found = &it
		}
	}
	return found, nil
}

func (t *Tx) UpdateItemCount(ctx context.Context, sessionID uuid.UUID, itemID int64, actual *int, reviewed *bool) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateItemCount"); err != nil {
		return err
	}
	it, ok := s.st.items[itemID]
	if !ok || it.SessionID != sessionID {
		return domain.ErrItemNotFound
	}
	if actual != nil {
		if *actual < 0 {
			return errors.New("audit_items quantity check violated")
		}
		it.ActualQuantity = *actual
	}
	if reviewed != nil {
		it.Reviewed = *reviewed
	}
	s.st.items[itemID] = it
	return nil
}

func (t *Tx) UpdateItemQuantities(ctx context.Context, item *domain.AuditItem) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateItemQuantities"); err != nil {
		return err
	}
	it, ok := s.st.items[item.ID]
	if !ok || it.SessionID != item.SessionID {
		return domain.ErrItemNotFound
	}
	if item.ExpectedQuantity < 0 || item.ActualQuantity < 0 {
		return errors.New("audit_items quantity check violated")
	}
	it.ExpectedQuantity = item.ExpectedQuantity
	it.ActualQuantity = item.ActualQuantity
	it.Reviewed = item.Reviewed
	s.st.items[item.ID] = it
	return nil
}

func (t *Tx) MarkSectionReviewed(ctx context.Context, sessionID uuid.UUID, filter domain.ItemFilter) (int64, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, it := range s.st.items {
		if it.SessionID == sessionID && itemMatches(&it, filter) {
			it.Reviewed = true
			s.st.items[id] = it
			n++
		}
	}
	return n, nil
}
